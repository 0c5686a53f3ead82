package domain

import (
	"strings"
	"time"
)

// PatternSet holds the substring patterns the matcher consults. Patterns are
// lower-cased, trimmed and de-duplicated on construction and the set is
// immutable afterwards. Order never changes an outcome.
type PatternSet struct {
	blocked     []string
	whitelisted []string
}

// NewPatternSet builds a PatternSet. Empty patterns are dropped since an
// empty substring would match every candidate.
func NewPatternSet(blocked, whitelisted []string) PatternSet {
	return PatternSet{
		blocked:     normalizePatterns(blocked),
		whitelisted: normalizePatterns(whitelisted),
	}
}

// Blocked returns a copy of the blocklist patterns.
func (p PatternSet) Blocked() []string { return append([]string(nil), p.blocked...) }

// Whitelisted returns a copy of the whitelist patterns.
func (p PatternSet) Whitelisted() []string { return append([]string(nil), p.whitelisted...) }

// MatchWhitelist returns the first whitelist pattern contained in s.
// s is expected to be lower-cased already.
func (p PatternSet) MatchWhitelist(s string) (string, bool) { return firstContained(p.whitelisted, s) }

// MatchBlocked returns the first blocklist pattern contained in s.
// s is expected to be lower-cased already.
func (p PatternSet) MatchBlocked(s string) (string, bool) { return firstContained(p.blocked, s) }

// Merge returns a new set holding the patterns of both sets.
func (p PatternSet) Merge(o PatternSet) PatternSet {
	return NewPatternSet(append(p.Blocked(), o.blocked...), append(p.Whitelisted(), o.whitelisted...))
}

func firstContained(patterns []string, s string) (string, bool) {
	for _, pat := range patterns {
		if strings.Contains(s, pat) {
			return pat, true
		}
	}
	return "", false
}

func normalizePatterns(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// DefaultClickDebounce is the minimum interval between two accepted clicks.
const DefaultClickDebounce = 100 * time.Millisecond

// Policy bundles everything the guard needs to know about what to refuse.
type Policy struct {
	Patterns        PatternSet
	Redirectors     []string      // substrings marking a redirector link (navigation guard)
	ElementKeywords []string      // class/id substrings marking injected ad elements (DOM sentinel)
	ClickDebounce   time.Duration // clicks closer than this are treated as synthetic
}

// WithLists returns a copy of p whose redirector and keyword lists are
// normalized the same way as patterns.
func (p Policy) WithLists(redirectors, keywords []string) Policy {
	p.Redirectors = normalizePatterns(redirectors)
	p.ElementKeywords = normalizePatterns(keywords)
	return p
}

// DefaultBlockedPatterns are ad networks and ad-ish path fragments seen
// around third-party video embeds.
var DefaultBlockedPatterns = []string{
	"acscdn.com",
	"dtscout.com",
	"vidsrc-embed.ru",
	"googlesyndication",
	"doubleclick",
	"googletagmanager",
	"googleadservices",
	"/ads/",
	"/ad/",
	"/advert",
	"/banner",
	"/popup",
	"/popunder",
	"/redirect",
	"/click/",
	"/track/",
	"/analytics",
	"/telemetry",
	"/beacon",
	"/pixel",
	"/impression",
	"/aff/",
	"/out/",
	"/go/",
	"taboola",
	"outbrain",
	"criteo",
	"adnxs",
	"adsystem",
	"adserver",
	"advertising",
}

// DefaultWhitelistPatterns cover the player hosts and trailer sources.
var DefaultWhitelistPatterns = []string{
	"/api/",
	"vidsrc.to",
	"vidsrc.me",
	"vidsrc.pm",
	"youtube.com",
	"ytimg.com",
}

// DefaultRedirectors mark link shorteners and tracking hops.
var DefaultRedirectors = []string{
	"/go/",
	"/out/",
	"/click/",
	"/track/",
	"/redirect/",
	"/aff/",
	"/away/",
	"/exit/",
	"short.link",
	"bit.ly",
	"tinyurl",
}

// DefaultElementKeywords are matched as substrings of class and id values.
var DefaultElementKeywords = []string{"ad", "banner", "popup", "overlay"}

// DefaultPolicy returns the built-in policy.
func DefaultPolicy() Policy {
	p := Policy{
		Patterns:      NewPatternSet(DefaultBlockedPatterns, DefaultWhitelistPatterns),
		ClickDebounce: DefaultClickDebounce,
	}
	return p.WithLists(DefaultRedirectors, DefaultElementKeywords)
}
