// Package matcher classifies URLs and origins as allowed or blocked.
package matcher

import (
	"fmt"
	"strings"

	"github.com/haukened/popcorn/internal/popcorn/common/utils"
	"github.com/haukened/popcorn/internal/popcorn/domain"
)

// HostBlocklist answers host-level lookups. The hostrules repository
// satisfies it.
type HostBlocklist interface {
	Decide(host string) domain.HostDecision
}

// Options configures a Matcher.
type Options struct {
	// Origin is the hosting page's origin, e.g. "https://popcorn.example".
	Origin string
	// Patterns are consulted whitelist first, then blocklist.
	Patterns domain.PatternSet
	// Hosts is optional. When set it is consulted after the substring patterns.
	Hosts HostBlocklist
}

// Matcher is safe for concurrent use; it holds no mutable state.
type Matcher struct {
	origin   string
	patterns domain.PatternSet
	hosts    HostBlocklist
}

// New returns a Matcher for the page at opts.Origin.
func New(opts Options) (*Matcher, error) {
	origin, err := utils.NormalizeOrigin(opts.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid page origin %q: %w", opts.Origin, err)
	}
	return &Matcher{origin: origin, patterns: opts.Patterns, hosts: opts.Hosts}, nil
}

// Origin returns the normalized page origin.
func (m *Matcher) Origin() string { return m.origin }

// Classify returns the verdict's classification for candidate.
func (m *Matcher) Classify(candidate string) domain.Classification {
	return m.Decide(candidate).Classification
}

// Decide classifies candidate and reports which rule decided.
func (m *Matcher) Decide(candidate string) domain.Verdict {
	s := strings.ToLower(candidate)

	u, err := utils.ParseAbsoluteURL(s)
	if err != nil {
		return domain.Verdict{Classification: domain.Blocked, Reason: domain.ReasonMalformed}
	}
	if utils.Origin(u) == m.origin {
		return domain.Verdict{Classification: domain.Allowed, Reason: domain.ReasonSameOrigin}
	}
	if pat, ok := m.patterns.MatchWhitelist(s); ok {
		return domain.Verdict{Classification: domain.Allowed, Reason: domain.ReasonWhitelisted, Match: pat}
	}
	if pat, ok := m.patterns.MatchBlocked(s); ok {
		return domain.Verdict{Classification: domain.Blocked, Reason: domain.ReasonPattern, Match: pat}
	}
	if m.hosts != nil && u.Hostname() != "" {
		if d := m.hosts.Decide(u.Hostname()); d.Blocked {
			return domain.Verdict{
				Classification: domain.Blocked,
				Reason:         domain.ReasonHostRule,
				Match:          d.MatchedRule,
				Source:         d.Source,
			}
		}
	}
	return domain.Verdict{Classification: domain.Allowed, Reason: domain.ReasonDefault}
}
