package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/haukened/popcorn/internal/popcorn/common/utils"
)

// HostRuleKind defines how a host rule matches hostnames.
//
// exact  - matches the host only
// suffix - matches the host and any subdomain (apex-inclusive)
type HostRuleKind uint8

const (
	// HostRuleExact matches only the exact host.
	HostRuleExact HostRuleKind = iota
	// HostRuleSuffix matches the host and all its subdomains.
	HostRuleSuffix
)

// String returns a stable string representation of the rule kind.
func (k HostRuleKind) String() string {
	switch k {
	case HostRuleExact:
		return "exact"
	case HostRuleSuffix:
		return "suffix"
	default:
		return fmt.Sprintf("HostRuleKind(%d)", k)
	}
}

// ParseHostRuleKind converts "exact" or "suffix" (case-insensitive).
func ParseHostRuleKind(s string) (HostRuleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exact":
		return HostRuleExact, nil
	case "suffix":
		return HostRuleSuffix, nil
	default:
		return 0, fmt.Errorf("unsupported HostRuleKind: %q", s)
	}
}

// HostRule is a single hostname rule sourced from a blocklist file.
// Name is canonical (lower-case, no trailing dot).
type HostRule struct {
	Name    string
	Kind    HostRuleKind
	Source  string    // file path or list alias
	AddedAt time.Time // ingestion timestamp
}

// NewHostRule constructs a HostRule and validates its fields.
func NewHostRule(name string, kind HostRuleKind, source string, addedAt time.Time) (HostRule, error) {
	r := HostRule{
		Name:    strings.TrimSpace(name),
		Kind:    kind,
		Source:  strings.TrimSpace(source),
		AddedAt: addedAt,
	}
	if err := r.Validate(); err != nil {
		return HostRule{}, err
	}
	return r, nil
}

// NewExactHostRule convenience constructor for an exact rule.
func NewExactHostRule(name, source string, addedAt time.Time) (HostRule, error) {
	return NewHostRule(name, HostRuleExact, source, addedAt)
}

// NewSuffixHostRule convenience constructor for a suffix rule.
func NewSuffixHostRule(name, source string, addedAt time.Time) (HostRule, error) {
	return NewHostRule(name, HostRuleSuffix, source, addedAt)
}

// Validate checks the rule for required fields and supported values.
func (r HostRule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if r.Source == "" {
		return fmt.Errorf("rule source must not be empty")
	}
	if r.AddedAt.IsZero() {
		return fmt.Errorf("rule addedAt must be set")
	}
	switch r.Kind {
	case HostRuleExact, HostRuleSuffix:
	default:
		return fmt.Errorf("unsupported HostRuleKind: %d", r.Kind)
	}
	if r.Kind == HostRuleSuffix && utils.IsPublicSuffix(r.Name) {
		return fmt.Errorf("suffix rule %q would cover a public suffix", r.Name)
	}
	return nil
}

func (r HostRule) IsExact() bool  { return r.Kind == HostRuleExact }
func (r HostRule) IsSuffix() bool { return r.Kind == HostRuleSuffix }

// HostDecision is the outcome of looking a host up in the rule repository.
type HostDecision struct {
	Blocked     bool
	MatchedRule string // exact host or suffix anchor that matched
	Source      string
	Kind        HostRuleKind
}

func (d HostDecision) IsBlocked() bool { return d.Blocked }

// EmptyHostDecision returns a not-blocked decision.
func EmptyHostDecision() HostDecision { return HostDecision{} }
