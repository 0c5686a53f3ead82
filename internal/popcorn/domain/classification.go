package domain

import (
	"fmt"
	"strings"
)

// Classification is the verdict assigned to a URL or origin.
type Classification uint8

const (
	// Allowed lets the request, navigation, click or message through.
	Allowed Classification = iota
	// Blocked vetoes it.
	Blocked
)

// String returns a stable string representation of the classification.
func (c Classification) String() string {
	switch c {
	case Allowed:
		return "allowed"
	case Blocked:
		return "blocked"
	default:
		return fmt.Sprintf("Classification(%d)", c)
	}
}

// ParseClassification converts "allowed" or "blocked" (case-insensitive).
func ParseClassification(s string) (Classification, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allowed":
		return Allowed, nil
	case "blocked":
		return Blocked, nil
	default:
		return 0, fmt.Errorf("unsupported Classification: %q", s)
	}
}

// Reason records which step of the matcher produced a verdict.
type Reason uint8

const (
	ReasonDefault Reason = iota
	ReasonMalformed
	ReasonSameOrigin
	ReasonWhitelisted
	ReasonPattern
	ReasonHostRule
)

func (r Reason) String() string {
	switch r {
	case ReasonDefault:
		return "default"
	case ReasonMalformed:
		return "malformed"
	case ReasonSameOrigin:
		return "same_origin"
	case ReasonWhitelisted:
		return "whitelisted"
	case ReasonPattern:
		return "pattern"
	case ReasonHostRule:
		return "host_rule"
	default:
		return fmt.Sprintf("Reason(%d)", r)
	}
}

// Verdict is the full outcome of classifying a candidate.
// Pure value type, no external dependencies.
type Verdict struct {
	Classification Classification
	Reason         Reason
	Match          string // pattern or host rule that decided the outcome, if any
	Source         string // source of a matched host rule
}

// IsBlocked is a convenience accessor.
func (v Verdict) IsBlocked() bool { return v.Classification == Blocked }

// Fields renders the verdict as log fields.
func (v Verdict) Fields(candidate string) map[string]any {
	f := map[string]any{
		"url":     candidate,
		"verdict": v.Classification.String(),
		"reason":  v.Reason.String(),
	}
	if v.Match != "" {
		f["match"] = v.Match
	}
	if v.Source != "" {
		f["source"] = v.Source
	}
	return f
}
