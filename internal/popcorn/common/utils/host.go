package utils

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// CanonicalHost returns a hostname in canonical form:
// - Lowercased
// - Trimmed of surrounding whitespace
// - No trailing dot, so "Ads.Example.com." and "ads.example.com" share one key.
func CanonicalHost(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ToLower(name)
	for strings.HasSuffix(name, ".") {
		name = strings.TrimSuffix(name, ".")
	}
	return name
}

// GetApexDomain returns the registrable domain (eTLD+1) for a host,
// falling back to the canonical host when the public suffix list has no answer.
func GetApexDomain(name string) string {
	name = CanonicalHost(name)
	apex, err := publicsuffix.EffectiveTLDPlusOne(name)
	if err != nil {
		return name
	}
	return apex
}

// ParentHosts lists name followed by each parent domain, most specific first,
// stopping before the bare public suffix. "a.b.example.co.uk" yields
// a.b.example.co.uk, b.example.co.uk, example.co.uk.
func ParentHosts(name string) []string {
	name = CanonicalHost(name)
	if name == "" {
		return nil
	}
	apex := GetApexDomain(name)
	out := []string{name}
	for name != apex {
		i := strings.IndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[i+1:]
		out = append(out, name)
	}
	return out
}

// IsPublicSuffix reports whether name is itself a public suffix, such as
// "com", "co.uk" or "github.io".
func IsPublicSuffix(name string) bool {
	name = CanonicalHost(name)
	if name == "" {
		return false
	}
	ps, _ := publicsuffix.PublicSuffix(name)
	return ps == name
}
