package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestParseClassification(t *testing.T) {
	cases := []struct {
		in      string
		want    Classification
		wantErr bool
	}{
		{"allowed", Allowed, false},
		{" BLOCKED ", Blocked, false},
		{"", 0, true},
		{"maybe", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseClassification(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseClassification(%q) expected error, got nil", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseClassification(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
	}
	if got := Classification(9).String(); got != "Classification(9)" {
		t.Errorf("unexpected String: %q", got)
	}
}

func TestVerdictFields(t *testing.T) {
	v := Verdict{Classification: Blocked, Reason: ReasonHostRule, Match: "ads.example.com", Source: "list.txt"}
	f := v.Fields("https://ads.example.com/x")
	if !v.IsBlocked() {
		t.Fatalf("IsBlocked() = false")
	}
	if f["verdict"] != "blocked" || f["reason"] != "host_rule" || f["match"] != "ads.example.com" || f["source"] != "list.txt" {
		t.Errorf("unexpected fields: %+v", f)
	}
	f = Verdict{}.Fields("https://ok.example")
	if _, ok := f["match"]; ok {
		t.Errorf("empty match must be omitted: %+v", f)
	}
	if f["reason"] != "default" {
		t.Errorf("zero verdict reason = %v", f["reason"])
	}
}

func TestNewPatternSet_NormalizesAndCopies(t *testing.T) {
	ps := NewPatternSet([]string{" DoubleClick ", "doubleclick", "", "/ads/"}, []string{"YouTube.com"})
	if got, want := ps.Blocked(), []string{"doubleclick", "/ads/"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Blocked() = %v, want %v", got, want)
	}
	if got, want := ps.Whitelisted(), []string{"youtube.com"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Whitelisted() = %v, want %v", got, want)
	}

	// accessors hand out copies, the set stays immutable
	b := ps.Blocked()
	b[0] = "mutated"
	if ps.Blocked()[0] != "doubleclick" {
		t.Errorf("PatternSet mutated through accessor")
	}

	if pat, ok := ps.MatchBlocked("https://ad.doubleclick.net/x"); !ok || pat != "doubleclick" {
		t.Errorf("MatchBlocked = %q, %v", pat, ok)
	}
	if _, ok := ps.MatchWhitelist("https://vimeo.com"); ok {
		t.Errorf("MatchWhitelist unexpected match")
	}
}

func TestPatternSetMerge(t *testing.T) {
	a := NewPatternSet([]string{"a"}, []string{"w1"})
	b := NewPatternSet([]string{"b", "a"}, []string{"w2"})
	m := a.Merge(b)
	if got, want := m.Blocked(), []string{"a", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("merged blocked = %v, want %v", got, want)
	}
	if got, want := m.Whitelisted(), []string{"w1", "w2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("merged whitelist = %v, want %v", got, want)
	}
	if len(a.Blocked()) != 1 {
		t.Errorf("Merge must not modify receiver")
	}
}

func TestDefaultPolicy(t *testing.T) {
	p := DefaultPolicy()
	if p.ClickDebounce != 100*time.Millisecond {
		t.Errorf("ClickDebounce = %v", p.ClickDebounce)
	}
	if len(p.Patterns.Blocked()) != len(DefaultBlockedPatterns) {
		t.Errorf("blocked patterns = %d, want %d", len(p.Patterns.Blocked()), len(DefaultBlockedPatterns))
	}
	if !reflect.DeepEqual(p.ElementKeywords, []string{"ad", "banner", "popup", "overlay"}) {
		t.Errorf("ElementKeywords = %v", p.ElementKeywords)
	}
	if len(p.Redirectors) != len(DefaultRedirectors) {
		t.Errorf("Redirectors = %v", p.Redirectors)
	}
}

func TestHostRules(t *testing.T) {
	now := time.Now()
	r, err := NewHostRule(" ads.example.com ", HostRuleSuffix, "test-source", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Name != "ads.example.com" || !r.IsSuffix() || r.IsExact() {
		t.Errorf("unexpected rule: %+v", r)
	}

	if _, err := NewExactHostRule("", "s", now); err == nil {
		t.Errorf("expected error for empty name")
	}
	if _, err := NewSuffixHostRule("example.com", "", now); err == nil {
		t.Errorf("expected error for empty source")
	}
	if _, err := NewExactHostRule("example.com", "s", time.Time{}); err == nil {
		t.Errorf("expected error for zero AddedAt")
	}
	if _, err := NewHostRule("example.com", HostRuleKind(99), "s", now); err == nil {
		t.Errorf("expected error for unsupported kind")
	}
	for _, ps := range []string{"com", "co.uk", "github.io"} {
		if _, err := NewSuffixHostRule(ps, "s", now); err == nil {
			t.Errorf("expected error for suffix rule on public suffix %q", ps)
		}
	}
	if _, err := NewSuffixHostRule("bbc.co.uk", "s", now); err != nil {
		t.Errorf("unexpected error for registrable domain: %v", err)
	}

	for in, want := range map[string]HostRuleKind{"exact": HostRuleExact, " Suffix": HostRuleSuffix} {
		got, err := ParseHostRuleKind(in)
		if err != nil || got != want {
			t.Errorf("ParseHostRuleKind(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseHostRuleKind("wild"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
	if HostRuleKind(42).String() != "HostRuleKind(42)" {
		t.Errorf("unexpected String for unknown kind")
	}
	if EmptyHostDecision().IsBlocked() {
		t.Errorf("empty decision must not block")
	}
}

func TestErrors(t *testing.T) {
	var err error = &BlockedRequestError{URL: "https://doubleclick.net", Primitive: "fetch", Verdict: Verdict{Classification: Blocked, Reason: ReasonPattern}}
	if !errors.Is(err, ErrBlockedRequest) {
		t.Errorf("BlockedRequestError must unwrap to ErrBlockedRequest")
	}
	if err.Error() != "fetch https://doubleclick.net: request blocked by embed guard (pattern)" {
		t.Errorf("unexpected message: %q", err.Error())
	}

	err = &ProviderError{Op: "trending", StatusCode: 401, Status: "401 Unauthorized"}
	var pe *ProviderError
	if !errors.Is(err, ErrProvider) || !errors.As(err, &pe) || pe.StatusCode != 401 {
		t.Errorf("ProviderError must unwrap to ErrProvider")
	}
}

func TestCatalogHelpers(t *testing.T) {
	if mt, err := ParseMediaType("TV"); err != nil || mt != MediaTV {
		t.Errorf("ParseMediaType(TV) = %v, %v", mt, err)
	}
	if _, err := ParseMediaType("anime"); err == nil {
		t.Errorf("expected error for unknown media type")
	}

	tests := []struct {
		title Title
		name  string
		year  string
	}{
		{Title{Title: "Heat", ReleaseDate: "1995-12-15"}, "Heat", "1995"},
		{Title{Name: "Dark", FirstAirDate: "2017-12-01"}, "Dark", "2017"},
		{Title{}, "Unknown Title", "N/A"},
	}
	for _, tt := range tests {
		if got := tt.title.DisplayTitle(); got != tt.name {
			t.Errorf("DisplayTitle() = %q, want %q", got, tt.name)
		}
		if got := tt.title.ReleaseYear(); got != tt.year {
			t.Errorf("ReleaseYear() = %q, want %q", got, tt.year)
		}
	}

	if !(Video{Site: "YouTube", Type: "Trailer"}).IsYouTubeTrailer() {
		t.Errorf("expected trailer")
	}
	if (Video{Site: "Vimeo", Type: "Trailer"}).IsYouTubeTrailer() {
		t.Errorf("vimeo is not shown")
	}
	if EpisodeKey(2, 5) != "2-5" {
		t.Errorf("EpisodeKey(2,5) = %q", EpisodeKey(2, 5))
	}
}
