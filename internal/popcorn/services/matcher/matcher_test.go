package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/haukened/popcorn/internal/popcorn/domain"
)

const pageOrigin = "https://popcorn.example"

type mockHosts struct {
	mock.Mock
}

func (m *mockHosts) Decide(host string) domain.HostDecision {
	args := m.Called(host)
	return args.Get(0).(domain.HostDecision)
}

func newDefault(t *testing.T) *Matcher {
	t.Helper()
	m, err := New(Options{Origin: pageOrigin, Patterns: domain.DefaultPolicy().Patterns})
	require.NoError(t, err)
	return m
}

func TestClassify(t *testing.T) {
	m := newDefault(t)

	tests := []struct {
		name       string
		candidate  string
		want       domain.Classification
		wantReason domain.Reason
	}{
		{"whitelist beats blocklist", "https://vidsrc.to/ads/x", domain.Allowed, domain.ReasonWhitelisted},
		{"same origin beats blocklist", pageOrigin + "/ads/", domain.Allowed, domain.ReasonSameOrigin},
		{"same origin with default port", "https://popcorn.example:443/popup", domain.Allowed, domain.ReasonSameOrigin},
		{"same origin is case-insensitive", "HTTPS://POPCORN.EXAMPLE/banner", domain.Allowed, domain.ReasonSameOrigin},
		{"malformed", "not a url", domain.Blocked, domain.ReasonMalformed},
		{"relative is malformed", "/ads/x", domain.Blocked, domain.ReasonMalformed},
		{"empty is malformed", "", domain.Blocked, domain.ReasonMalformed},
		{"missing host", "https://", domain.Blocked, domain.ReasonMalformed},
		{"bad escape", "https://a.com/%zz", domain.Blocked, domain.ReasonMalformed},
		{"blocked pattern", "https://doubleclick.net/x", domain.Blocked, domain.ReasonPattern},
		{"blocked pattern upper-case", "https://PAGEAD2.GoogleSyndication.com/x", domain.Blocked, domain.ReasonPattern},
		{"whitelisted embed", "https://youtube.com/embed/abc", domain.Allowed, domain.ReasonWhitelisted},
		{"unknown third party", "https://cdn.example.org/player.js", domain.Allowed, domain.ReasonDefault},
		{"blocked path on other origin", "https://other.example/popunder?id=1", domain.Blocked, domain.ReasonPattern},
		{"opaque url", "about:blank", domain.Allowed, domain.ReasonDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := m.Decide(tt.candidate)
			assert.Equal(t, tt.want, v.Classification)
			assert.Equal(t, tt.wantReason, v.Reason)
			assert.Equal(t, tt.want, m.Classify(tt.candidate))
		})
	}
}

func TestDecide_ReportsMatch(t *testing.T) {
	m := newDefault(t)
	v := m.Decide("https://doubleclick.net/x")
	assert.Equal(t, "doubleclick", v.Match)
	assert.True(t, v.IsBlocked())
}

func TestClassify_Deterministic(t *testing.T) {
	m := newDefault(t)
	for i := 0; i < 3; i++ {
		assert.Equal(t, domain.Blocked, m.Classify("https://doubleclick.net/x"))
	}
}

func TestClassify_HostRules(t *testing.T) {
	hosts := &mockHosts{}
	hosts.On("Decide", "stats.adnet.io").Return(domain.HostDecision{
		Blocked: true, MatchedRule: "adnet.io", Source: "list.txt", Kind: domain.HostRuleSuffix,
	})
	hosts.On("Decide", "cdn.example.org").Return(domain.EmptyHostDecision())

	m, err := New(Options{Origin: pageOrigin, Patterns: domain.DefaultPolicy().Patterns, Hosts: hosts})
	require.NoError(t, err)

	v := m.Decide("https://stats.adnet.io/p.js")
	assert.Equal(t, domain.Blocked, v.Classification)
	assert.Equal(t, domain.ReasonHostRule, v.Reason)
	assert.Equal(t, "adnet.io", v.Match)
	assert.Equal(t, "list.txt", v.Source)

	assert.Equal(t, domain.Allowed, m.Classify("https://cdn.example.org/x"))

	// whitelist and pattern decisions never reach the host rules
	assert.Equal(t, domain.Allowed, m.Classify("https://youtube.com/embed/abc"))
	assert.Equal(t, domain.Blocked, m.Classify("https://doubleclick.net/x"))
	hosts.AssertNumberOfCalls(t, "Decide", 2)
}

func TestNew_InvalidOrigin(t *testing.T) {
	_, err := New(Options{Origin: "popcorn.example"})
	assert.Error(t, err)
}
