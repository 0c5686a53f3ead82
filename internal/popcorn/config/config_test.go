package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/v2"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Env != "prod" {
		t.Errorf("expected Env=prod, got %q", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LogLevel=info, got %q", cfg.LogLevel)
	}
	if cfg.PageOrigin != "http://localhost:8080" {
		t.Errorf("expected PageOrigin=http://localhost:8080, got %q", cfg.PageOrigin)
	}
	if cfg.PolicyFile != "" {
		t.Errorf("expected empty PolicyFile, got %q", cfg.PolicyFile)
	}
	if cfg.RulesCacheSize != 10000 {
		t.Errorf("expected RulesCacheSize=10000, got %d", cfg.RulesCacheSize)
	}
	if cfg.BloomFPRate != 0.01 {
		t.Errorf("expected BloomFPRate=0.01, got %v", cfg.BloomFPRate)
	}
	if cfg.CatalogTimeout != 10*time.Second {
		t.Errorf("expected CatalogTimeout=10s, got %v", cfg.CatalogTimeout)
	}
	if cfg.CatalogCacheTTL != 10*time.Minute {
		t.Errorf("expected CatalogCacheTTL=10m, got %v", cfg.CatalogCacheTTL)
	}
	if cfg.PlayerBaseURL != "https://vidsrc.to" {
		t.Errorf("expected PlayerBaseURL=https://vidsrc.to, got %q", cfg.PlayerBaseURL)
	}
}

func TestLoad_ValidOverrides(t *testing.T) {
	t.Setenv("POPCORN_ENV", "dev")
	t.Setenv("POPCORN_LOG_LEVEL", "debug")
	t.Setenv("POPCORN_PAGE_ORIGIN", "https://popcorn.example:8443")
	t.Setenv("POPCORN_POLICY_FILE", "/etc/popcorn/policy.yaml")
	t.Setenv("POPCORN_RULES_DB", "/tmp/rules.db")
	t.Setenv("POPCORN_RULES_CACHE_SIZE", "0")
	t.Setenv("POPCORN_BLOOM_FP_RATE", "0.001")
	t.Setenv("POPCORN_STATE_DB", "/tmp/state.db")
	t.Setenv("POPCORN_CATALOG_API_KEY", "abc123")
	t.Setenv("POPCORN_CATALOG_TIMEOUT", "3s")
	t.Setenv("POPCORN_CATALOG_CACHE_TTL", "1m30s")
	t.Setenv("POPCORN_CATALOG_RATE", "2.5")
	t.Setenv("POPCORN_CATALOG_BURST", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Env != "dev" {
		t.Errorf("expected Env=dev, got %q", cfg.Env)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected LogLevel=debug, got %q", cfg.LogLevel)
	}
	if cfg.PageOrigin != "https://popcorn.example:8443" {
		t.Errorf("unexpected PageOrigin %q", cfg.PageOrigin)
	}
	if cfg.PolicyFile != "/etc/popcorn/policy.yaml" {
		t.Errorf("unexpected PolicyFile %q", cfg.PolicyFile)
	}
	if cfg.RulesDB != "/tmp/rules.db" || cfg.StateDB != "/tmp/state.db" {
		t.Errorf("unexpected db paths %q %q", cfg.RulesDB, cfg.StateDB)
	}
	if cfg.RulesCacheSize != 0 {
		t.Errorf("expected RulesCacheSize=0, got %d", cfg.RulesCacheSize)
	}
	if cfg.BloomFPRate != 0.001 {
		t.Errorf("expected BloomFPRate=0.001, got %v", cfg.BloomFPRate)
	}
	if cfg.CatalogAPIKey != "abc123" {
		t.Errorf("expected CatalogAPIKey=abc123, got %q", cfg.CatalogAPIKey)
	}
	if cfg.CatalogTimeout != 3*time.Second {
		t.Errorf("expected CatalogTimeout=3s, got %v", cfg.CatalogTimeout)
	}
	if cfg.CatalogCacheTTL != 90*time.Second {
		t.Errorf("expected CatalogCacheTTL=1m30s, got %v", cfg.CatalogCacheTTL)
	}
	if cfg.CatalogRate != 2.5 || cfg.CatalogBurst != 2 {
		t.Errorf("unexpected rate %v burst %d", cfg.CatalogRate, cfg.CatalogBurst)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"bad env", "POPCORN_ENV", "staging"},
		{"bad log level", "POPCORN_LOG_LEVEL", "verbose"},
		{"origin with path", "POPCORN_PAGE_ORIGIN", "https://popcorn.example/app"},
		{"origin without scheme", "POPCORN_PAGE_ORIGIN", "popcorn.example"},
		{"origin ftp", "POPCORN_PAGE_ORIGIN", "ftp://popcorn.example"},
		{"player with query", "POPCORN_PLAYER_BASE_URL", "https://vidsrc.to?x=1"},
		{"fp rate too high", "POPCORN_BLOOM_FP_RATE", "1"},
		{"negative cache", "POPCORN_RULES_CACHE_SIZE", "-1"},
		{"zero burst", "POPCORN_CATALOG_BURST", "0"},
		{"catalog url", "POPCORN_CATALOG_BASE_URL", "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected validation error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestValidOrigin(t *testing.T) {
	v := validator.New()
	if err := v.RegisterValidation("origin", validOrigin); err != nil {
		t.Fatal(err)
	}
	good := []string{"http://localhost:8080", "https://vidsrc.to", "https://vidsrc.to/"}
	bad := []string{"", "vidsrc.to", "https://user@vidsrc.to", "https://vidsrc.to/#x", "javascript:alert(1)"}
	for _, s := range good {
		if err := v.Var(s, "origin"); err != nil {
			t.Errorf("expected %q to be a valid origin: %v", s, err)
		}
	}
	for _, s := range bad {
		if err := v.Var(s, "origin"); err == nil {
			t.Errorf("expected %q to be rejected", s)
		}
	}
}

func TestLoad_WhenKoanfDefaultLoadFails(t *testing.T) {
	orig := defaultLoader
	defaultLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { defaultLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading defaults, got nil")
	}
}

func TestLoad_WhenKoanfEnvLoadFails(t *testing.T) {
	orig := envLoader
	envLoader = func(k *koanf.Koanf) error { return errors.New("mocked error") }
	defer func() { envLoader = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked error") {
		t.Fatal("expected error when loading env, got nil")
	}
}

func TestLoad_RegisterValidationFails(t *testing.T) {
	orig := registerValidation
	registerValidation = func(v *validator.Validate) error { return errors.New("mocked validation error") }
	defer func() { registerValidation = orig }()

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "mocked validation error") {
		t.Fatal("expected error when registering validation, got nil")
	}
}
