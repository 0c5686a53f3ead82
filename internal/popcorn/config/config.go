package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// AppConfig holds configuration values parsed from environment variables.
type AppConfig struct {
	// Env is the runtime environment, either "dev" or "prod".
	Env string `koanf:"env" validate:"required,oneof=dev prod"`

	// LogLevel controls log verbosity: "debug", "info", "warn", or "error".
	LogLevel string `koanf:"log_level" validate:"required,oneof=debug info warn error"`

	// PageOrigin is the origin the guarded page is served from. Requests to
	// it are always allowed.
	PageOrigin string `koanf:"page_origin" validate:"required,origin"`

	// PolicyFile optionally points at a yaml, json or toml pattern policy.
	PolicyFile string `koanf:"policy_file"`

	// RulesDB is the bbolt file holding imported host rules. Empty disables
	// host rules.
	RulesDB string `koanf:"rules_db"`

	// RulesCacheSize bounds the host decision LRU. Zero disables it.
	RulesCacheSize int `koanf:"rules_cache_size" validate:"gte=0"`

	// BloomFPRate is the target false-positive rate of the host rule prefilter.
	BloomFPRate float64 `koanf:"bloom_fp_rate" validate:"gt=0,lt=1"`

	// StateDB is the bbolt file holding watch state. Empty keeps state in memory.
	StateDB string `koanf:"state_db"`

	CatalogBaseURL   string        `koanf:"catalog_base_url" validate:"required,url"`
	CatalogImageURL  string        `koanf:"catalog_image_url" validate:"required,url"`
	CatalogAPIKey    string        `koanf:"catalog_api_key"`
	CatalogTimeout   time.Duration `koanf:"catalog_timeout" validate:"gt=0"`
	CatalogCacheSize int           `koanf:"catalog_cache_size" validate:"gte=1"`
	CatalogCacheTTL  time.Duration `koanf:"catalog_cache_ttl" validate:"gt=0"`
	// CatalogRate is requests per second. Zero means unlimited.
	CatalogRate  float64 `koanf:"catalog_rate" validate:"gte=0"`
	CatalogBurst int     `koanf:"catalog_burst" validate:"gte=1"`

	// PlayerBaseURL is the embedded player origin.
	PlayerBaseURL string `koanf:"player_base_url" validate:"required,origin"`
}

// DEFAULT_APP_CONFIG holds the defaults applied before environment overrides.
var DEFAULT_APP_CONFIG = AppConfig{
	Env:              "prod",
	LogLevel:         "info",
	PageOrigin:       "http://localhost:8080",
	RulesDB:          "/var/lib/popcorn/hostrules.db",
	RulesCacheSize:   10000,
	BloomFPRate:      0.01,
	StateDB:          "/var/lib/popcorn/state.db",
	CatalogBaseURL:   "https://api.themoviedb.org/3",
	CatalogImageURL:  "https://image.tmdb.org/t/p",
	CatalogTimeout:   10 * time.Second,
	CatalogCacheSize: 256,
	CatalogCacheTTL:  10 * time.Minute,
	CatalogRate:      20,
	CatalogBurst:     5,
	PlayerBaseURL:    "https://vidsrc.to",
}

// validOrigin accepts a bare http(s) origin: scheme and host, optional port,
// no path beyond "/", no query or fragment.
func validOrigin(fl validator.FieldLevel) bool {
	u, err := url.Parse(fl.Field().String())
	if err != nil || u.Host == "" || u.User != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return (u.Path == "" || u.Path == "/") && u.RawQuery == "" && u.Fragment == ""
}

// envLoader loads environment variables with the prefix "POPCORN_".
// Values containing spaces or commas become lists. It can be mocked in tests.
var envLoader = func(k *koanf.Koanf) error {
	return k.Load(env.Provider(".", env.Opt{
		Prefix: "POPCORN_",
		TransformFunc: func(key, value string) (string, any) {
			key = strings.ToLower(strings.TrimPrefix(key, "POPCORN_"))
			value = strings.TrimSpace(value)

			if value == "" {
				return key, value
			}

			if strings.Contains(value, " ") || strings.Contains(value, ",") {
				parts := strings.FieldsFunc(value, func(r rune) bool {
					return r == ' ' || r == ','
				})
				return key, parts
			}

			return key, value
		},
	}), nil)
}

// defaultLoader loads DEFAULT_APP_CONFIG through the structs provider.
var defaultLoader = func(k *koanf.Koanf) error {
	return k.Load(structs.Provider(DEFAULT_APP_CONFIG, "koanf"), nil)
}

// registerValidation registers the "origin" tag.
var registerValidation = func(v *validator.Validate) error {
	return v.RegisterValidation("origin", validOrigin)
}

// Load applies defaults, then environment overrides, and validates the result.
func Load() (*AppConfig, error) {
	k := koanf.New(".")

	err := defaultLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading default config: %w", err)
	}

	err = envLoader(k)
	if err != nil {
		return nil, fmt.Errorf("error loading env: %w", err)
	}

	var cfg AppConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	err = registerValidation(validate)
	if err != nil {
		return nil, fmt.Errorf("error registering validation: %w", err)
	}

	err = validate.Struct(&cfg)
	if err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	return &cfg, nil
}
