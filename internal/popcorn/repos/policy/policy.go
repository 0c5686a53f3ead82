// Package policy loads guard policies from YAML, JSON or TOML files.
//
// A policy file extends the built-in lists unless replace_defaults is set:
//
//	replace_defaults: false
//	blocked: ["popads", "/sponsor/"]
//	whitelisted: ["vidsrc.xyz"]
//	redirectors: ["/jump/"]
//	keywords: ["promo"]
//	click_debounce: 150ms
package policy

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"

	"github.com/haukened/popcorn/internal/popcorn/domain"
)

// ErrUnsupportedFormat is returned for files without a .yaml, .yml, .json or .toml extension.
var ErrUnsupportedFormat = errors.New("unsupported policy file format")

// parserFor returns the koanf parser matching the file extension.
func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	case ".toml":
		return toml.Parser(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// Load reads the policy file at path. An empty path yields the default policy.
func Load(path string) (domain.Policy, error) {
	if path == "" {
		return domain.DefaultPolicy(), nil
	}
	parser, err := parserFor(path)
	if err != nil {
		return domain.Policy{}, err
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return domain.Policy{}, fmt.Errorf("failed to load policy file %s: %w", path, err)
	}
	return fromKoanf(k, path)
}

func fromKoanf(k *koanf.Koanf, path string) (domain.Policy, error) {
	var (
		blocked     []string
		whitelisted []string
		redirectors []string
		keywords    []string
	)
	if !k.Bool("replace_defaults") {
		blocked = append(blocked, domain.DefaultBlockedPatterns...)
		whitelisted = append(whitelisted, domain.DefaultWhitelistPatterns...)
		redirectors = append(redirectors, domain.DefaultRedirectors...)
		keywords = append(keywords, domain.DefaultElementKeywords...)
	}
	blocked = append(blocked, k.Strings("blocked")...)
	whitelisted = append(whitelisted, k.Strings("whitelisted")...)
	redirectors = append(redirectors, k.Strings("redirectors")...)
	keywords = append(keywords, k.Strings("keywords")...)

	debounce := domain.DefaultClickDebounce
	if k.Exists("click_debounce") {
		d, err := parseDuration(k.Get("click_debounce"))
		if err != nil {
			return domain.Policy{}, fmt.Errorf("policy file %s: click_debounce: %w", path, err)
		}
		debounce = d
	}

	p := domain.Policy{
		Patterns:      domain.NewPatternSet(blocked, whitelisted),
		ClickDebounce: debounce,
	}
	return p.WithLists(redirectors, keywords), nil
}

// parseDuration accepts Go duration strings or a bare number of milliseconds.
func parseDuration(v any) (time.Duration, error) {
	var d time.Duration
	switch t := v.(type) {
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(t))
		if err != nil {
			return 0, err
		}
		d = parsed
	case int:
		d = time.Duration(t) * time.Millisecond
	case int64:
		d = time.Duration(t) * time.Millisecond
	case float64:
		d = time.Duration(t * float64(time.Millisecond))
	default:
		return 0, fmt.Errorf("unsupported value %v", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", d)
	}
	return d, nil
}
