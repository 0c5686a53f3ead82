package hostrules

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/haukened/popcorn/internal/popcorn/common/clock"
	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/repos/hostrules/parsers"
)

type parseFunc func(r io.Reader, source string, logger log.Logger, now time.Time) ([]domain.HostRule, error)

// parserFor picks the hosts-file parser for "hosts" or *.hosts files and
// the plain list parser otherwise.
func parserFor(path string) parseFunc {
	base := strings.ToLower(filepath.Base(path))
	if base == "hosts" || filepath.Ext(base) == ".hosts" {
		return parsers.ParseHostsFile
	}
	return parsers.ParsePlainList
}

// LoadFiles parses every file in paths. The file path is used as each
// rule's source. A file that cannot be opened or read fails the whole load.
func LoadFiles(paths []string, logger log.Logger, now time.Time) ([]domain.HostRule, error) {
	var rules []domain.HostRule
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return nil, fmt.Errorf("open rule file %s: %w", p, err)
		}
		parsed, err := parserFor(p)(f, p, logger, now)
		_ = f.Close()
		if err != nil {
			return nil, fmt.Errorf("parse rule file %s: %w", p, err)
		}
		logger.Info(map[string]any{"file": p, "rules": len(parsed)}, "loaded host rule file")
		rules = append(rules, parsed...)
	}
	return rules, nil
}

// Import loads paths and replaces the repository contents with them. The
// snapshot version is the import time in unix nanoseconds.
func Import(repo Repository, paths []string, logger log.Logger, clk clock.Clock) (int, error) {
	now := clk.Now()
	rules, err := LoadFiles(paths, logger, now)
	if err != nil {
		return 0, err
	}
	if err := repo.UpdateAll(rules, uint64(now.UnixNano()), now.Unix()); err != nil {
		return 0, fmt.Errorf("update host rules: %w", err)
	}
	logger.Info(map[string]any{"files": len(paths), "rules": len(rules)}, "host rules imported")
	return len(rules), nil
}
