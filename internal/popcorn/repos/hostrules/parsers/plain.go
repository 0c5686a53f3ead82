package parsers

import (
	"bufio"
	"io"
	"strings"
	"time"

	logpkg "github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
)

// ParsePlainList parses a newline-delimited list of hostnames.
// Default is exact; a leading "*.", "." or adblock "||" (with optional
// trailing "^") makes the rule a suffix rule, apex-inclusive.
//
// Lines that carry adblock path or option syntax (anything left over after
// the host, such as "/ads/" or "$third-party") are skipped; those are URL
// patterns, not host rules.
func ParsePlainList(r io.Reader, source string, logger logpkg.Logger, now time.Time) ([]domain.HostRule, error) {
	scanner := bufio.NewScanner(r)

	// both kinds of rule may exist for one name
	seen := make(map[string]struct{})
	out := make([]domain.HostRule, 0, 256)
	logger.Debug(map[string]any{"source": source}, "parse_plain_list_start")

	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := stripLineBOM(scanner.Text())

		if isEmpty, isComment := classifyLine(line); isEmpty || isComment {
			continue
		}
		s := strings.TrimSpace(stripInlineComment(line))
		if strings.ContainsAny(s, "/$") {
			logger.Debug(map[string]any{"line": lineNum, "raw": s}, "skip_url_pattern")
			continue
		}

		kind := ruleKindFromRaw(s)
		name := normalizeHostName(s)
		if !isValidFQDN(name) {
			logger.Debug(map[string]any{"line": lineNum, "raw": s, "name": name}, "skip_invalid_fqdn")
			continue
		}

		seenKey := name + "|" + kind.String()
		if _, ok := seen[seenKey]; ok {
			continue
		}

		rule, err := domain.NewHostRule(name, kind, source, now)
		if err != nil {
			logger.Debug(map[string]any{"line": lineNum, "name": name, "error": err.Error()}, "skip_constructor_error")
			continue
		}
		out = append(out, rule)
		seen[seenKey] = struct{}{}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug(map[string]any{"source": source, "error": err.Error()}, "parse_plain_list_scan_error")
		return nil, err
	}
	logger.Debug(map[string]any{"source": source, "count": len(out)}, "parse_plain_list_done")
	return out, nil
}
