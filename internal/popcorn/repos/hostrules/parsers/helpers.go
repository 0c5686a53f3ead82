package parsers

import (
	"strings"
	"unicode"

	"github.com/haukened/popcorn/internal/popcorn/common/utils"
	"github.com/haukened/popcorn/internal/popcorn/domain"
)

// ruleKindFromRaw decides the rule kind from the raw token.
// "*.", "." and the adblock "||" anchor mark a suffix rule.
func ruleKindFromRaw(raw string) domain.HostRuleKind {
	if strings.HasPrefix(raw, "*.") || strings.HasPrefix(raw, ".") || strings.HasPrefix(raw, "||") {
		return domain.HostRuleSuffix
	}
	return domain.HostRuleExact
}

// isValidFQDN checks that name:
//   - is at most 255 characters
//   - has at least two labels
//   - has labels of 1 to 63 characters
//   - starts with a letter or digit
func isValidFQDN(name string) bool {
	if len(name) > 255 {
		return false
	}
	labels := strings.Split(name, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if len(label) > 63 || len(label) == 0 {
			return false
		}
		if strings.ContainsAny(label, "*/:@ \t") {
			return false
		}
	}
	first := []rune(labels[0])
	return isAlphaNumeric(first[0])
}

// normalizeHostName strips suffix markers and the adblock "^" terminator and
// returns the canonical host.
func normalizeHostName(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "||")
	name = strings.TrimPrefix(name, "*.")
	name = strings.TrimPrefix(name, ".")
	name = strings.TrimSuffix(name, "^")
	return utils.CanonicalHost(name)
}

func stripLineBOM(line string) string {
	return strings.TrimPrefix(line, "\uFEFF")
}

// classifyLine reports whether line is blank or a whole-line comment.
// Both '#' and the adblock '!' start a comment.
func classifyLine(line string) (isEmpty, isComment bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return true, false
	}
	return false, strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "!")
}

func stripInlineComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

func isAlphaNumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
