package guard

import "github.com/haukened/popcorn/internal/popcorn/domain"

// Classifier decides whether a URL or origin is allowed. *matcher.Matcher
// satisfies it.
type Classifier interface {
	Decide(candidate string) domain.Verdict
}

// Sub-guard names used in install reports and logs.
const (
	GuardFetch        = "fetch"
	GuardXHR          = "xhr"
	GuardOpener       = "window.open"
	GuardBeforeUnload = "beforeunload"
	GuardLocation     = "location"
	GuardClick        = "click"
	GuardSentinel     = "dom-sentinel"
	GuardMessage      = "message"
)
