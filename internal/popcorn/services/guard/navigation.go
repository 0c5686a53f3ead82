package guard

import (
	"strings"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
)

// guardedOpener refuses every popup that is not blank. Embedded players
// never get to open their own browsing contexts.
type guardedOpener struct {
	next   page.Opener
	logger log.Logger
}

// NewOpener wraps next. Any URL other than "" or about:blank yields a nil
// context and domain.ErrPopupBlocked.
func NewOpener(next page.Opener, logger log.Logger) page.Opener {
	return &guardedOpener{next: next, logger: logger}
}

func (o *guardedOpener) Open(rawURL, target string) (*page.BrowsingContext, error) {
	u := strings.TrimSpace(rawURL)
	if u != "" && !strings.EqualFold(u, "about:blank") {
		o.logger.Info(map[string]any{"url": rawURL, "target": target}, "blocked popup")
		return nil, domain.ErrPopupBlocked
	}
	return o.next.Open(rawURL, target)
}

// guardedNavigator drops assignments to redirector URLs.
type guardedNavigator struct {
	next        page.Navigator
	redirectors []string
	logger      log.Logger
}

// NewNavigator wraps next so that redirector targets are dropped with
// domain.ErrNavigationBlocked.
func NewNavigator(next page.Navigator, redirectors []string, logger log.Logger) page.Navigator {
	return &guardedNavigator{next: next, redirectors: redirectors, logger: logger}
}

func (n *guardedNavigator) Assign(rawURL string) error {
	if pat, ok := matchRedirector(n.redirectors, rawURL); ok {
		n.logger.Info(map[string]any{"url": rawURL, "match": pat}, "blocked location change")
		return domain.ErrNavigationBlocked
	}
	return n.next.Assign(rawURL)
}

func (n *guardedNavigator) Href() string { return n.next.Href() }

// beforeUnloadListener cancels an unload while the focused element is a link
// to a redirector.
func beforeUnloadListener(w *page.Window, redirectors []string, logger log.Logger) page.Listener {
	return func(e *page.Event) {
		defer func() {
			if r := recover(); r != nil {
				logListenerPanic(logger, GuardBeforeUnload, r)
			}
		}()
		href, ok := w.ResolveHref(w.Document().ActiveElement())
		if !ok {
			return
		}
		if pat, hit := matchRedirector(redirectors, href); hit {
			e.PreventDefault()
			logger.Info(map[string]any{"url": href, "match": pat}, "blocked navigation hijack")
		}
	}
}

func matchRedirector(redirectors []string, raw string) (string, bool) {
	s := strings.ToLower(raw)
	for _, p := range redirectors {
		if strings.Contains(s, p) {
			return p, true
		}
	}
	return "", false
}
