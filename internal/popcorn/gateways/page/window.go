// Package page models the hosting page the embed guard protects: a Window
// owning the network, popup and navigation primitives plus an event target
// and an HTML document. Application code routes every outbound call and
// navigation through the Window, so a guard can wrap them by swapping the
// primitives in place.
package page

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/haukened/popcorn/internal/popcorn/common/clock"
	"github.com/haukened/popcorn/internal/popcorn/common/utils"
	"github.com/haukened/popcorn/internal/popcorn/domain"
)

// Options configures a Window. Nil primitives get defaults.
type Options struct {
	// Origin is the page origin; the initial location is Origin + "/".
	Origin    string
	Transport http.RoundTripper
	XHR       XHRFactory
	Opener    Opener
	Navigator Navigator
	Document  *Document
	Clock     clock.Clock
	// LocationLocked marks the location property as non-configurable, as
	// some engines do. SetNavigator then fails.
	LocationLocked bool
}

// Window owns the swappable primitives. All accessors are safe for
// concurrent use.
type Window struct {
	origin string
	clock  clock.Clock
	events *EventTarget
	doc    *Document

	mu             sync.RWMutex
	transport      http.RoundTripper
	xhr            XHRFactory
	opener         Opener
	navigator      Navigator
	locationLocked bool
}

// NewWindow builds a Window for opts.Origin.
func NewWindow(opts Options) (*Window, error) {
	origin, err := utils.NormalizeOrigin(opts.Origin)
	if err != nil {
		return nil, err
	}
	w := &Window{
		origin:         origin,
		clock:          opts.Clock,
		events:         NewEventTarget(),
		doc:            opts.Document,
		transport:      opts.Transport,
		xhr:            opts.XHR,
		opener:         opts.Opener,
		navigator:      opts.Navigator,
		locationLocked: opts.LocationLocked,
	}
	if w.clock == nil {
		w.clock = clock.RealClock{}
	}
	if w.doc == nil {
		w.doc = NewDocument()
	}
	if w.transport == nil {
		w.transport = http.DefaultTransport
	}
	if w.xhr == nil {
		w.xhr = NewXHRFactory(nil)
	}
	if w.opener == nil {
		w.opener = NewOpener()
	}
	if w.navigator == nil {
		w.navigator = &historyNavigator{w: w, href: origin + "/"}
	}
	return w, nil
}

func (w *Window) Origin() string       { return w.origin }
func (w *Window) Clock() clock.Clock   { return w.clock }
func (w *Window) Events() *EventTarget { return w.events }
func (w *Window) Document() *Document  { return w.doc }

// Transport returns the current fetch-style primitive.
func (w *Window) Transport() http.RoundTripper {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.transport
}

// SetTransport replaces the fetch-style primitive.
func (w *Window) SetTransport(rt http.RoundTripper) {
	w.mu.Lock()
	w.transport = rt
	w.mu.Unlock()
}

// XHRFactory returns the current XHR-style primitive.
func (w *Window) XHRFactory() XHRFactory {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.xhr
}

// SetXHRFactory replaces the XHR-style primitive.
func (w *Window) SetXHRFactory(f XHRFactory) {
	w.mu.Lock()
	w.xhr = f
	w.mu.Unlock()
}

// Opener returns the current popup primitive.
func (w *Window) Opener() Opener {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.opener
}

// SetOpener replaces the popup primitive.
func (w *Window) SetOpener(o Opener) {
	w.mu.Lock()
	w.opener = o
	w.mu.Unlock()
}

// Navigator returns the current location primitive.
func (w *Window) Navigator() Navigator {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.navigator
}

// LocationConfigurable reports whether SetNavigator can succeed.
func (w *Window) LocationConfigurable() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return !w.locationLocked
}

// SetNavigator replaces the location primitive. It fails with
// domain.ErrLocationNotConfigurable when the location is locked.
func (w *Window) SetNavigator(n Navigator) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.locationLocked {
		return domain.ErrLocationNotConfigurable
	}
	w.navigator = n
	return nil
}

// HTTPClient returns a client whose requests go through the window's
// fetch primitive as it is at request time.
func (w *Window) HTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: windowTransport{w: w}, Timeout: timeout}
}

// Fetch issues a GET for target (see TargetURL) through the fetch primitive.
// A *http.Request target is sent as is.
func (w *Window) Fetch(ctx context.Context, target any) (*http.Response, error) {
	req, err := newRequest(ctx, target)
	if err != nil {
		return nil, err
	}
	return w.Transport().RoundTrip(req)
}

// NewXHR creates a request object from the XHR primitive.
func (w *Window) NewXHR() XHR { return w.XHRFactory().New() }

// Open opens a new browsing context through the popup primitive.
func (w *Window) Open(rawURL, target string) (*BrowsingContext, error) {
	return w.Opener().Open(rawURL, target)
}

// Assign navigates through the location primitive.
func (w *Window) Assign(rawURL string) error { return w.Navigator().Assign(rawURL) }

// Href returns the current location.
func (w *Window) Href() string { return w.Navigator().Href() }

// Click dispatches a click on target. If no listener cancels it and target
// is an anchor with an href, the link is followed: through the popup
// primitive for target="_blank", through the location primitive otherwise.
func (w *Window) Click(target *html.Node) (*Event, error) {
	ev := &Event{Type: EventClick, Target: target, TimeStamp: w.clock.Now()}
	if !w.events.Dispatch(ev) {
		return ev, nil
	}
	if !IsElement(target, atom.A) {
		return ev, nil
	}
	href, ok := Attr(target, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return ev, nil
	}
	abs, err := resolveRef(w.Href(), href)
	if err != nil {
		return ev, err
	}
	if t, _ := Attr(target, "target"); strings.EqualFold(t, "_blank") {
		_, err = w.Open(abs, t)
		return ev, err
	}
	return ev, w.Assign(abs)
}

// PostMessage delivers a cross-frame message from origin. The returned event
// shows whether a listener stopped it.
func (w *Window) PostMessage(origin string, data any) *Event {
	ev := &Event{Type: EventMessage, Origin: origin, Data: data, TimeStamp: w.clock.Now()}
	w.events.Dispatch(ev)
	return ev
}

// ResolveHref returns the absolute href of an anchor against the current
// location. It reports false for non-anchors and anchors without an href.
func (w *Window) ResolveHref(n *html.Node) (string, bool) {
	if !IsElement(n, atom.A) {
		return "", false
	}
	href, ok := Attr(n, "href")
	if !ok || strings.TrimSpace(href) == "" {
		return "", false
	}
	abs, err := resolveRef(w.Href(), href)
	if err != nil {
		return "", false
	}
	return abs, true
}

func resolveRef(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := b.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return r.String(), nil
}
