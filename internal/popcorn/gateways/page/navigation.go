package page

import (
	"errors"
	"sync"
)

// ErrNavigationCancelled is returned when a beforeunload listener cancels a navigation.
var ErrNavigationCancelled = errors.New("navigation cancelled by beforeunload")

// BrowsingContext is a window opened by an Opener.
type BrowsingContext struct {
	URL    string
	Target string
}

// Opener opens new browsing contexts.
type Opener interface {
	Open(rawURL, target string) (*BrowsingContext, error)
}

// Navigator changes the page's location.
type Navigator interface {
	Assign(rawURL string) error
	Href() string
}

// contextOpener keeps every context it opens.
type contextOpener struct {
	mu       sync.Mutex
	contexts []*BrowsingContext
}

// NewOpener returns an Opener that records the contexts it opens.
func NewOpener() Opener { return &contextOpener{} }

func (o *contextOpener) Open(rawURL, target string) (*BrowsingContext, error) {
	if target == "" {
		target = "_blank"
	}
	bc := &BrowsingContext{URL: rawURL, Target: target}
	o.mu.Lock()
	o.contexts = append(o.contexts, bc)
	o.mu.Unlock()
	return bc, nil
}

// Contexts returns the contexts opened so far.
func (o *contextOpener) Contexts() []*BrowsingContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*BrowsingContext(nil), o.contexts...)
}

// historyNavigator dispatches beforeunload on the window, then records the
// new location. Relative targets resolve against the current location.
type historyNavigator struct {
	w       *Window
	mu      sync.Mutex
	href    string
	history []string
}

func (n *historyNavigator) Assign(rawURL string) error {
	n.mu.Lock()
	base := n.href
	n.mu.Unlock()

	target, err := resolveRef(base, rawURL)
	if err != nil {
		return err
	}
	ev := &Event{Type: EventBeforeUnload, URL: target, TimeStamp: n.w.clock.Now()}
	if !n.w.Events().Dispatch(ev) {
		return ErrNavigationCancelled
	}

	n.mu.Lock()
	n.history = append(n.history, n.href)
	n.href = target
	n.mu.Unlock()
	return nil
}

func (n *historyNavigator) Href() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.href
}

// History returns previously visited locations, oldest first.
func (n *historyNavigator) History() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.history...)
}
