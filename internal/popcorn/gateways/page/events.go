package page

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// Event types dispatched on a Window.
const (
	EventClick        = "click"
	EventMessage      = "message"
	EventBeforeUnload = "beforeunload"
)

// Event is a dispatched event. Listeners may cancel its default action or
// stop it from reaching later listeners.
type Event struct {
	Type      string
	Target    *html.Node
	TimeStamp time.Time

	// message events
	Origin string
	Data   any

	// beforeunload events
	URL string

	defaultPrevented   bool
	propagationStopped bool
	immediateStopped   bool
}

// PreventDefault cancels the event's default action.
func (e *Event) PreventDefault() { e.defaultPrevented = true }

// StopPropagation keeps the event from reaching the next phase. Remaining
// listeners of the current phase still run.
func (e *Event) StopPropagation() { e.propagationStopped = true }

// StopImmediatePropagation also skips the remaining listeners of the current phase.
func (e *Event) StopImmediatePropagation() {
	e.propagationStopped = true
	e.immediateStopped = true
}

func (e *Event) DefaultPrevented() bool   { return e.defaultPrevented }
func (e *Event) PropagationStopped() bool { return e.propagationStopped }

// Listener handles a dispatched event.
type Listener func(e *Event)

type listenerEntry struct {
	id      uuid.UUID
	typ     string
	capture bool
	fn      Listener
}

// EventTarget dispatches events to listeners registered for their type.
// Capture listeners run first in registration order, then bubble listeners.
type EventTarget struct {
	mu        sync.RWMutex
	listeners []listenerEntry
}

// NewEventTarget returns an EventTarget with no listeners.
func NewEventTarget() *EventTarget { return &EventTarget{} }

// AddEventListener registers fn and returns a handle for RemoveEventListener.
func (t *EventTarget) AddEventListener(typ string, fn Listener, capture bool) uuid.UUID {
	id := uuid.New()
	t.mu.Lock()
	t.listeners = append(t.listeners, listenerEntry{id: id, typ: typ, capture: capture, fn: fn})
	t.mu.Unlock()
	return id
}

// RemoveEventListener unregisters the listener with handle id. It reports
// whether a listener was removed.
func (t *EventTarget) RemoveEventListener(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, l := range t.listeners {
		if l.id == id {
			t.listeners = append(t.listeners[:i:i], t.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// ListenerCount returns the number of listeners registered for typ.
func (t *EventTarget) ListenerCount(typ string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n := 0
	for _, l := range t.listeners {
		if l.typ == typ {
			n++
		}
	}
	return n
}

// Dispatch delivers e and reports whether its default action should run.
// Listeners added or removed during dispatch take effect on the next event.
func (t *EventTarget) Dispatch(e *Event) bool {
	t.mu.RLock()
	snapshot := make([]listenerEntry, 0, len(t.listeners))
	for _, l := range t.listeners {
		if l.typ == e.Type {
			snapshot = append(snapshot, l)
		}
	}
	t.mu.RUnlock()

	for _, phase := range []bool{true, false} {
		if e.propagationStopped {
			break
		}
		for _, l := range snapshot {
			if l.capture != phase {
				continue
			}
			l.fn(e)
			if e.immediateStopped {
				break
			}
		}
	}
	return !e.defaultPrevented
}
