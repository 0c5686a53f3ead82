package guard

import (
	"sync"
	"time"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
)

// ClickShield debounces rapid clicks and vets anchor targets. The gate
// holds the timestamp of the last accepted click.
type ClickShield struct {
	win        *page.Window
	classifier Classifier
	debounce   time.Duration
	logger     log.Logger

	mu        sync.Mutex
	lastClick time.Time
	seen      bool
}

// NewClickShield returns a shield for w. Clicks closer than debounce to the
// previous accepted click are cancelled.
func NewClickShield(w *page.Window, classifier Classifier, debounce time.Duration, logger log.Logger) *ClickShield {
	return &ClickShield{
		win:        w,
		classifier: classifier,
		debounce:   debounce,
		logger:     logger,
	}
}

// Handle is the capturing click listener. A classifier failure cancels
// the click.
func (s *ClickShield) Handle(e *page.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.PreventDefault()
			e.StopPropagation()
			logListenerPanic(s.logger, GuardClick, r)
		}
	}()
	if !s.accept(e.TimeStamp) {
		e.PreventDefault()
		e.StopPropagation()
		s.logger.Info(map[string]any{"debounce": s.debounce.String()}, "blocked rapid click")
		return
	}

	href, ok := s.win.ResolveHref(e.Target)
	if !ok {
		return
	}
	v := s.classifier.Decide(href)
	if v.IsBlocked() {
		e.PreventDefault()
		e.StopPropagation()
		s.logger.Info(v.Fields(href), "blocked suspicious link")
	}
}

// accept records at as the last click unless it falls inside the debounce window.
func (s *ClickShield) accept(at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen && at.Sub(s.lastClick) < s.debounce {
		return false
	}
	s.lastClick = at
	s.seen = true
	return true
}
