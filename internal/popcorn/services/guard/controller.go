package guard

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
)

// State is the controller's lifecycle state.
type State uint8

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", s)
	}
}

// Options configures a Controller.
type Options struct {
	Window     *page.Window
	Classifier Classifier
	Policy     domain.Policy
	Logger     log.Logger
}

// InstallReport lists the sub-guards attached by one Install.
type InstallReport struct {
	ID       uuid.UUID
	Attached []string
	Skipped  []string
}

// registration pairs a wrapped primitive with the way to put it back.
// Listener registrations have no original or replacement.
type registration struct {
	name        string
	original    any
	replacement any
	current     func() any
	restore     func()
}

// Controller installs and removes every sub-guard on a Window. Only one
// installation may be active at a time.
type Controller struct {
	win        *page.Window
	classifier Classifier
	policy     domain.Policy
	logger     log.Logger
	sentinel   *Sentinel

	mu     sync.Mutex
	state  State
	regs   []registration
	click  *ClickShield
	report InstallReport
}

// New validates opts and returns an inactive Controller.
func New(opts Options) (*Controller, error) {
	if opts.Window == nil {
		return nil, errors.New("guard: window is required")
	}
	if opts.Classifier == nil {
		return nil, errors.New("guard: classifier is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	if opts.Policy.ClickDebounce <= 0 {
		opts.Policy.ClickDebounce = domain.DefaultClickDebounce
	}
	return &Controller{
		win:        opts.Window,
		classifier: opts.Classifier,
		policy:     opts.Policy,
		logger:     opts.Logger,
		sentinel:   NewSentinel(opts.Classifier, opts.Policy.ElementKeywords, opts.Logger),
	}, nil
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Report returns the report of the active installation.
func (c *Controller) Report() InstallReport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.report
}

// Sentinel exposes the DOM sentinel for render-tree filtering.
func (c *Controller) Sentinel() *Sentinel { return c.sentinel }

// Install wraps every primitive and attaches every listener. It fails with
// domain.ErrAlreadyInstalled while active and then changes nothing.
func (c *Controller) Install() (InstallReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Active {
		c.logger.Error(map[string]any{"install_id": c.report.ID.String()}, "guard install rejected")
		return InstallReport{}, domain.ErrAlreadyInstalled
	}

	report := InstallReport{ID: uuid.New()}
	c.regs = c.regs[:0]
	attach := func(r registration) {
		c.regs = append(c.regs, r)
		report.Attached = append(report.Attached, r.name)
	}

	c.installNetwork(attach)
	if err := c.installNavigation(attach, &report); err != nil {
		c.rollback()
		return InstallReport{}, err
	}
	c.installClick(attach)
	c.installSentinel(attach)
	c.installMessages(attach)

	c.state = Active
	c.report = report
	c.logger.Info(map[string]any{
		"install_id": report.ID.String(),
		"attached":   report.Attached,
		"skipped":    report.Skipped,
	}, "guard installed")
	return report, nil
}

// Uninstall restores every original primitive and detaches every listener
// and observer. It is a no-op while inactive.
func (c *Controller) Uninstall() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Active {
		return
	}
	c.rollback()
	c.state = Inactive
	c.logger.Info(map[string]any{"install_id": c.report.ID.String()}, "guard uninstalled")
	c.report = InstallReport{}
}

// rollback restores registrations in reverse order. Callers hold c.mu.
func (c *Controller) rollback() {
	for i := len(c.regs) - 1; i >= 0; i-- {
		r := c.regs[i]
		if r.current != nil && r.current() != r.replacement {
			c.logger.Warn(map[string]any{"guard": r.name}, "primitive was replaced while guard was active")
		}
		r.restore()
	}
	c.regs = nil
	c.click = nil
}

func (c *Controller) installNetwork(attach func(registration)) {
	origFetch := c.win.Transport()
	fetch := NewTransport(origFetch, c.classifier, c.logger)
	c.win.SetTransport(fetch)
	attach(registration{name: GuardFetch, original: origFetch, replacement: fetch,
		current: func() any { return c.win.Transport() },
		restore: func() { c.win.SetTransport(origFetch) }})

	origXHR := c.win.XHRFactory()
	xhr := NewXHRFactory(origXHR, c.classifier, c.logger)
	c.win.SetXHRFactory(xhr)
	attach(registration{name: GuardXHR, original: origXHR, replacement: xhr,
		current: func() any { return c.win.XHRFactory() },
		restore: func() { c.win.SetXHRFactory(origXHR) }})
}

func (c *Controller) installNavigation(attach func(registration), report *InstallReport) error {
	origOpener := c.win.Opener()
	opener := NewOpener(origOpener, c.logger)
	c.win.SetOpener(opener)
	attach(registration{name: GuardOpener, original: origOpener, replacement: opener,
		current: func() any { return c.win.Opener() },
		restore: func() { c.win.SetOpener(origOpener) }})

	events := c.win.Events()
	id := events.AddEventListener(page.EventBeforeUnload, beforeUnloadListener(c.win, c.policy.Redirectors, c.logger), true)
	attach(registration{name: GuardBeforeUnload, restore: func() { events.RemoveEventListener(id) }})

	origNav := c.win.Navigator()
	nav := NewNavigator(origNav, c.policy.Redirectors, c.logger)
	if err := c.win.SetNavigator(nav); err != nil {
		if errors.Is(err, domain.ErrLocationNotConfigurable) {
			report.Skipped = append(report.Skipped, GuardLocation)
			c.logger.Warn(map[string]any{"guard": GuardLocation, "error": err.Error()}, "guard skipped")
			return nil
		}
		return fmt.Errorf("install %s guard: %w", GuardLocation, err)
	}
	attach(registration{name: GuardLocation, original: origNav, replacement: nav,
		current: func() any { return c.win.Navigator() },
		restore: func() {
			if err := c.win.SetNavigator(origNav); err != nil {
				c.logger.Error(map[string]any{"guard": GuardLocation, "error": err.Error()}, "restore failed")
			}
		}})
	return nil
}

func (c *Controller) installClick(attach func(registration)) {
	c.click = NewClickShield(c.win, c.classifier, c.policy.ClickDebounce, c.logger)
	events := c.win.Events()
	id := events.AddEventListener(page.EventClick, c.click.Handle, true)
	attach(registration{name: GuardClick, restore: func() { events.RemoveEventListener(id) }})
}

func (c *Controller) installSentinel(attach func(registration)) {
	doc := c.win.Document()
	id := doc.Observe(doc.Body(), c.sentinel.Observer(doc))
	attach(registration{name: GuardSentinel, restore: func() { doc.Disconnect(id) }})
}

func (c *Controller) installMessages(attach func(registration)) {
	events := c.win.Events()
	id := events.AddEventListener(page.EventMessage, messageListener(c.classifier, c.logger), true)
	attach(registration{name: GuardMessage, restore: func() { events.RemoveEventListener(id) }})
}

// Original returns the primitive captured for name while active.
func (c *Controller) Original(name string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.regs {
		if r.name == name && r.original != nil {
			return r.original, true
		}
	}
	return nil, false
}

// Installed returns the names of the currently wrapped primitives and listeners.
func (c *Controller) Installed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.regs))
	for _, r := range c.regs {
		names = append(names, r.name)
	}
	return names
}
