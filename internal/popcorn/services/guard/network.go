package guard

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/haukened/popcorn/internal/popcorn/common/log"
	"github.com/haukened/popcorn/internal/popcorn/domain"
	"github.com/haukened/popcorn/internal/popcorn/gateways/page"
)

// guardedTransport vets every request before handing it to next.
type guardedTransport struct {
	next       http.RoundTripper
	classifier Classifier
	logger     log.Logger
}

// NewTransport wraps next so that blocked destinations fail with a
// *domain.BlockedRequestError and never reach next.
func NewTransport(next http.RoundTripper, classifier Classifier, logger log.Logger) http.RoundTripper {
	return &guardedTransport{next: next, classifier: classifier, logger: logger}
}

func (t *guardedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	raw := req.URL.String()
	if err := vet(t.classifier, t.logger, GuardFetch, raw); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}
	return t.next.RoundTrip(req)
}

// vet classifies raw for primitive and returns a BlockedRequestError when blocked.
func vet(c Classifier, logger log.Logger, primitive, raw string) error {
	v := c.Decide(raw)
	fields := v.Fields(raw)
	fields["primitive"] = primitive
	if v.IsBlocked() {
		logger.Info(fields, "blocked request")
		return &domain.BlockedRequestError{URL: raw, Primitive: primitive, Verdict: v}
	}
	logger.Debug(fields, "allowed request")
	return nil
}

type guardedXHRFactory struct {
	next       page.XHRFactory
	classifier Classifier
	logger     log.Logger
}

// NewXHRFactory wraps next so that XHR objects refuse to open blocked URLs.
// A refused Open returns the error and leaves the object blocked: Send then
// fails with the same error without touching the network.
func NewXHRFactory(next page.XHRFactory, classifier Classifier, logger log.Logger) page.XHRFactory {
	return &guardedXHRFactory{next: next, classifier: classifier, logger: logger}
}

func (f *guardedXHRFactory) New() page.XHR {
	return &guardedXHR{inner: f.next.New(), classifier: f.classifier, logger: f.logger}
}

type guardedXHR struct {
	inner      page.XHR
	classifier Classifier
	logger     log.Logger

	mu      sync.Mutex
	blocked error
}

func (x *guardedXHR) Open(method, rawURL string) error {
	if err := vet(x.classifier, x.logger, GuardXHR, rawURL); err != nil {
		x.mu.Lock()
		x.blocked = err
		x.mu.Unlock()
		return err
	}
	x.mu.Lock()
	x.blocked = nil
	x.mu.Unlock()
	return x.inner.Open(method, rawURL)
}

func (x *guardedXHR) SetRequestHeader(key, value string) { x.inner.SetRequestHeader(key, value) }

func (x *guardedXHR) Send(ctx context.Context, body io.Reader) (*http.Response, error) {
	x.mu.Lock()
	err := x.blocked
	x.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return x.inner.Send(ctx, body)
}

func (x *guardedXHR) Abort() { x.inner.Abort() }
