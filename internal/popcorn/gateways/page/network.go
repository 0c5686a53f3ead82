package page

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

var (
	// ErrNotOpened is returned by Send before a successful Open.
	ErrNotOpened = errors.New("xhr: send before open")
	// ErrAborted is returned by Send after Abort.
	ErrAborted = errors.New("xhr: request aborted")
	// ErrUnsupportedTarget is returned by Fetch for targets it cannot turn into a URL.
	ErrUnsupportedTarget = errors.New("fetch: unsupported target")
)

// XHR is the request-object style network primitive: open, configure, send.
type XHR interface {
	Open(method, rawURL string) error
	SetRequestHeader(key, value string)
	Send(ctx context.Context, body io.Reader) (*http.Response, error)
	Abort()
}

// XHRFactory constructs XHR objects.
type XHRFactory interface {
	New() XHR
}

// TargetURL extracts the destination of a fetch-style target: a string,
// *url.URL, url.URL, *http.Request or anything implementing fmt.Stringer.
func TargetURL(target any) (string, error) {
	switch t := target.(type) {
	case string:
		return t, nil
	case *url.URL:
		if t == nil {
			break
		}
		return t.String(), nil
	case url.URL:
		return t.String(), nil
	case *http.Request:
		if t == nil || t.URL == nil {
			break
		}
		return t.URL.String(), nil
	case fmt.Stringer:
		return t.String(), nil
	}
	return "", fmt.Errorf("%w: %T", ErrUnsupportedTarget, target)
}

// newRequest turns a fetch-style target into a request bound to ctx.
func newRequest(ctx context.Context, target any) (*http.Request, error) {
	if r, ok := target.(*http.Request); ok && r != nil {
		return r.WithContext(ctx), nil
	}
	raw, err := TargetURL(target)
	if err != nil {
		return nil, err
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, raw, nil)
}

type xhrFactory struct {
	transport http.RoundTripper
}

// NewXHRFactory returns an XHRFactory whose requests go through transport.
// A nil transport uses http.DefaultTransport.
func NewXHRFactory(transport http.RoundTripper) XHRFactory {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &xhrFactory{transport: transport}
}

func (f *xhrFactory) New() XHR {
	return &httpXHR{transport: f.transport, header: make(http.Header)}
}

type httpXHR struct {
	mu        sync.Mutex
	transport http.RoundTripper
	method    string
	url       string
	header    http.Header
	opened    bool
	aborted   bool
}

func (x *httpXHR) Open(method, rawURL string) error {
	if _, err := url.Parse(rawURL); err != nil {
		return err
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.method = strings.ToUpper(method)
	x.url = rawURL
	x.opened = true
	x.aborted = false
	return nil
}

func (x *httpXHR) SetRequestHeader(key, value string) {
	x.mu.Lock()
	x.header.Add(key, value)
	x.mu.Unlock()
}

func (x *httpXHR) Send(ctx context.Context, body io.Reader) (*http.Response, error) {
	x.mu.Lock()
	if x.aborted {
		x.mu.Unlock()
		return nil, ErrAborted
	}
	if !x.opened {
		x.mu.Unlock()
		return nil, ErrNotOpened
	}
	method, target, header := x.method, x.url, x.header.Clone()
	x.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header = header
	return x.transport.RoundTrip(req)
}

func (x *httpXHR) Abort() {
	x.mu.Lock()
	x.aborted = true
	x.mu.Unlock()
}

// windowTransport resolves the window's fetch primitive on every request so
// clients built before a guard is installed still go through it.
type windowTransport struct {
	w *Window
}

func (t windowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.w.Transport().RoundTrip(req)
}
