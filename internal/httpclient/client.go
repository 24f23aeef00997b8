// Package httpclient is the single HTTP client shared by every request the
// geoclient makes to the backend. It owns no global state: default headers
// live in a Defaults value passed to New, per-request transforms are
// registered with Use, and state-changing requests are held back until the
// bootstrap sequence settles the client.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker"

	"github.com/mesh-intelligence/geoclient/internal/logging"
)

// ErrNotConfigured is returned for a state-changing request issued before
// header configuration settled. The request is never sent.
var ErrNotConfigured = errors.New("header configuration has not settled")

// ErrCircuitOpen is returned while the backend circuit breaker is open.
var ErrCircuitOpen = errors.New("backend circuit open")

// errServerStatus marks 5xx responses as breaker failures. Callers still get
// the response.
var errServerStatus = errors.New("server error status")

// DefaultTimeout bounds a request when Options.Timeout is zero.
const DefaultTimeout = 15 * time.Second

// Interceptor transforms a request before it is sent. It runs synchronously
// on the calling goroutine; a returned error fails the request.
type Interceptor func(req *http.Request) error

// Options configures New.
type Options struct {
	// BaseURL resolves relative request URLs.
	BaseURL string
	Timeout time.Duration
	// Defaults is shared by reference; a nil value gets a fresh set.
	Defaults  *Defaults
	Jar       http.CookieJar
	Transport http.RoundTripper
	// BreakerName labels the circuit breaker (default "backend").
	BreakerName string
	Logger      *slog.Logger
}

// Client sends requests to the backend.
type Client struct {
	base     *url.URL
	http     *http.Client
	defaults *Defaults
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger

	mu           sync.RWMutex
	interceptors []Interceptor

	settled atomic.Bool
}

// New creates a Client. The client starts unsettled.
func New(opts Options) (*Client, error) {
	var base *url.URL
	if opts.BaseURL != "" {
		u, err := url.Parse(opts.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("parse base url: %w", err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("base url %q is not absolute", opts.BaseURL)
		}
		base = u
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	defaults := opts.Defaults
	if defaults == nil {
		defaults = NewDefaults()
	}
	name := opts.BreakerName
	if name == "" {
		name = "backend"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Jar:       opts.Jar,
			Transport: opts.Transport,
		},
		defaults: defaults,
		breaker:  newCircuitBreaker(name),
		logger:   logger,
	}, nil
}

// Defaults returns the header set applied to every request.
func (c *Client) Defaults() *Defaults {
	return c.defaults
}

// Use registers an interceptor. Interceptors run in registration order after
// default headers are applied.
func (c *Client) Use(i Interceptor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.interceptors = append(c.interceptors, i)
}

// Settle lifts the hold on state-changing requests. It is called once header
// configuration has either succeeded or been abandoned with a warning.
func (c *Client) Settle() {
	c.settled.Store(true)
}

// Settled reports whether Settle has been called.
func (c *Client) Settled() bool {
	return c.settled.Load()
}

// Resolve returns ref resolved against the base URL. Absolute refs are
// returned unchanged.
func (c *Client) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	if c.base == nil {
		return "", fmt.Errorf("relative url %q without base url", ref)
	}
	return c.base.ResolveReference(u).String(), nil
}

// NewRequest builds a request whose URL is resolved against the base URL.
func (c *Client) NewRequest(ctx context.Context, method, ref string, body io.Reader) (*http.Request, error) {
	target, err := c.Resolve(ref)
	if err != nil {
		return nil, err
	}
	return http.NewRequestWithContext(ctx, method, target, body)
}

// Do sends req. State-changing methods fail with ErrNotConfigured until the
// client is settled. A relative req.URL is resolved against the base URL.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if !IsSafeMethod(req.Method) && !c.Settled() {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, ErrNotConfigured)
	}

	req = req.Clone(ctx)
	if !req.URL.IsAbs() {
		target, err := c.Resolve(req.URL.String())
		if err != nil {
			return nil, err
		}
		u, err := url.Parse(target)
		if err != nil {
			return nil, err
		}
		req.URL = u
		req.Host = u.Host
	}

	c.defaults.apply(req)

	c.mu.RLock()
	interceptors := append([]Interceptor(nil), c.interceptors...)
	c.mu.RUnlock()
	for _, intercept := range interceptors {
		if err := intercept(req); err != nil {
			return nil, fmt.Errorf("intercept %s %s: %w", req.Method, req.URL, err)
		}
	}

	if id := req.Header.Get(HeaderRequestID); id != "" {
		ctx = logging.WithRequestID(ctx, id)
	}
	c.logger.DebugContext(ctx, "sending request", "method", req.Method, "url", req.URL.String())

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, ErrCircuitOpen)
	}
	if errors.Is(err, errServerStatus) {
		err = nil
	}
	if err != nil {
		return nil, err
	}
	resp := result.(*http.Response)
	c.logger.DebugContext(ctx, "received response", "method", req.Method, "url", req.URL.String(), "status", resp.StatusCode)
	return resp, nil
}

// Get issues a GET for ref. GETs are allowed before the client settles.
func (c *Client) Get(ctx context.Context, ref string) (*http.Response, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

// IsSafeMethod reports whether method does not change server state.
func IsSafeMethod(method string) bool {
	switch method {
	case "", http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
