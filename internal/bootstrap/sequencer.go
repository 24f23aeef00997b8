// Package bootstrap runs the startup sequence of the geoclient: resolve a
// CSRF token from the settings bundle, the csrftoken cookie, or the CSRF
// endpoint; apply it to the shared HTTP client; then mount the application
// exactly once. No step of the sequence is fatal. The worst case is a mount
// whose mutating requests go out without X-CSRFToken, after a warning.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/geoclient/internal/cookie"
	"github.com/mesh-intelligence/geoclient/internal/httpclient"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// Bootstrap errors.
var (
	ErrAlreadyMounted = errors.New("application already mounted")
	ErrNilMounter     = errors.New("mounter must not be nil")
)

// Mounter is the application root. Mount receives the settings bundle with
// the resolved token back-filled and is called at most once.
type Mounter interface {
	Mount(ctx context.Context, settings types.Settings) error
}

// MounterFunc adapts a function to Mounter.
type MounterFunc func(ctx context.Context, settings types.Settings) error

// Mount implements Mounter.
func (f MounterFunc) Mount(ctx context.Context, settings types.Settings) error {
	return f(ctx, settings)
}

// Sequencer resolves the CSRF token, configures the client and mounts the
// application.
type Sequencer struct {
	client  *httpclient.Client
	cookies types.CookieReader
	fetcher types.CSRFFetcher
	store   types.TokenStore
	logger  *slog.Logger

	mountOnce sync.Once
	authOnce  sync.Once

	mu    sync.Mutex
	token types.CSRFToken
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// WithFetcher replaces the endpoint fetcher.
func WithFetcher(f types.CSRFFetcher) Option {
	return func(s *Sequencer) { s.fetcher = f }
}

// WithAuthStore makes Bootstrap attach the auth-token interceptor backed by
// store.
func WithAuthStore(store types.TokenStore) Option {
	return func(s *Sequencer) { s.store = store }
}

// New creates a Sequencer for client. cookies may be nil, in which case the
// cookie source is skipped. The default fetcher GETs through client.
func New(client *httpclient.Client, cookies types.CookieReader, opts ...Option) *Sequencer {
	s := &Sequencer{
		client:  client,
		cookies: cookies,
		fetcher: EndpointFetcher{Client: client},
		logger:  slog.Default(),
		token:   types.AbsentToken,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Token returns the token resolved by the most recent Bootstrap.
func (s *Sequencer) Token() types.CSRFToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// ResolveCSRFToken returns the first token found, in order, in the settings
// bundle, the csrftoken cookie, and the CSRF endpoint. Later sources are not
// consulted once one yields a value. Failures of any source are logged and
// degrade to the absent token; nothing is returned as an error.
func (s *Sequencer) ResolveCSRFToken(ctx context.Context, settings types.Settings) types.CSRFToken {
	if settings.CSRFToken != "" {
		s.logger.DebugContext(ctx, "csrf token taken from settings")
		return types.CSRFToken{Value: settings.CSRFToken, Source: types.SourceSettings}
	}

	if s.cookies != nil {
		if v, ok := s.cookies.Cookie(cookie.Name); ok && v != "" {
			s.logger.DebugContext(ctx, "csrf token taken from cookie", "cookie", cookie.Name)
			return types.CSRFToken{Value: v, Source: types.SourceCookie}
		}
	}

	if settings.APICSRFURL == "" {
		s.logger.WarnContext(ctx, "csrf token not available and no endpoint to fetch it")
		return types.AbsentToken
	}

	s.logger.InfoContext(ctx, "csrf token not found locally, fetching", "url", settings.APICSRFURL)
	v, err := s.fetch(ctx, settings.APICSRFURL)
	if err != nil {
		s.logger.ErrorContext(ctx, "csrf token fetch failed", "url", settings.APICSRFURL, "error", err)
		return types.AbsentToken
	}
	s.logger.InfoContext(ctx, "csrf token fetched", "url", settings.APICSRFURL)
	return types.CSRFToken{Value: v, Source: types.SourceEndpoint}
}

// fetch calls the fetcher and turns a panic into an error.
func (s *Sequencer) fetch(ctx context.Context, url string) (v string, err error) {
	if s.fetcher == nil {
		return "", errors.New("no csrf fetcher configured")
	}
	defer func() {
		if r := recover(); r != nil {
			v, err = "", fmt.Errorf("csrf fetcher panicked: %v", r)
		}
	}()
	return s.fetcher.FetchCSRFToken(ctx, url)
}

// ConfigureClient applies token as the X-CSRFToken default header and
// settles the client. An absent token leaves the header untouched and logs
// a warning. Setting the same token again is a no-op; a different token
// replaces the previous one. Token always describes the header in effect.
func (s *Sequencer) ConfigureClient(ctx context.Context, token types.CSRFToken) {
	defaults := s.client.Defaults()
	s.mu.Lock()
	if token.Present() {
		if defaults.Get(httpclient.HeaderCSRFToken) != token.Value {
			defaults.Set(httpclient.HeaderCSRFToken, token.Value)
		}
		s.token = token
		s.logger.InfoContext(ctx, "csrf header configured", "source", token.Source)
	} else if s.token.Present() {
		s.logger.WarnContext(ctx, "csrf token not resolved again; keeping the previous header", "source", s.token.Source)
	} else {
		s.token = token
		s.logger.WarnContext(ctx, "csrf token absent; mutating requests may be rejected by the server")
	}
	s.mu.Unlock()

	s.client.Settle()
}

// AttachAuthInterceptor registers the per-request Authorization transform
// backed by store. Only the first call registers.
func (s *Sequencer) AttachAuthInterceptor(store types.TokenStore) {
	s.authOnce.Do(func() {
		s.client.Use(httpclient.AuthInterceptor(store, s.logger))
	})
}

// Bootstrap runs resolve, configure, attach-auth and mount in that order. A
// nil settings bundle is treated as empty. The mounter is called once per
// Sequencer; later calls re-run resolution and configuration (last write
// wins) and return ErrAlreadyMounted. The only other error returned is the
// mounter's own.
func (s *Sequencer) Bootstrap(ctx context.Context, settings *types.Settings, m Mounter) error {
	if m == nil {
		return ErrNilMounter
	}

	var bundle types.Settings
	if settings != nil {
		bundle = *settings
	} else {
		s.logger.WarnContext(ctx, "settings bundle missing, using an empty bundle")
	}

	token := s.ResolveCSRFToken(ctx, bundle)
	s.ConfigureClient(ctx, token)
	if s.store != nil {
		s.AttachAuthInterceptor(s.store)
	}

	mounted := false
	var err error
	s.mountOnce.Do(func() {
		mounted = true
		err = m.Mount(ctx, bundle.WithCSRFToken(token))
	})
	if !mounted {
		return ErrAlreadyMounted
	}
	if err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	return nil
}
