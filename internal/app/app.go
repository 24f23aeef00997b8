// Package app is the geoclient application root: the component the
// bootstrap sequence mounts once the HTTP client is configured.
package app

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mesh-intelligence/geoclient/internal/api"
	"github.com/mesh-intelligence/geoclient/internal/bootstrap"
	"github.com/mesh-intelligence/geoclient/internal/httpclient"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// ErrNotMounted is returned by Run before the app has been mounted.
var ErrNotMounted = errors.New("application not mounted")

var _ bootstrap.Mounter = (*App)(nil)

// App holds the mounted settings and the API client built from them.
type App struct {
	http   *httpclient.Client
	logger *slog.Logger

	mu       sync.RWMutex
	mounted  bool
	settings types.Settings
	api      *api.Client
}

// New returns an unmounted App that will call the backend through c.
func New(c *httpclient.Client, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{http: c, logger: logger}
}

// Mount implements bootstrap.Mounter.
func (a *App) Mount(ctx context.Context, settings types.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.mounted {
		return bootstrap.ErrAlreadyMounted
	}
	a.settings = settings
	a.api = api.New(a.http, settings, a.logger)
	a.mounted = true
	a.logger.DebugContext(ctx, "application mounted", "endpoints", len(settings.Map()))
	return nil
}

// Mounted reports whether Mount has succeeded.
func (a *App) Mounted() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.mounted
}

// Settings returns the mounted bundle.
func (a *App) Settings() types.Settings {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.settings
}

// API returns the backend client, or nil before mount.
func (a *App) API() *api.Client {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.api
}

// Run calls fn with the mounted app.
func (a *App) Run(fn func(*App) error) error {
	if !a.Mounted() {
		return ErrNotMounted
	}
	return fn(a)
}
