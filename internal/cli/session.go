package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/geoclient/internal/api"
	"github.com/mesh-intelligence/geoclient/internal/app"
	"github.com/mesh-intelligence/geoclient/internal/bootstrap"
	"github.com/mesh-intelligence/geoclient/internal/config"
	"github.com/mesh-intelligence/geoclient/internal/cookie"
	"github.com/mesh-intelligence/geoclient/internal/httpclient"
	"github.com/mesh-intelligence/geoclient/internal/logging"
	"github.com/mesh-intelligence/geoclient/internal/sqlite"
	"github.com/mesh-intelligence/geoclient/pkg/types"
)

// session is the wiring shared by commands: configuration, local storage,
// the HTTP client and the bootstrap sequence.
type session struct {
	cfg    types.Config
	logger *slog.Logger
	store  *sqlite.Backend
	http   *httpclient.Client
	seq    *bootstrap.Sequencer
	app    *app.App
}

// loadConfig reads configuration for cmd and initialises logging.
func (f *rootFlags) loadConfig(cmd *cobra.Command) (types.Config, *slog.Logger, error) {
	cfg, err := config.Load(config.Options{
		ConfigDirFlag: f.configDir,
		DataDirFlag:   f.dataDir,
		Flags:         cmd.Flags(),
		EnvFiles:      f.envFiles,
	})
	if err != nil {
		return types.Config{}, nil, userError(fmt.Errorf("load config: %w", err))
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return cfg, logger, nil
}

// openStore attaches local storage. The caller must Detach.
func openStore(cfg types.Config) (*sqlite.Backend, error) {
	store := sqlite.NewBackend()
	if err := store.Attach(cfg); err != nil {
		return nil, sysError(fmt.Errorf("attach storage: %w", err))
	}
	return store, nil
}

// openSession builds the full wiring. The caller must close it.
func (f *rootFlags) openSession(cmd *cobra.Command) (*session, error) {
	cfg, logger, err := f.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	jar, err := cookie.NewPersistentJar(store, cfg.Server, logger)
	if err != nil {
		store.Detach()
		return nil, userError(err)
	}
	hc, err := httpclient.New(httpclient.Options{
		BaseURL: cfg.Server,
		Timeout: cfg.Timeout,
		Jar:     jar,
		Logger:  logger,
	})
	if err != nil {
		store.Detach()
		return nil, userError(err)
	}
	hc.Use(httpclient.RequestIDInterceptor())

	cookies := cookie.Chain{cookie.StringReader(cfg.Cookie)}
	if jr, err := cookie.NewJarReader(jar, cfg.Server); err == nil {
		cookies = append(cookies, jr)
	}

	seq := bootstrap.New(hc, cookies,
		bootstrap.WithLogger(logger),
		bootstrap.WithAuthStore(store),
	)

	return &session{
		cfg:    cfg,
		logger: logger,
		store:  store,
		http:   hc,
		seq:    seq,
		app:    app.New(hc, logger),
	}, nil
}

func (s *session) close() {
	if err := s.store.Detach(); err != nil {
		s.logger.Warn("detach storage", "error", err)
	}
}

// bootstrap runs the startup sequence with the configured bundle.
func (s *session) bootstrap(ctx context.Context) error {
	bundle := s.cfg.Settings
	if err := s.seq.Bootstrap(ctx, &bundle, s.app); err != nil {
		return sysError(err)
	}
	return nil
}

// runApp bootstraps a session and runs fn against the mounted app.
func (f *rootFlags) runApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	s, err := f.openSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.bootstrap(ctx); err != nil {
		return err
	}
	return s.app.Run(func(a *app.App) error {
		return classify(fn(ctx, a))
	})
}

// classify tags backend and validation errors with an exit code.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return err
	}
	var se *api.StatusError
	if errors.As(err, &se) {
		if se.StatusCode >= http.StatusInternalServerError {
			return sysError(err)
		}
		return userError(err)
	}
	switch {
	case errors.Is(err, api.ErrFeatureDisabled),
		errors.Is(err, api.ErrNoIDs),
		errors.Is(err, api.ErrNoFiles),
		errors.Is(err, api.ErrInvalidRadius),
		errors.Is(err, api.ErrInvalidID),
		errors.Is(err, api.ErrNoFields):
		return userError(err)
	}
	return sysError(err)
}
