// Package app implements the application layer for claimgraph.
package app

import (
	"context"
	"errors"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/claimgraph/internal/adapters/fetcher/filefetch"
	"go.trai.ch/claimgraph/internal/adapters/fetcher/httpfetch"
	"go.trai.ch/claimgraph/internal/adapters/server"
	"go.trai.ch/claimgraph/internal/adapters/telemetry"
	"go.trai.ch/claimgraph/internal/adapters/tui"
	"go.trai.ch/claimgraph/internal/core/domain"
	"go.trai.ch/claimgraph/internal/core/ports"
	"go.trai.ch/claimgraph/internal/engine/levelcache"
	"go.trai.ch/claimgraph/internal/engine/navigator"
	"go.trai.ch/zerr"
)

// configurable is implemented by loggers whose behavior follows the config.
type configurable interface {
	SetLevel(name string) error
	SetJSON(enable bool)
	SetOutput(w io.Writer)
}

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	logger       ports.Logger
	layout       levelcache.Layouter
	fetcher      ports.Fetcher
	configPath   string
	stdout       io.Writer
	teaOptions   []tea.ProgramOption
}

// New creates a new App instance.
func New(loader ports.ConfigLoader, log ports.Logger, layout levelcache.Layouter) *App {
	return &App{
		configLoader: loader,
		logger:       log,
		layout:       layout,
		stdout:       os.Stdout,
	}
}

// WithConfigPath sets the config file or directory passed to the loader.
func (a *App) WithConfigPath(path string) *App {
	a.configPath = path
	return a
}

// WithOutput sets where command results are written.
func (a *App) WithOutput(w io.Writer) *App {
	a.stdout = w
	return a
}

// WithFetcher replaces the configured backend.
// This is primarily used for testing.
func (a *App) WithFetcher(f ports.Fetcher) *App {
	a.fetcher = f
	return a
}

// WithTeaOptions adds bubbletea program options to the App.
// This is primarily used for testing to disable input/output.
func (a *App) WithTeaOptions(opts ...tea.ProgramOption) *App {
	a.teaOptions = append(a.teaOptions, opts...)
	return a
}

// loadConfig reads the configuration and applies its log settings. A
// non-empty path takes precedence over the one set with WithConfigPath.
func (a *App) loadConfig(path string) (*domain.Config, error) {
	if path == "" {
		path = a.configPath
	}
	cfg, err := a.configLoader.Load(path)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}
	if l, ok := a.logger.(configurable); ok {
		if err := l.SetLevel(cfg.Log.Level); err != nil {
			return nil, err
		}
		l.SetJSON(cfg.Log.JSON)
	}
	return cfg, nil
}

// newFetcher builds the backend selected by cfg.
func (a *App) newFetcher(cfg *domain.Config) ports.Fetcher {
	if a.fetcher != nil {
		return a.fetcher
	}
	if cfg.Backend.Kind == domain.BackendFile {
		return filefetch.New(cfg.Backend.FixturesDir)
	}
	return httpfetch.New(cfg.Backend.BaseURL, cfg.Backend.Timeout)
}

// session is one running navigator with its cache and tracer.
type session struct {
	nav      *navigator.Navigator
	cache    *levelcache.Cache
	shutdown telemetry.ShutdownFunc
}

func (a *App) newSession(cfg *domain.Config, processors ...sdktrace.SpanProcessor) (*session, error) {
	tracer, shutdown, err := telemetry.New(cfg.Telemetry.Kind, a.logger, processors...)
	if err != nil {
		return nil, err
	}

	cache, err := levelcache.New(a.newFetcher(cfg), a.layout, tracer, a.logger, levelcache.Options{
		Layout:      cfg.Layout,
		StrictEdges: cfg.Backend.StrictEdges,
	})
	if err != nil {
		_ = shutdown(context.Background())
		return nil, err
	}

	nav := navigator.New(cache, a.logger, navigator.Options{
		PrefetchAncestors: cfg.Navigation.PrefetchAncestors,
	})
	return &session{nav: nav, cache: cache, shutdown: shutdown}, nil
}

func (s *session) Close(ctx context.Context) error {
	return errors.Join(s.cache.Close(), s.shutdown(context.WithoutCancel(ctx)))
}

// ExploreOptions configuration for the Explore method.
type ExploreOptions struct {
	ConfigPath string
	// Path is the location opened first, e.g. /analyze/{video}.
	Path string
}

// Explore opens the terminal explorer at opts.Path.
func (a *App) Explore(ctx context.Context, opts ExploreOptions) (err error) {
	cfg, err := a.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	relay := &tui.Relay{}
	sess, err := a.newSession(cfg, telemetry.NewTUIBridge(relay))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sess.Close(ctx))
	}()

	updates, unsubscribe := sess.nav.Subscribe()
	defer unsubscribe()

	if _, err := sess.nav.NavigatePath(ctx, opts.Path); err != nil {
		return err
	}

	// Log lines would corrupt the alternate screen; failures are shown in the UI.
	if l, ok := a.logger.(configurable); ok {
		l.SetOutput(io.Discard)
		defer l.SetOutput(os.Stderr)
	}

	model := tui.NewModel(ctx, sess.nav, updates)
	teaOpts := append([]tea.ProgramOption{tea.WithContext(ctx)}, a.teaOptions...)
	program := tea.NewProgram(model, teaOpts...)
	relay.Attach(program)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return zerr.Wrap(err, "explorer failed")
	}
	return nil
}

// ServeOptions configuration for the Serve method.
type ServeOptions struct {
	ConfigPath string
	// Addr overrides the configured listen address.
	Addr string
	// Path is navigated to before the server starts, when set.
	Path string
}

// Serve runs the HTTP API until ctx is done.
func (a *App) Serve(ctx context.Context, opts ServeOptions) (err error) {
	cfg, err := a.loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	sess, err := a.newSession(cfg)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, sess.Close(ctx))
	}()

	if opts.Path != "" {
		if _, err := sess.nav.NavigatePath(ctx, opts.Path); err != nil {
			return err
		}
	}

	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	return server.New(sess.nav, a.logger).Run(ctx, addr)
}
