// Package commands implements the expensectl subcommands. Each command
// builds an App from the environment, applies the console's route guard
// and drives one of the views.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/benvon/expense-console/internal/apiclient"
	"github.com/benvon/expense-console/internal/config"
	"github.com/benvon/expense-console/internal/logger"
	"github.com/benvon/expense-console/internal/services/backend"
	"github.com/benvon/expense-console/internal/session"
	"github.com/benvon/expense-console/internal/storage"
	"github.com/benvon/expense-console/internal/telemetry"
	"github.com/benvon/expense-console/internal/views"
	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

// ServiceName is the tracing service name of the CLI
const ServiceName = "expensectl"

var (
	errNotLoggedIn     = errors.New("not logged in; run 'expensectl login' first")
	errAlreadyLoggedIn = errors.New("already logged in; run 'expensectl logout' first")
)

// Options are the persistent flags shared by every command
type Options struct {
	Debug  bool
	JSON   bool
	APIURL string
}

// App holds the per-invocation wiring
type App struct {
	cfg      *config.Config
	opts     *Options
	logger   *zap.Logger
	store    storage.Store
	services *backend.Services
	session  *session.Manager
	router   *views.Router
	theme    *views.Theme
	tp       *sdktrace.TracerProvider
	route    string
	out      io.Writer
}

func newApp(ctx context.Context, opts *Options, out io.Writer) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.APIURL != "" {
		cfg.APIURL = opts.APIURL
	}

	zapLogger, err := logger.NewCLILogger(cfg.DebugMode || opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}
	app := &App{cfg: cfg, opts: opts, logger: zapLogger, out: out}

	if cfg.OTELEnabled && cfg.OTELEndpoint != "" {
		tp, err := telemetry.InitTracer(ctx, ServiceName, cfg.OTELEndpoint)
		if err != nil {
			zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
		} else {
			app.tp = tp
		}
	}

	app.store, err = storage.Open(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}
	limiterStore, err := storage.LimiterStore(app.store, ServiceName)
	if err != nil {
		app.Close()
		return nil, err
	}

	client, err := apiclient.New(cfg.APIURL,
		apiclient.WithLogger(zapLogger),
		apiclient.WithTimeout(time.Duration(cfg.APITimeoutSeconds)*time.Second),
		apiclient.WithRateLimit(cfg.APIRateLimit, limiterStore),
		apiclient.WithTokenSource(apiclient.TokenFunc(func() string {
			return app.session.Token()
		})),
	)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("create API client: %w", err)
	}

	zapLogger.Debug("api_client_ready",
		zap.String("base_url", client.BaseURL()),
		zap.String("store", cfg.Store),
	)
	app.services = backend.New(client, zapLogger)
	app.session = session.New(app.store, app.services.Auth, session.NavigatorFunc(app.navigate), zapLogger)
	app.router = views.NewRouter(app.session)
	app.theme = views.NewTheme(app.store)

	result, err := app.session.Restore(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	zapLogger.Debug("session_restored", zap.String("status", result.Status.String()))
	return app, nil
}

func (a *App) navigate(route string) {
	a.route = route
	a.logger.Debug("navigated", zap.String("route", route))
}

// guard applies the route guard for the view a command opens
func (a *App) guard(route string) error {
	switch resolved := a.router.Resolve(route); {
	case resolved == route:
		a.navigate(route)
		return nil
	case resolved == views.RouteLogin:
		return errNotLoggedIn
	case resolved == views.RouteDashboard:
		return errAlreadyLoggedIn
	default:
		return fmt.Errorf("unknown view %s", route)
	}
}

// Close releases the store and flushes telemetry and logs
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Debug("failed_to_close_store", zap.Error(err))
		}
	}
	if a.tp != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(ctx, a.tp); err != nil {
			a.logger.Debug("failed_to_shutdown_otel_tracer", zap.Error(err))
		}
	}
	_ = logger.Sync(a.logger)
}

// userError shows the view's message while keeping the cause for errors.Is
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

// viewError prefers the page alert over the technical error text
func (a *App) viewError(alert string, err error) error {
	if err == nil {
		return nil
	}
	a.logger.Debug("command_failed", zap.String("error", logger.SanitizeError(err)))
	if alert == "" {
		alert = views.Message(err)
	}
	return &userError{msg: alert, err: err}
}

type runFunc func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error

// withApp builds the App, guards route when set, and runs fn
func withApp(opts *Options, route string, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		app, err := newApp(ctx, opts, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer app.Close()

		if route != "" {
			if err := app.guard(route); err != nil {
				return err
			}
		}
		return fn(ctx, app, cmd, args)
	}
}
