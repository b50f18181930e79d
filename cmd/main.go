package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/seasonpoints/internal/adapters/http/api"
	"github.com/okian/seasonpoints/internal/adapters/http/browser"
	"github.com/okian/seasonpoints/internal/adapters/http/site"
	"github.com/okian/seasonpoints/internal/adapters/http/swagger"
	"github.com/okian/seasonpoints/internal/adapters/session"
	"github.com/okian/seasonpoints/internal/adapters/storage"
	app "github.com/okian/seasonpoints/internal/app"
	"github.com/okian/seasonpoints/internal/auth"
	"github.com/okian/seasonpoints/internal/config"
	"github.com/okian/seasonpoints/pkg/logger"
	"github.com/okian/seasonpoints/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		// Use stderr for initialization errors since logger isn't available yet
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if err := run(ctx, cfg, loggerInstance); err != nil {
		loggerInstance.Error(ctx, "server failed", logger.Error(err))
		os.Exit(1)
	}
}

// run wires the server and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	backend, err := storage.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Error(ctx, "storage close failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "storage opened", logger.String("backend", backend.Name()))

	mux := newMux(ctx, cfg, backend, log)

	// Start system metrics updater
	go startSystemMetricsUpdater(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr), logger.String("public_url", cfg.PublicURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// newMux builds every route over the given storage backend.
func newMux(ctx context.Context, cfg *config.Config, backend storage.Store, log logger.Logger) *http.ServeMux {
	calc := app.New(
		app.WithLogger(log.Named("calculator")),
		app.WithSlots(cfg.Slots),
		app.WithBaseURL(cfg.PublicURL),
	)

	flow := auth.NewFlow(auth.Settings{
		Endpoint:    cfg.APIEndpoint,
		ClientID:    cfg.ClientID,
		Scope:       cfg.Scope,
		RedirectURL: cfg.PublicURL,
	},
		auth.WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout()}),
		auth.WithLogger(log.Named("auth")),
	)

	browsers := browser.New(backend, session.NewStore([]byte(cfg.SessionSecret), cfg.CookieSecure), cfg.CookieSecure)
	limiter := api.NewClientLimiter(cfg.AuthRatePerSecond, cfg.AuthRateBurst)

	mux := http.NewServeMux()

	// Register API docs under /api-docs
	swagger.Register(ctx, mux)

	// Register business API routes.
	api.NewServer(calc, flow, browsers, limiter).Register(ctx, mux)

	// Register the calculator page at /
	page := site.NewHandler(calc, flow, browsers,
		site.WithLimiter(limiter),
		site.WithLogger(log.Named("site")),
	)
	page.Register(ctx, mux)

	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}
