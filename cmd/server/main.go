// Command server starts the Skills Warrior HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpserver "github.com/fairyhunter13/skills-warrior/internal/adapter/httpserver"
	"github.com/fairyhunter13/skills-warrior/internal/adapter/observability"
	"github.com/fairyhunter13/skills-warrior/internal/app"
	"github.com/fairyhunter13/skills-warrior/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", slog.Any("error", err))
		os.Exit(1)
	}
}

// run owns every deferred cleanup so that main exits only after the tracer
// and cache backends are flushed.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus metrics once per process so that /metrics
	// exposes HTTP, analysis and fetch instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	svcs, err := app.NewServices(ctx, cfg)
	if err != nil {
		return fmt.Errorf("wiring failed: %w", err)
	}
	defer func() {
		if err := svcs.Close(); err != nil {
			slog.Error("failed to close cache backend", slog.Any("error", err))
		}
	}()

	if svcs.StartCleanup(ctx, cfg.CacheCleanupInterval) {
		slog.Info("cache cleanup started", slog.String("backend", svcs.Cache.Name), slog.Duration("interval", cfg.CacheCleanupInterval))
	}

	srv := httpserver.NewServer(cfg, svcs.Extract, svcs.Analyze, svcs.Charts, svcs.ReadinessChecks(cfg)...)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var serveErr error
	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer cancel()
	if err := srvHTTP.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("error", err))
	}
	return serveErr
}
