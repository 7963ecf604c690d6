package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/disaster-event-graph/internal/adapter/http"
	"github.com/couchcryptid/disaster-event-graph/internal/app"
	"github.com/couchcryptid/disaster-event-graph/internal/config"
	"github.com/couchcryptid/disaster-event-graph/internal/observability"
	"github.com/couchcryptid/disaster-event-graph/internal/scheduler"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	a, err := app.New(cfg, logger, metrics)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	sched := scheduler.New(a.Router, cfg.IngestInterval, nil, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, httpadapter.Services{
		Ready:    a.Store,
		Ingester: sched,
		Answerer: a.Router,
		Events:   a.Store,
		Metrics:  metrics,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// Start scheduled ingest.
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil {
			logger.Error("scheduler error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	select {
	case <-schedDone:
	case <-shutdownCtx.Done():
		logger.Warn("ingest cycle still running at shutdown deadline")
	}
	if err := a.Close(); err != nil {
		logger.Error("close error", "error", err)
	}

	logger.Info("shutdown complete")
}
