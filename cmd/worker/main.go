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

	"github.com/joho/godotenv"

	"github.com/kirillkom/mcq-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/logging"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/metrics"
)

const buildTimeout = 10 * time.Minute

var errNATSDisabled = errors.New("worker requires NATS_ENABLED=true")

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("worker_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if !cfg.NATSEnabled {
		return errNATSDisabled
	}

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("worker_metrics_server_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	err = app.Queue.SubscribeReindex(ctx, func(handlerCtx context.Context, storageKey string, requestedAt time.Time) error {
		buildCtx, cancel := context.WithTimeout(handlerCtx, buildTimeout)
		defer cancel()

		start := time.Now()
		if !requestedAt.IsZero() {
			workerMetrics.ObserveQueueLag(start.Sub(requestedAt))
		}
		workerMetrics.StartBuild()
		stats, err := app.BuildUC.BuildFromKey(buildCtx, storageKey)
		workerMetrics.FinishBuild(stats, time.Since(start), err)
		if err != nil {
			return err
		}
		slog.Info("knowledge_index_rebuilt",
			"storage_key", storageKey,
			"chunks", stats.Chunks,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil
	})
	if err != nil {
		return fmt.Errorf("subscribe reindex: %w", err)
	}
	return nil
}
