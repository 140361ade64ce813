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

	httpadapter "github.com/kirillkom/mcq-rag-assistant/internal/adapters/http"
	"github.com/kirillkom/mcq-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/logging"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/metrics"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLogger("api", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg)
	stop()
	if err != nil {
		slog.Error("api_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.WithMetrics(httpMetrics))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if _, err := app.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("init knowledge index: %w", err)
	}

	if app.Queue != nil {
		go func() {
			err := app.Queue.SubscribeIndexUpdated(ctx, func(handlerCtx context.Context, stats domain.IndexStats) error {
				reloaded, err := app.BuildUC.Reload(handlerCtx)
				if err != nil {
					return err
				}
				slog.Info("knowledge_index_reloaded", "chunks", reloaded.Chunks, "announced_chunks", stats.Chunks)
				return nil
			})
			if err != nil {
				slog.Error("index_updated_subscribe_failed", "error", err)
			}
		}()
	}

	router := httpadapter.NewRouter(cfg, app.PipelineUC, app.Index, app.IngestUC).
		WithMetrics(httpMetrics).
		Handler()
	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      cfg.APIRequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("api_listening", "port", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http: %w", err)
	}
	return nil
}
