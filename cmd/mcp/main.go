package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/mcq-rag-assistant/internal/adapters/mcp"
	"github.com/kirillkom/mcq-rag-assistant/internal/bootstrap"
	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/logging"
)

const version = "1.0.0"

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "mcp", cfg.LogLevel))

	if err := run(context.Background(), cfg); err != nil {
		slog.Error("mcp_failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	if _, err := app.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("init knowledge index: %w", err)
	}

	s := mcpadapter.NewTools(app.PipelineUC, app.Index, cfg.RAGTopK).NewServer("mcq-rag-assistant", version)
	if err := server.ServeStdio(s); err != nil {
		return fmt.Errorf("serve stdio: %w", err)
	}
	return nil
}
