package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		IndexPath:        filepath.Join(dir, "index"),
		StoragePath:      filepath.Join(dir, "knowledge"),
		KnowledgeSource:  "knowledge_base.txt",
		UploadExtensions: []string{".txt"},
		ChunkSize:        800,
		LLMProvider:      "ollama",
		EmbedProvider:    "ollama",
		OllamaURL:        "http://127.0.0.1:1",
		OllamaGenModel:   "llama3.1:8b",
		OllamaEmbedModel: "nomic-embed-text",
	}
}

func TestNewWiresInlineReindexWithoutNATS(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	if app.Queue != nil {
		t.Fatalf("queue must be nil when NATS is disabled")
	}
	if app.PipelineUC == nil || app.IngestUC == nil || app.BuildUC == nil {
		t.Fatalf("use cases must be wired: %+v", app)
	}
}

func TestEnsureIndexWithoutSourceLeavesIndexUnloaded(t *testing.T) {
	app, err := New(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer app.Close()

	stats, err := app.EnsureIndex(context.Background())
	if err != nil {
		t.Fatalf("EnsureIndex() error = %v", err)
	}
	if stats.Chunks != 0 {
		t.Fatalf("expected empty stats, got %+v", stats)
	}
	if _, loaded := app.Index.Stats(); loaded {
		t.Fatalf("index must stay unloaded")
	}

	resp := app.PipelineUC.AnswerQuestion(context.Background(), domain.AskRequest{Question: "Q?"})
	if resp.Failure != domain.FailureIndexUnavailable {
		t.Fatalf("expected index_unavailable, got %+v", resp)
	}
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLMProvider = "carrier-pigeon"

	_, err := New(context.Background(), cfg)
	if !errors.Is(err, domain.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}
