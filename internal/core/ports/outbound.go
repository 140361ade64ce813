package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Chunker splits a knowledge source into ordered chunks.
type Chunker interface {
	Split(text string) []domain.Chunk
}

// KnowledgeIndex is the local vector index over the chunk sequence.
type KnowledgeIndex interface {
	Build(ctx context.Context, chunks []domain.Chunk) (domain.IndexStats, error)
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
	Save(dir string) error
	Load(dir string) error
	Stats() (domain.IndexStats, bool)
}

// WebSearchProvider performs a raw web search. Errors are expected to be
// absorbed by the caller.
type WebSearchProvider interface {
	Search(ctx context.Context, query string, maxResults int) ([]domain.WebResult, error)
}

// TextGenerator completes a prompt. Configured reports whether credentials
// or an endpoint are present; callers must not call Generate otherwise.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Configured() bool
	Model() string
}

// ObjectStorage stores knowledge source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts plain text from a stored knowledge source.
type TextExtractor interface {
	Extract(ctx context.Context, storageKey string) (string, error)
}

// ReindexDispatcher schedules an index rebuild for a stored source.
type ReindexDispatcher interface {
	DispatchReindex(ctx context.Context, storageKey string) (queued bool, err error)
}

// IndexUpdateNotifier announces a freshly persisted index.
type IndexUpdateNotifier interface {
	NotifyIndexUpdated(ctx context.Context, stats domain.IndexStats) error
}

// PipelineObserver receives per-request pipeline outcomes.
type PipelineObserver interface {
	ObservePipeline(outcome domain.FailureKind, localHits, webHits int, duration time.Duration)
}
