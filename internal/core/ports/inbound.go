package ports

import (
	"context"
	"io"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for the answering pipeline.
type QuestionAnswerer interface {
	AnswerQuestion(ctx context.Context, req domain.AskRequest) *domain.Response
}

// KnowledgeSearcher is the inbound contract for raw local retrieval.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
	Stats() (domain.IndexStats, bool)
}

// KnowledgeIngestor stores a new knowledge source and schedules reindexing.
type KnowledgeIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.IngestReceipt, error)
}

// IndexBuilder rebuilds the knowledge index from a stored source.
type IndexBuilder interface {
	BuildFromKey(ctx context.Context, storageKey string) (domain.IndexStats, error)
}
