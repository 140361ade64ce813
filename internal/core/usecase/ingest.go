package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

type IngestKnowledgeUseCase struct {
	storage    ports.ObjectStorage
	dispatcher ports.ReindexDispatcher
	allowed    map[string]bool
}

func NewIngestKnowledgeUseCase(
	storage ports.ObjectStorage,
	dispatcher ports.ReindexDispatcher,
	allowedExtensions []string,
) *IngestKnowledgeUseCase {
	allowed := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		allowed[ext] = true
	}
	return &IngestKnowledgeUseCase{
		storage:    storage,
		dispatcher: dispatcher,
		allowed:    allowed,
	}
}

func (uc *IngestKnowledgeUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.IngestReceipt, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(uc.allowed) > 0 && !uc.allowed[ext] {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload knowledge", fmt.Errorf("unsupported file type %q", ext))
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	queued, err := uc.dispatcher.DispatchReindex(ctx, storageKey)
	if err != nil {
		return nil, fmt.Errorf("dispatch reindex: %w", err)
	}

	return &domain.IngestReceipt{
		ID:         id,
		Filename:   filename,
		MimeType:   mimeType,
		StorageKey: storageKey,
		Queued:     queued,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

// InlineReindexer rebuilds the index synchronously, for deployments without a queue.
type InlineReindexer struct {
	builder ports.IndexBuilder
}

func NewInlineReindexer(builder ports.IndexBuilder) *InlineReindexer {
	return &InlineReindexer{builder: builder}
}

func (r *InlineReindexer) DispatchReindex(ctx context.Context, storageKey string) (bool, error) {
	if _, err := r.builder.BuildFromKey(ctx, storageKey); err != nil {
		return false, err
	}
	return false, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "knowledge.txt"
	}
	return base
}
