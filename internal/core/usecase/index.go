package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

// BuildIndexUseCase turns a knowledge source into a persisted, searchable index.
// Build and Save of one source run as a unit; concurrent builds queue on mu.
type BuildIndexUseCase struct {
	mu sync.Mutex

	extractor ports.TextExtractor
	chunker   ports.Chunker
	index     ports.KnowledgeIndex
	indexDir  string
	notifier  ports.IndexUpdateNotifier
}

func NewBuildIndexUseCase(
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	index ports.KnowledgeIndex,
	indexDir string,
	notifier ports.IndexUpdateNotifier,
) *BuildIndexUseCase {
	return &BuildIndexUseCase{
		extractor: extractor,
		chunker:   chunker,
		index:     index,
		indexDir:  indexDir,
		notifier:  notifier,
	}
}

func (uc *BuildIndexUseCase) BuildFromKey(ctx context.Context, storageKey string) (domain.IndexStats, error) {
	text, err := uc.extractText(ctx, storageKey)
	if err != nil {
		return domain.IndexStats{}, err
	}
	return uc.BuildFromText(ctx, text)
}

func (uc *BuildIndexUseCase) BuildFromText(ctx context.Context, text string) (domain.IndexStats, error) {
	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		slog.Warn("knowledge_source_empty", "index_dir", uc.indexDir)
	}

	stats, err := uc.buildAndSave(ctx, chunks)
	if err != nil {
		return domain.IndexStats{}, err
	}
	uc.notify(ctx, stats)
	return stats, nil
}

func (uc *BuildIndexUseCase) buildAndSave(ctx context.Context, chunks []domain.Chunk) (domain.IndexStats, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	stats, err := uc.index.Build(ctx, chunks)
	if err != nil {
		return domain.IndexStats{}, fmt.Errorf("build knowledge index: %w", err)
	}
	if err := uc.index.Save(uc.indexDir); err != nil {
		return domain.IndexStats{}, fmt.Errorf("save knowledge index: %w", err)
	}
	return stats, nil
}

// LoadOrBuild loads the persisted index, building it from sourceKey only when
// no persisted index exists. Any other load failure is returned as is.
func (uc *BuildIndexUseCase) LoadOrBuild(ctx context.Context, sourceKey string) (domain.IndexStats, error) {
	err := uc.index.Load(uc.indexDir)
	if err == nil {
		stats, _ := uc.index.Stats()
		slog.Info("knowledge_index_loaded", "index_dir", uc.indexDir, "chunks", stats.Chunks)
		return stats, nil
	}
	if !domain.IsKind(err, domain.ErrIndexNotFound) {
		return domain.IndexStats{}, fmt.Errorf("load knowledge index: %w", err)
	}
	if strings.TrimSpace(sourceKey) == "" {
		return domain.IndexStats{}, domain.WrapError(domain.ErrIndexUnavailable, "load or build index", errors.New("no persisted index and no knowledge source configured"))
	}

	slog.Info("knowledge_index_building", "index_dir", uc.indexDir, "source", sourceKey)
	return uc.BuildFromKey(ctx, sourceKey)
}

// Reload swaps in the index most recently persisted by another process.
func (uc *BuildIndexUseCase) Reload(_ context.Context) (domain.IndexStats, error) {
	if err := uc.index.Load(uc.indexDir); err != nil {
		return domain.IndexStats{}, fmt.Errorf("reload knowledge index: %w", err)
	}
	stats, _ := uc.index.Stats()
	return stats, nil
}

func (uc *BuildIndexUseCase) extractText(ctx context.Context, storageKey string) (string, error) {
	text, err := uc.extractor.Extract(ctx, storageKey)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	return text, nil
}

func (uc *BuildIndexUseCase) notify(ctx context.Context, stats domain.IndexStats) {
	if uc.notifier == nil {
		return
	}
	if err := uc.notifier.NotifyIndexUpdated(ctx, stats); err != nil {
		slog.Warn("index_update_notify_failed", "error", err)
	}
}
