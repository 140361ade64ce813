package flatindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

const defaultEmbedBatch = 32

// buildID is written into both persisted files; a pair with different ids
// came from different builds.
type snapshot struct {
	buildID string
	index   *Index
	chunks  []domain.Chunk
	stats   domain.IndexStats
}

// Store owns the chunk sequence and its vectors. Readers always see one
// complete snapshot; Build and Load replace it atomically and are serialized.
type Store struct {
	embedder   ports.Embedder
	embedBatch int

	buildMu sync.Mutex
	current atomic.Pointer[snapshot]
}

type Options struct {
	EmbedBatchSize int
}

func NewStore(embedder ports.Embedder, opts Options) *Store {
	batch := opts.EmbedBatchSize
	if batch <= 0 {
		batch = defaultEmbedBatch
	}
	return &Store{
		embedder:   embedder,
		embedBatch: batch,
	}
}

func (s *Store) Build(ctx context.Context, chunks []domain.Chunk) (domain.IndexStats, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	vectors, err := s.embedChunks(ctx, chunks)
	if err != nil {
		return domain.IndexStats{}, err
	}

	ix := NewIndex(0)
	ids := make([]int, len(chunks))
	for i := range chunks {
		ids[i] = i
	}
	if err := ix.Add(ids, vectors); err != nil {
		return domain.IndexStats{}, fmt.Errorf("build flat index: %w", err)
	}

	stored := make([]domain.Chunk, len(chunks))
	for i, c := range chunks {
		stored[i] = domain.Chunk{ID: i, Text: c.Text}
	}

	snap := &snapshot{
		buildID: uuid.NewString(),
		index:   ix,
		chunks:  stored,
		stats: domain.IndexStats{
			Chunks:    len(stored),
			Dimension: ix.Dimension(),
			Model:     s.embedder.Model(),
			BuiltAt:   time.Now().UTC(),
		},
	}
	s.current.Store(snap)
	slog.Info("knowledge_index_built", "chunks", snap.stats.Chunks, "dimension", snap.stats.Dimension, "model", snap.stats.Model)
	return snap.stats, nil
}

func (s *Store) embedChunks(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += s.embedBatch {
		end := min(start+s.embedBatch, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		batch, err := s.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != len(texts) {
			return nil, domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunks",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), len(texts)),
			)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *Store) Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, domain.WrapError(domain.ErrIndexUnavailable, "search knowledge index", errors.New("index is not loaded"))
	}
	if topK <= 0 || snap.index.Len() == 0 {
		return []domain.SearchResult{}, nil
	}

	queryVector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := snap.index.Search(queryVector, topK)
	if err != nil {
		return nil, fmt.Errorf("search flat index: %w", err)
	}

	out := make([]domain.SearchResult, 0, len(hits))
	for _, h := range hits {
		if h.ID < 0 || h.ID >= len(snap.chunks) {
			continue
		}
		out = append(out, domain.SearchResult{
			ChunkID:  h.ID,
			Distance: h.Distance,
			Text:     snap.chunks[h.ID].Text,
		})
	}
	return out, nil
}

func (s *Store) Stats() (domain.IndexStats, bool) {
	snap := s.current.Load()
	if snap == nil {
		return domain.IndexStats{}, false
	}
	return snap.stats, true
}

func (s *Store) Loaded() bool {
	return s.current.Load() != nil
}
