package httpadapter

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

type answererFake struct {
	resp    *domain.Response
	lastReq domain.AskRequest
	calls   int
}

func (f *answererFake) AnswerQuestion(_ context.Context, req domain.AskRequest) *domain.Response {
	f.calls++
	f.lastReq = req
	if strings.TrimSpace(req.Question) == "" {
		return domain.ErrorResponse(domain.FailureInvalidInput, "question is required")
	}
	if f.resp != nil {
		return f.resp
	}
	return &domain.Response{
		Answer:    "B",
		Reasoning: "The context says Paris is the capital of France.",
		Contexts:  domain.Contexts{Local: []string{"Paris is the capital of France."}, Web: []string{}},
	}
}

type searcherFake struct {
	results []domain.SearchResult
	err     error
	stats   domain.IndexStats
	loaded  bool
	lastK   int
}

func (f *searcherFake) Search(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	f.lastK = topK
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *searcherFake) Stats() (domain.IndexStats, bool) {
	return f.stats, f.loaded
}

type ingestorFake struct {
	queued   bool
	err      error
	filename string
	body     string
}

func (f *ingestorFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.IngestReceipt, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("empty file"))
	}
	f.filename = filename
	f.body = string(raw)
	return &domain.IngestReceipt{
		ID:         "upload-1",
		Filename:   filename,
		MimeType:   mimeType,
		StorageKey: "upload-1_" + filename,
		Queued:     f.queued,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func testConfig() config.Config {
	return config.Config{RAGTopK: 3}
}
