package pdf

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

type storageFake struct {
	files map[string]string
}

func (f *storageFake) Save(context.Context, string, io.Reader) error { return nil }

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.files[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func TestExtractRejectsNonPDF(t *testing.T) {
	e := NewExtractor(&storageFake{files: map[string]string{"kb.pdf": "plain text pretending to be a pdf"}})

	_, err := e.Extract(context.Background(), "kb.pdf")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExtractMissingSource(t *testing.T) {
	e := NewExtractor(&storageFake{})
	if _, err := e.Extract(context.Background(), "missing.pdf"); err == nil {
		t.Fatalf("expected open error")
	}
}
