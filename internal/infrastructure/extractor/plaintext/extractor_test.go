package plaintext

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

func TestExtractTrimsTextAndBOM(t *testing.T) {
	e := NewExtractor(&storageFake{files: map[string]string{"kb.txt": "\xEF\xBB\xBF  Paris is the capital of France.\n\n"}})

	text, err := e.Extract(context.Background(), "kb.txt")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "Paris is the capital of France." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	e := NewExtractor(&storageFake{files: map[string]string{"kb.bin": "\xff\xfe\x00\x01"}})

	_, err := e.Extract(context.Background(), "kb.bin")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestExtractMissingSource(t *testing.T) {
	e := NewExtractor(&storageFake{})
	if _, err := e.Extract(context.Background(), "missing.txt"); err == nil {
		t.Fatalf("expected open error")
	}
}
