package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/extractor/xlsx"
)

// Router picks a text extractor by the storage key's file extension.
type Router struct {
	byExt map[string]ports.TextExtractor
}

func NewRouter(byExt map[string]ports.TextExtractor) *Router {
	normalized := make(map[string]ports.TextExtractor, len(byExt))
	for ext, e := range byExt {
		normalized[normalizeExt(ext)] = e
	}
	return &Router{byExt: normalized}
}

// NewDefaultRouter registers the built-in extractors over one storage.
func NewDefaultRouter(storage ports.ObjectStorage) *Router {
	text := plaintext.NewExtractor(storage)
	return NewRouter(map[string]ports.TextExtractor{
		".txt":  text,
		".md":   text,
		".pdf":  pdf.NewExtractor(storage),
		".xlsx": xlsx.NewExtractor(storage),
	})
}

func (r *Router) Extract(ctx context.Context, storageKey string) (string, error) {
	ext := normalizeExt(filepath.Ext(storageKey))
	e, ok := r.byExt[ext]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("no extractor for %q", ext))
	}
	return e.Extract(ctx, storageKey)
}

// Extensions lists the registered extensions, suitable for upload validation.
func (r *Router) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	return out
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
