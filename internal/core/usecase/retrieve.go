package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

const (
	DefaultTopK         = 3
	DefaultContextLocal = 3
	DefaultContextWeb   = 3
)

// LocalSearcher is the slice of the knowledge index the retriever needs.
type LocalSearcher interface {
	Search(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Retriever fans a question out to the local index and, on request, the web.
// The local index is a hard dependency; web search only enriches.
type Retriever struct {
	local LocalSearcher
	web   *WebSearchAdapter
	// webResults is how many web results are requested per question.
	webResults int
}

func NewRetriever(local LocalSearcher, web *WebSearchAdapter, webResults int) *Retriever {
	if webResults <= 0 {
		webResults = DefaultWebResults
	}
	return &Retriever{local: local, web: web, webResults: webResults}
}

func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, useWeb bool) (domain.RetrievalBundle, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	bundle := domain.RetrievalBundle{
		Local: []domain.SearchResult{},
		Web:   []domain.WebResult{},
	}

	// The web branch never fails and runs on the parent context, so a local
	// failure does not cut it short; both are awaited.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := r.local.Search(gctx, query, topK)
		if err != nil {
			return fmt.Errorf("search local knowledge: %w", err)
		}
		bundle.Local = results
		return nil
	})
	if useWeb && r.web != nil {
		g.Go(func() error {
			bundle.Web = r.web.Search(ctx, query, r.webResults)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.RetrievalBundle{}, err
	}

	slog.Debug("retrieval_done", "local_hits", len(bundle.Local), "web_hits", len(bundle.Web), "use_web", useWeb)
	return bundle, nil
}

// Context renders the bundle for the prompt. It returns domain.NoRelevantContext
// when both sources are empty.
func (r *Retriever) Context(bundle domain.RetrievalBundle, maxLocal, maxWeb int) string {
	return BuildContext(bundle, maxLocal, maxWeb)
}

func BuildContext(bundle domain.RetrievalBundle, maxLocal, maxWeb int) string {
	local, web := truncateBundle(bundle, maxLocal, maxWeb)
	if len(local) == 0 && len(web) == 0 {
		return domain.NoRelevantContext
	}

	var b strings.Builder
	if len(local) > 0 {
		b.WriteString("LOCAL KNOWLEDGE BASE:\n\n")
		for i, res := range local {
			fmt.Fprintf(&b, "DOCUMENT %d (chunk %d):\n%s\n\n", i+1, res.ChunkID, res.Text)
		}
	}
	if len(web) > 0 {
		b.WriteString(FormatWebResults(web))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func truncateBundle(bundle domain.RetrievalBundle, maxLocal, maxWeb int) ([]domain.SearchResult, []domain.WebResult) {
	if maxLocal <= 0 {
		maxLocal = DefaultContextLocal
	}
	if maxWeb <= 0 {
		maxWeb = DefaultContextWeb
	}
	local := bundle.Local
	if len(local) > maxLocal {
		local = local[:maxLocal]
	}
	web := bundle.Web
	if len(web) > maxWeb {
		web = web[:maxWeb]
	}
	return local, web
}
