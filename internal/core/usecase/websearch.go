package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

const (
	DefaultWebResults      = 5
	DefaultMaxSnippetWords = 150
	defaultWebTimeout      = 8 * time.Second
)

var trailingPunctuation = regexp.MustCompile(`[\s?？!.。:;,]+$`)

// WebSearchAdapter turns a multiple-choice question into a web query and
// cleans what comes back. It never returns an error: a failed search is an
// empty result.
type WebSearchAdapter struct {
	provider        ports.WebSearchProvider
	timeout         time.Duration
	maxSnippetWords int
}

func NewWebSearchAdapter(provider ports.WebSearchProvider, timeout time.Duration, maxSnippetWords int) *WebSearchAdapter {
	if timeout <= 0 {
		timeout = defaultWebTimeout
	}
	if maxSnippetWords <= 0 {
		maxSnippetWords = DefaultMaxSnippetWords
	}
	return &WebSearchAdapter{
		provider:        provider,
		timeout:         timeout,
		maxSnippetWords: maxSnippetWords,
	}
}

func (a *WebSearchAdapter) Search(ctx context.Context, question string, maxResults int) []domain.WebResult {
	if a == nil || a.provider == nil {
		return []domain.WebResult{}
	}
	if maxResults <= 0 {
		maxResults = DefaultWebResults
	}
	query := NormalizeQuery(question)
	if query == "" {
		return []domain.WebResult{}
	}

	searchCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	raw, err := a.provider.Search(searchCtx, query, maxResults)
	if err != nil {
		slog.Warn("web_search_failed", "query", query, "error", err)
		return []domain.WebResult{}
	}

	out := make([]domain.WebResult, 0, min(len(raw), maxResults))
	for _, r := range raw {
		cleaned := domain.WebResult{
			Title:   collapseWhitespace(r.Title),
			Snippet: CleanSnippet(r.Snippet, a.maxSnippetWords),
			URL:     strings.TrimSpace(r.URL),
		}
		if cleaned.Title == "" && cleaned.Snippet == "" {
			continue
		}
		out = append(out, cleaned)
		if len(out) == maxResults {
			break
		}
	}
	slog.Debug("web_search_done", "query", query, "results", len(out))
	return out
}

// Format renders results as a numbered context block, or the no-results sentinel.
func (a *WebSearchAdapter) Format(results []domain.WebResult) string {
	return FormatWebResults(results)
}

func FormatWebResults(results []domain.WebResult) string {
	if len(results) == 0 {
		return domain.NoWebResults
	}
	var b strings.Builder
	b.WriteString("WEB SEARCH RESULTS:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, orPlaceholder(r.Title, domain.WebUntitled))
		fmt.Fprintf(&b, "   %s\n", orPlaceholder(r.Snippet, domain.WebNoSnippet))
		fmt.Fprintf(&b, "   URL: %s\n", orPlaceholder(r.URL, domain.WebNoURL))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// NormalizeQuery keeps the question stem (first line) and drops trailing
// question marks and punctuation. Option lines are discarded.
func NormalizeQuery(question string) string {
	stem := strings.TrimSpace(question)
	if i := strings.IndexAny(stem, "\r\n"); i >= 0 {
		stem = stem[:i]
	}
	return strings.TrimSpace(trailingPunctuation.ReplaceAllString(stem, ""))
}

// CleanSnippet collapses whitespace and truncates to maxWords, appending "..."
// when anything was cut.
func CleanSnippet(text string, maxWords int) string {
	fields := strings.Fields(text)
	if maxWords > 0 && len(fields) > maxWords {
		return strings.Join(fields[:maxWords], " ") + "..."
	}
	return strings.Join(fields, " ")
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
