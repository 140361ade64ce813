package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func TestNormalizeQuery(t *testing.T) {
	cases := map[string]string{
		"Which component of RAG finds relevant documents?\nA. Generator\nB. Retriever": "Which component of RAG finds relevant documents",
		"What is Go???":         "What is Go",
		"  Capital of France?  ": "Capital of France",
		"Thủ đô của Việt Nam là gì?\r\nA. Hà Nội": "Thủ đô của Việt Nam là gì",
		"":                      "",
	}
	for in, want := range cases {
		if got := NormalizeQuery(in); got != want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestCleanSnippet(t *testing.T) {
	if got := CleanSnippet("  a \n\t b   c ", 10); got != "a b c" {
		t.Fatalf("unexpected cleaned snippet %q", got)
	}
	long := strings.Repeat("word ", 200)
	got := CleanSnippet(long, 150)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got[len(got)-10:])
	}
	if n := len(strings.Fields(strings.TrimSuffix(got, "..."))); n != 150 {
		t.Fatalf("expected 150 words, got %d", n)
	}
	if got := CleanSnippet(strings.Repeat("w ", 150), 150); strings.HasSuffix(got, "...") {
		t.Fatalf("exactly max words must not be truncated")
	}
}

func TestWebSearchAdapterSwallowsProviderError(t *testing.T) {
	adapter := NewWebSearchAdapter(&webProviderFake{err: errors.New("connection refused")}, time.Second, 150)
	results := adapter.Search(context.Background(), "question?", 5)
	if results == nil || len(results) != 0 {
		t.Fatalf("expected empty non-nil results, got %#v", results)
	}
}

func TestWebSearchAdapterAppliesTimeoutBudget(t *testing.T) {
	adapter := NewWebSearchAdapter(&webProviderFake{delay: time.Second}, 20*time.Millisecond, 150)
	start := time.Now()
	results := adapter.Search(context.Background(), "slow", 5)
	if len(results) != 0 {
		t.Fatalf("expected no results after timeout")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("timeout budget not applied")
	}
}

func TestWebSearchAdapterNormalizesAndCleans(t *testing.T) {
	provider := &webProviderFake{results: []domain.WebResult{
		{Title: " Go \n language ", Snippet: "Go   is\n\nexpressive", URL: " https://go.dev "},
		{Title: "", Snippet: "   ", URL: "https://empty.example"},
		{Title: "Second", Snippet: "two", URL: "https://two.example"},
	}}
	adapter := NewWebSearchAdapter(provider, time.Second, 150)

	results := adapter.Search(context.Background(), "What is Go?\nA. A game\nB. A language", 5)
	if provider.lastQuery != "What is Go" {
		t.Fatalf("unexpected provider query %q", provider.lastQuery)
	}
	if len(results) != 2 {
		t.Fatalf("expected empty result dropped, got %d", len(results))
	}
	if results[0] != (domain.WebResult{Title: "Go language", Snippet: "Go is expressive", URL: "https://go.dev"}) {
		t.Fatalf("unexpected cleaned result %+v", results[0])
	}
}

func TestFormatWebResults(t *testing.T) {
	if got := FormatWebResults(nil); got != domain.NoWebResults {
		t.Fatalf("expected sentinel, got %q", got)
	}
	got := FormatWebResults([]domain.WebResult{{Title: "T", Snippet: "S", URL: "U"}, {Title: "T2", Snippet: "S2", URL: "U2"}})
	want := "WEB SEARCH RESULTS:\n1. T\n   S\n   URL: U\n\n2. T2\n   S2\n   URL: U2"
	if got != want {
		t.Fatalf("unexpected format:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatWebResultsFillsBlankFields(t *testing.T) {
	got := FormatWebResults([]domain.WebResult{{Title: "Only title"}, {Snippet: "Only snippet", URL: " "}})
	want := "WEB SEARCH RESULTS:\n" +
		"1. Only title\n   " + domain.WebNoSnippet + "\n   URL: #\n\n" +
		"2. " + domain.WebUntitled + "\n   Only snippet\n   URL: #"
	if got != want {
		t.Fatalf("unexpected format:\n%q\nwant\n%q", got, want)
	}
}
