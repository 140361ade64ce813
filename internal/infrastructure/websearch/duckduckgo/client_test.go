package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/resilience"
)

const resultPage = `<html><body>
<div class="result results_links web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fparis&amp;rut=abc">Paris - <b>Capital</b> of France</a>
  </h2>
  <a class="result__snippet" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fparis">Paris is the <b>capital</b> and largest city of France.</a>
</div>
<div class="result results_links web-result">
  <h2 class="result__title">
    <a rel="nofollow" class="result__a" href="https://example.org/rome">Rome</a>
  </h2>
  <a class="result__snippet" href="https://example.org/rome">Rome is the capital of Italy.</a>
</div>
<div class="result result--ad">
  <a class="result__a" href="https://duckduckgo.com/y.js?ad_provider=x">Ad</a>
</div>
</body></html>`

func TestSearchParsesResultPage(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotQuery = r.PostForm.Get("q")
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	client := New(Options{BaseURL: server.URL})
	results, err := client.Search(context.Background(), "capital of France", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if gotQuery != "capital of France" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 organic results, got %d: %+v", len(results), results)
	}
	want := domain.WebResult{
		Title:   "Paris - Capital of France",
		Snippet: "Paris is the capital and largest city of France.",
		URL:     "https://example.com/paris",
	}
	if results[0] != want {
		t.Fatalf("unexpected first result: %+v", results[0])
	}
	if results[1].URL != "https://example.org/rome" {
		t.Fatalf("unexpected second url %q", results[1].URL)
	}
}

func TestSearchTruncatesToMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	results, err := New(Options{BaseURL: server.URL}).Search(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchRetriesRateLimitedUpstream(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    2,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     time.Millisecond,
	})
	results, err := New(Options{BaseURL: server.URL, Executor: exec}).Search(context.Background(), "q", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 || calls.Load() != 2 {
		t.Fatalf("expected retry then success, got %d results after %d calls", len(results), calls.Load())
	}
}

func TestSearchReturnsErrorOnPermanentStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := New(Options{BaseURL: server.URL}).Search(context.Background(), "q", 5)
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("403 must not be temporary: %v", err)
	}
}

func TestSearchHonorsWorkerPoolCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(resultPage))
	}))
	defer server.Close()
	defer close(release)

	client := New(Options{BaseURL: server.URL, Workers: 1})
	go func() {
		_, _ = client.Search(context.Background(), "slow", 5)
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := client.Search(ctx, "queued", 5); err == nil {
		t.Fatalf("expected queued search to fail once its context expires")
	}
}

func TestResolveURL(t *testing.T) {
	cases := map[string]string{
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fa.b%2Fc%3Fd%3D1": "https://a.b/c?d=1",
		"https://plain.example/x":                               "https://plain.example/x",
	}
	for in, want := range cases {
		if got := resolveURL(in); got != want {
			t.Fatalf("resolveURL(%q) = %q, want %q", in, got, want)
		}
	}
}
