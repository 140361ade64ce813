package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestHTTPMiddlewareCountsRequests(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/ask", nil))

	body := scrape(t, m.Handler())
	want := `mcq_http_requests_total{method="POST",path="/v1/ask",service="api",status="202"} 1`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %s in:\n%s", want, body)
	}
}

func TestObservePipelineOutcomes(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObservePipeline(domain.FailureNone, 3, 2, 120*time.Millisecond)
	m.ObservePipeline(domain.FailureNoContext, 0, 0, 10*time.Millisecond)

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`mcq_pipeline_requests_total{outcome="answered",service="api"} 1`,
		`mcq_pipeline_requests_total{outcome="no_context",service="api"} 1`,
		`mcq_pipeline_no_context_total{service="api"} 1`,
		`mcq_pipeline_local_hits_count{service="api"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in:\n%s", want, body)
		}
	}
}

func TestObserveBreakerState(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveBreakerState("web.search", gobreaker.StateOpen)

	body := scrape(t, m.Handler())
	want := `mcq_upstream_breaker_state{operation="web.search",service="api"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("expected %s in:\n%s", want, body)
	}
}

func TestWorkerMetricsBuilds(t *testing.T) {
	m := NewWorkerMetrics("worker")
	m.StartBuild()
	m.FinishBuild(domain.IndexStats{Chunks: 42}, time.Second, nil)
	m.StartBuild()
	m.FinishBuild(domain.IndexStats{}, time.Second, errors.New("embed failed"))

	body := scrape(t, m.Handler())
	for _, want := range []string{
		`mcq_indexer_builds_total{service="worker",status="success"} 1`,
		`mcq_indexer_builds_total{service="worker",status="error"} 1`,
		`mcq_indexer_index_chunks{service="worker"} 42`,
		`mcq_indexer_builds_in_flight{service="worker"} 0`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s in:\n%s", want, body)
		}
	}
}
