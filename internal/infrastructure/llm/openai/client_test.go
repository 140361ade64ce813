package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/chat/completions":
			var req map[string]any
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req["model"] != "chat-model" {
				t.Errorf("unexpected model %v", req["model"])
			}
			_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" {\"answer\":\"B\"} "},"finish_reason":"stop"}]}`))
		case "/v1/embeddings":
			_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":1,"embedding":[0.5,0.5]},{"object":"embedding","index":0,"embedding":[1,0]}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestGeneratorGenerate(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	gen := NewGenerator(New(Options{APIKey: "test-key", BaseURL: server.URL + "/v1", ChatModel: "chat-model"}))
	out, err := gen.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if out != `{"answer":"B"}` {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestGeneratorNotConfiguredWithoutKey(t *testing.T) {
	gen := NewGenerator(New(Options{ChatModel: "chat-model"}))
	if gen.Configured() {
		t.Fatalf("expected generator without api key to be unconfigured")
	}
	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error for unconfigured generator")
	}
}

func TestEmbedderOrdersByIndex(t *testing.T) {
	server := newTestServer(t)
	defer server.Close()

	emb := NewEmbedder(New(Options{APIKey: "test-key", BaseURL: server.URL + "/v1", EmbedModel: "embed-model"}))
	vectors, err := emb.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors[0][0] != 1 || vectors[1][0] != 0.5 {
		t.Fatalf("vectors not ordered by index: %v", vectors)
	}
}

func TestGeneratorMarksServerErrorTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	gen := NewGenerator(New(Options{APIKey: "test-key", BaseURL: server.URL, ChatModel: "chat-model"}))
	_, err := gen.Generate(context.Background(), "prompt")
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary error, got %v", err)
	}
	if !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected upstream message, got %v", err)
	}
}
