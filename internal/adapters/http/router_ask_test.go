package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

func postAsk(t *testing.T, handler http.Handler, path, body string) (*httptest.ResponseRecorder, domain.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	var resp domain.Response
	if err := json.Unmarshal(res.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
	return res, resp
}

func TestAskReturnsAnswer(t *testing.T) {
	answerer := &answererFake{}
	handler := NewRouter(testConfig(), answerer, &searcherFake{}, nil).Handler()

	res, resp := postAsk(t, handler, "/v1/ask", `{"question":"What is the capital of France?\nA. Berlin\nB. Paris","use_web_search":true,"top_k":2}`)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if resp.Answer != "B" || len(resp.Contexts.Local) != 1 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if !answerer.lastReq.UseWebSearch || answerer.lastReq.TopK != 2 {
		t.Fatalf("request fields not forwarded: %+v", answerer.lastReq)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestAskLegacyRoute(t *testing.T) {
	handler := NewRouter(testConfig(), &answererFake{}, &searcherFake{}, nil).Handler()

	res, resp := postAsk(t, handler, "/ask", `{"question":"Q?"}`)
	if res.Code != http.StatusOK || resp.Answer != "B" {
		t.Fatalf("unexpected legacy response %d: %+v", res.Code, resp)
	}
}

func TestAskRejectsInvalidRequests(t *testing.T) {
	cases := map[string]string{
		"invalid json":     `{"question":`,
		"missing question": `{"use_web_search":true}`,
		"empty question":   `{"question":""}`,
		"blank question":   `{"question":"   "}`,
		"top_k wrong type": `{"question":"Q?","top_k":"three"}`,
		"top_k over limit": `{"question":"Q?","top_k":500}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewRouter(testConfig(), &answererFake{}, &searcherFake{}, nil).Handler()
			res, resp := postAsk(t, handler, "/v1/ask", body)
			if res.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", res.Code, res.Body.String())
			}
			if resp.Answer != domain.AnswerError || resp.Failure != domain.FailureInvalidInput {
				t.Fatalf("expected error response shape, got %+v", resp)
			}
			if resp.Contexts.Local == nil || resp.Contexts.Web == nil {
				t.Fatalf("context buckets must be present")
			}
		})
	}
}

func TestAskMapsIndexUnavailableTo503(t *testing.T) {
	answerer := &answererFake{resp: domain.ErrorResponse(domain.FailureIndexUnavailable, "knowledge index unavailable")}
	handler := NewRouter(testConfig(), answerer, &searcherFake{}, nil).Handler()

	res, resp := postAsk(t, handler, "/v1/ask", `{"question":"Q?"}`)
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if resp.Answer != domain.AnswerError {
		t.Fatalf("expected Error answer, got %+v", resp)
	}
}

func TestAskKeepsDegradedAnswersAt200(t *testing.T) {
	answerer := &answererFake{resp: &domain.Response{
		Answer:    domain.AnswerNotEnoughInfo,
		Reasoning: "No relevant information found in the knowledge base.",
		Contexts:  domain.Contexts{Local: []string{}, Web: []string{}},
		Failure:   domain.FailureNoContext,
	}}
	handler := NewRouter(testConfig(), answerer, &searcherFake{}, nil).Handler()

	res, resp := postAsk(t, handler, "/v1/ask", `{"question":"Q?"}`)
	if res.Code != http.StatusOK || resp.Answer != domain.AnswerNotEnoughInfo {
		t.Fatalf("unexpected degraded response %d: %+v", res.Code, resp)
	}
}

func TestAskRejectsGet(t *testing.T) {
	handler := NewRouter(testConfig(), &answererFake{}, &searcherFake{}, nil).Handler()
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/ask", nil))
	if res.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", res.Code)
	}
}
