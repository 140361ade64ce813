package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

type answererFake struct {
	req  domain.AskRequest
	resp *domain.Response
}

func (f *answererFake) AnswerQuestion(_ context.Context, req domain.AskRequest) *domain.Response {
	f.req = req
	if f.resp != nil {
		return f.resp
	}
	return &domain.Response{Answer: "B", Reasoning: "Paris.", Contexts: domain.Contexts{Local: []string{"Paris"}, Web: []string{}}}
}

type searcherFake struct {
	topK int
	err  error
}

func (f *searcherFake) Search(_ context.Context, _ string, topK int) ([]domain.SearchResult, error) {
	f.topK = topK
	if f.err != nil {
		return nil, f.err
	}
	return []domain.SearchResult{{ChunkID: 1, Distance: 0.5, Text: "Paris"}}, nil
}

func (f *searcherFake) Stats() (domain.IndexStats, bool) { return domain.IndexStats{}, true }

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	switch c := res.Content[0].(type) {
	case mcp.TextContent:
		return c.Text
	case *mcp.TextContent:
		return c.Text
	default:
		t.Fatalf("unexpected content type %T", c)
		return ""
	}
}

func TestAnswerQuestionTool(t *testing.T) {
	answerer := &answererFake{}
	tools := NewTools(answerer, &searcherFake{}, 3)

	res, err := tools.answerQuestion(context.Background(), callRequest(toolAnswerQuestion, map[string]any{
		"question":       "Capital of France?\nA. Berlin\nB. Paris",
		"use_web_search": true,
		"top_k":          float64(4),
	}))
	if err != nil {
		t.Fatalf("answerQuestion() error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	var resp domain.Response
	if err := json.Unmarshal([]byte(resultText(t, res)), &resp); err != nil {
		t.Fatalf("decode tool payload: %v", err)
	}
	if resp.Answer != "B" {
		t.Fatalf("unexpected answer: %+v", resp)
	}
	if !answerer.req.UseWebSearch || answerer.req.TopK != 4 {
		t.Fatalf("arguments not forwarded: %+v", answerer.req)
	}
}

func TestAnswerQuestionToolRequiresQuestion(t *testing.T) {
	tools := NewTools(&answererFake{}, &searcherFake{}, 3)

	res, err := tools.answerQuestion(context.Background(), callRequest(toolAnswerQuestion, map[string]any{}))
	if err != nil {
		t.Fatalf("answerQuestion() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error for missing question")
	}
}

func TestAnswerQuestionToolFlagsUnavailableIndex(t *testing.T) {
	answerer := &answererFake{resp: domain.ErrorResponse(domain.FailureIndexUnavailable, "not loaded")}
	tools := NewTools(answerer, &searcherFake{}, 3)

	res, err := tools.answerQuestion(context.Background(), callRequest(toolAnswerQuestion, map[string]any{"question": "Q?"}))
	if err != nil {
		t.Fatalf("answerQuestion() error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "index_unavailable") {
		t.Fatalf("expected flagged error result, got %+v", res)
	}
}

func TestSearchKnowledgeTool(t *testing.T) {
	searcher := &searcherFake{}
	tools := NewTools(&answererFake{}, searcher, 3)

	res, err := tools.searchKnowledge(context.Background(), callRequest(toolSearchKnowledge, map[string]any{"query": "capital"}))
	if err != nil {
		t.Fatalf("searchKnowledge() error = %v", err)
	}
	if searcher.topK != 3 {
		t.Fatalf("expected default top_k 3, got %d", searcher.topK)
	}
	var results []domain.SearchResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != 1 {
		t.Fatalf("unexpected results: %+v", results)
	}
}

func TestSearchKnowledgeToolReportsErrors(t *testing.T) {
	tools := NewTools(&answererFake{}, &searcherFake{err: errors.New("index not loaded")}, 3)

	res, err := tools.searchKnowledge(context.Background(), callRequest(toolSearchKnowledge, map[string]any{"query": "capital"}))
	if err != nil {
		t.Fatalf("searchKnowledge() error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	s := NewTools(&answererFake{}, &searcherFake{}, 3).NewServer("mcq-rag", "test")
	if s == nil {
		t.Fatalf("expected server")
	}
	tools := s.ListTools()
	for _, name := range []string{toolAnswerQuestion, toolSearchKnowledge} {
		if _, ok := tools[name]; !ok {
			t.Fatalf("tool %s not registered", name)
		}
	}
}
