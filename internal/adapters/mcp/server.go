package mcpadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

const (
	toolAnswerQuestion  = "answer_question"
	toolSearchKnowledge = "search_knowledge"
	maxTopK             = 50
)

// Tools exposes the answering pipeline and raw local retrieval as MCP tools.
type Tools struct {
	answerer    ports.QuestionAnswerer
	searcher    ports.KnowledgeSearcher
	defaultTopK int
}

func NewTools(answerer ports.QuestionAnswerer, searcher ports.KnowledgeSearcher, defaultTopK int) *Tools {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Tools{answerer: answerer, searcher: searcher, defaultTopK: defaultTopK}
}

func (t *Tools) NewServer(name, version string) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(false))

	s.AddTool(mcp.NewTool(toolAnswerQuestion,
		mcp.WithDescription("Answer a multiple-choice question using only the local knowledge base and, optionally, web search. Put the answer options on separate lines after the question."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question stem followed by its options, e.g. \"Capital of France?\\nA. Berlin\\nB. Paris\"")),
		mcp.WithBoolean("use_web_search", mcp.Description("Also search the web for context")),
		mcp.WithNumber("top_k", mcp.Description("Local chunks to retrieve"), mcp.Min(1), mcp.Max(maxTopK)),
	), t.answerQuestion)

	s.AddTool(mcp.NewTool(toolSearchKnowledge,
		mcp.WithDescription("Return the knowledge base chunks nearest to a query, closest first."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("top_k", mcp.Description("Number of chunks"), mcp.Min(1), mcp.Max(maxTopK)),
	), t.searchKnowledge)

	return s
}

func (t *Tools) answerQuestion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := t.answerer.AnswerQuestion(ctx, domain.AskRequest{
		Question:     question,
		UseWebSearch: req.GetBool("use_web_search", false),
		TopK:         t.topK(req),
	})
	slog.Info("mcp_tool_called", "tool", toolAnswerQuestion, "answer", resp.Answer, "failure", string(resp.Failure))

	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("marshal answer: %w", err)
	}
	if resp.Failure == domain.FailureInvalidInput || resp.Failure == domain.FailureIndexUnavailable {
		return mcp.NewToolResultError(string(payload)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (t *Tools) searchKnowledge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	results, err := t.searcher.Search(ctx, query, t.topK(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal search results: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

func (t *Tools) topK(req mcp.CallToolRequest) int {
	k := req.GetInt("top_k", t.defaultTopK)
	if k <= 0 {
		return t.defaultTopK
	}
	return min(k, maxTopK)
}
