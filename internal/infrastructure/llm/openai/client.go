package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/resilience"
)

// Options configures an OpenAI-compatible endpoint. BaseURL may point at any
// compatible server, including Gemini's OpenAI endpoint.
type Options struct {
	APIKey     string
	BaseURL    string
	ChatModel  string
	EmbedModel string
	Timeout    time.Duration
	Executor   *resilience.Executor
}

type Client struct {
	api        *goopenai.Client
	apiKey     string
	chatModel  string
	embedModel string
	executor   *resilience.Executor
}

func New(opts Options) *Client {
	cfg := goopenai.DefaultConfig(opts.APIKey)
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.BaseURL = strings.TrimRight(base, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &Client{
		api:        goopenai.NewClientWithConfig(cfg),
		apiKey:     strings.TrimSpace(opts.APIKey),
		chatModel:  opts.ChatModel,
		embedModel: opts.EmbedModel,
		executor:   opts.Executor,
	}
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Configured() bool {
	return g.client.apiKey != "" && g.client.chatModel != ""
}

func (g *Generator) Model() string {
	return "openai/" + g.client.chatModel
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	if !g.Configured() {
		return "", errors.New("openai generator is not configured")
	}
	resp, err := resilience.Call(ctx, g.client.executor, "openai.chat", func(callCtx context.Context) (goopenai.ChatCompletionResponse, error) {
		return g.client.api.CreateChatCompletion(callCtx, goopenai.ChatCompletionRequest{
			Model:       g.client.chatModel,
			Temperature: 0,
			Messages: []goopenai.ChatCompletionMessage{
				{Role: goopenai.ChatMessageRoleUser, Content: prompt},
			},
		})
	}, classifyOpenAIError)
	if err != nil {
		return "", resilience.WrapTemporary("openai chat", err, classifyOpenAIError)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai chat: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Model() string {
	return "openai/" + e.client.embedModel
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := resilience.Call(ctx, e.client.executor, "openai.embed", func(callCtx context.Context) (goopenai.EmbeddingResponse, error) {
		return e.client.api.CreateEmbeddings(callCtx, goopenai.EmbeddingRequest{
			Model: goopenai.EmbeddingModel(e.client.embedModel),
			Input: texts,
		})
	}, classifyOpenAIError)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classifyOpenAIError)
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("openai embed: index %d out of range", item.Index)
		}
		out[item.Index] = item.Embedding
	}
	for i, v := range out {
		if len(v) == 0 {
			return nil, fmt.Errorf("openai embed: missing vector for input %d", i)
		}
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return resilience.ClassifyTransport(statusError(apiErr.HTTPStatusCode))
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return resilience.ClassifyTransport(statusError(reqErr.HTTPStatusCode))
	}
	return resilience.ClassifyTransport(err)
}

type statusError int

func (e statusError) Error() string   { return http.StatusText(int(e)) }
func (e statusError) HTTPStatus() int { return int(e) }
