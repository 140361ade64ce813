package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("ollama %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (e *HTTPStatusError) HTTPStatus() int { return e.StatusCode }

func (c *Client) executeWithResilience(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, resilience.ClassifyTransport)
}

func wrapTemporaryIfNeeded(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, resilience.ClassifyTransport)
}
