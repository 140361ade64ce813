package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

const (
	reasonNoExtract     = "Could not extract a valid answer from the AI response."
	reasonParseFailed   = "Failed to parse AI response as JSON."
	reasonNoReasoning   = "No reasoning provided."
	reasonNotConfigured = "Language model API key not configured. Please set your API key."
)

const answerPayloadSchema = `{
  "type": "object",
  "properties": {
    "answer": {"type": "string"},
    "reasoning": {"type": "string"}
  }
}`

var answerSchema = mustCompileSchema(answerPayloadSchema)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("compile answer schema: %v", err))
	}
	return schema
}

// AnswerGenerator asks the language model to pick an option using only the
// supplied context. Every outcome, including failures, is an AnswerResult.
type AnswerGenerator struct {
	generator ports.TextGenerator
}

func NewAnswerGenerator(generator ports.TextGenerator) *AnswerGenerator {
	return &AnswerGenerator{generator: generator}
}

func (g *AnswerGenerator) Answer(ctx context.Context, question, contextText string) domain.AnswerResult {
	if g.generator == nil || !g.generator.Configured() {
		return domain.AnswerResult{
			Answer:    domain.AnswerError,
			Reasoning: reasonNotConfigured,
			Failure:   domain.FailureNotConfigured,
		}
	}

	raw, err := g.generator.Generate(ctx, BuildMCQPrompt(question, contextText))
	if err != nil {
		slog.Error("answer_generation_failed", "model", g.generator.Model(), "error", err)
		return domain.AnswerResult{
			Answer:    domain.AnswerError,
			Reasoning: "Failed to get answer from the language model: " + err.Error(),
			Failure:   domain.FailureUpstream,
		}
	}

	result := ParseAnswer(raw)
	if result.Failure != domain.FailureNone {
		slog.Warn("answer_parse_degraded", "model", g.generator.Model(), "failure", string(result.Failure), "raw_len", len(raw))
	}
	return result
}

func BuildMCQPrompt(question, contextText string) string {
	return fmt.Sprintf(`You are an AI assistant that answers multiple-choice questions based ONLY on the provided context.

CONTEXT:
%s

QUESTION:
%s

Based ONLY on the information provided in the CONTEXT above, answer the multiple-choice question.
If the context doesn't contain enough information to answer with confidence, respond with "%s" (Not enough information).

Return your answer in the following JSON format:
{
  "answer": "A",
  "reasoning": "Explanation of why this option is correct based on the context."
}

Do not include any text outside of the JSON. Only respond with valid JSON.`, contextText, question, domain.AnswerNotEnoughInfo)
}

// ParseAnswer reads the JSON object spanning the first '{' to the last '}'
// of raw model output.
func ParseAnswer(raw string) domain.AnswerResult {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return domain.AnswerResult{
			Answer:    domain.AnswerNotEnoughInfo,
			Reasoning: reasonNoExtract,
			Failure:   domain.FailureNoAnswer,
		}
	}
	payload := raw[start : end+1]

	malformed := domain.AnswerResult{
		Answer:    domain.AnswerError,
		Reasoning: reasonParseFailed,
		Failure:   domain.FailureMalformedOutput,
	}
	if !json.Valid([]byte(payload)) {
		return malformed
	}
	validation, err := answerSchema.Validate(gojsonschema.NewStringLoader(payload))
	if err != nil || !validation.Valid() {
		return malformed
	}

	var parsed struct {
		Answer    *string `json:"answer"`
		Reasoning *string `json:"reasoning"`
	}
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return malformed
	}

	out := domain.AnswerResult{
		Answer:    domain.AnswerNotEnoughInfo,
		Reasoning: reasonNoReasoning,
	}
	if parsed.Answer != nil && strings.TrimSpace(*parsed.Answer) != "" {
		out.Answer = strings.TrimSpace(*parsed.Answer)
	}
	if parsed.Reasoning != nil && strings.TrimSpace(*parsed.Reasoning) != "" {
		out.Reasoning = strings.TrimSpace(*parsed.Reasoning)
	}
	return out
}
