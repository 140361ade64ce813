package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
)

const (
	reasonNoLocalInfo = "No relevant information found in the knowledge base."
	reasonNoInfoAtAll = "No relevant information found in the knowledge base or on the web."
)

type PipelineOptions struct {
	DefaultTopK int
	MaxLocal    int
	MaxWeb      int
}

// PipelineUseCase answers one question: retrieve, build context, ask the
// model, shape the response. It never returns an error or panics to the caller.
type PipelineUseCase struct {
	retriever *Retriever
	answerer  *AnswerGenerator
	observer  ports.PipelineObserver
	opts      PipelineOptions
}

func NewPipelineUseCase(
	retriever *Retriever,
	answerer *AnswerGenerator,
	observer ports.PipelineObserver,
	opts PipelineOptions,
) *PipelineUseCase {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = DefaultTopK
	}
	if opts.MaxLocal <= 0 {
		opts.MaxLocal = DefaultContextLocal
	}
	if opts.MaxWeb <= 0 {
		opts.MaxWeb = DefaultContextWeb
	}
	return &PipelineUseCase{
		retriever: retriever,
		answerer:  answerer,
		observer:  observer,
		opts:      opts,
	}
}

func (uc *PipelineUseCase) AnswerQuestion(ctx context.Context, req domain.AskRequest) (resp *domain.Response) {
	start := time.Now()
	localHits, webHits := 0, 0
	defer func() {
		if r := recover(); r != nil {
			slog.Error("pipeline_panic", "panic", fmt.Sprint(r))
			resp = domain.ErrorResponse(domain.FailureInternal, fmt.Sprint(r))
		}
		if uc.observer != nil {
			uc.observer.ObservePipeline(resp.Failure, localHits, webHits, time.Since(start))
		}
	}()

	question := strings.TrimSpace(req.Question)
	if question == "" {
		return domain.ErrorResponse(domain.FailureInvalidInput, "question is required")
	}
	topK := req.TopK
	if topK <= 0 {
		topK = uc.opts.DefaultTopK
	}

	bundle, err := uc.retriever.Retrieve(ctx, question, topK, req.UseWebSearch)
	if err != nil {
		kind := domain.FailureInternal
		if domain.IsKind(err, domain.ErrIndexUnavailable) {
			kind = domain.FailureIndexUnavailable
		}
		slog.Error("pipeline_retrieve_failed", "failure", string(kind), "error", err)
		return domain.ErrorResponse(kind, err.Error())
	}

	local, web := truncateBundle(bundle, uc.opts.MaxLocal, uc.opts.MaxWeb)
	localHits, webHits = len(local), len(web)

	contextText := uc.retriever.Context(bundle, uc.opts.MaxLocal, uc.opts.MaxWeb)
	if contextText == "" || contextText == domain.NoRelevantContext {
		reasoning := reasonNoLocalInfo
		if req.UseWebSearch {
			reasoning = reasonNoInfoAtAll
		}
		return &domain.Response{
			Answer:    domain.AnswerNotEnoughInfo,
			Reasoning: reasoning,
			Contexts:  domain.Contexts{Local: []string{}, Web: []string{}},
			Failure:   domain.FailureNoContext,
		}
	}

	if err := ctx.Err(); err != nil {
		return domain.ErrorResponse(domain.FailureInternal, err.Error())
	}

	result := uc.answerer.Answer(ctx, question, contextText)

	return &domain.Response{
		Answer:        result.Answer,
		Reasoning:     result.Reasoning,
		Contexts:      shapeContexts(local, web),
		HasWebResults: len(web) > 0,
		Failure:       result.Failure,
	}
}

func shapeContexts(local []domain.SearchResult, web []domain.WebResult) domain.Contexts {
	out := domain.Contexts{
		Local: make([]string, 0, len(local)),
		Web:   make([]string, 0, len(web)),
	}
	for _, r := range local {
		out.Local = append(out.Local, r.Text)
	}
	for _, w := range web {
		out.Web = append(out.Web, fmt.Sprintf("%s\n%s\nURL: %s", w.Title, w.Snippet, w.URL))
	}
	return out
}
