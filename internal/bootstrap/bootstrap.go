package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/usecase"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/queue/nats"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/vector/flatindex"
	"github.com/kirillkom/mcq-rag-assistant/internal/infrastructure/websearch/duckduckgo"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Storage *localfs.Storage
	Index   *flatindex.Store
	// Queue is nil when NATS is disabled.
	Queue *nats.Queue

	BuildUC    *usecase.BuildIndexUseCase
	IngestUC   *usecase.IngestKnowledgeUseCase
	PipelineUC *usecase.PipelineUseCase

	closeFn func()
}

type Option func(*options)

type options struct {
	metrics *metrics.HTTPServerMetrics
}

// WithMetrics feeds pipeline outcomes and breaker transitions into m.
func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(o *options) { o.metrics = m }
}

func New(_ context.Context, cfg config.Config, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	if o.metrics != nil {
		m := o.metrics
		executor.WithStateListener(func(operation string, _, to gobreaker.State) {
			m.ObserveBreakerState(operation, to)
		})
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	embedder, err := newEmbedder(cfg, executor)
	if err != nil {
		return nil, err
	}
	generator, err := newGenerator(cfg, executor)
	if err != nil {
		return nil, err
	}

	index := flatindex.NewStore(embedder, flatindex.Options{EmbedBatchSize: cfg.EmbedBatchSize})
	chunker := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	textExtractor := extractor.NewDefaultRouter(storage)

	var queue *nats.Queue
	if cfg.NATSEnabled {
		queue, err = nats.NewWithOptions(cfg.NATSURL, nats.Options{
			ReindexSubject:     cfg.NATSReindexSubject,
			UpdatedSubject:     cfg.NATSUpdatedSubject,
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init message queue: %w", err)
		}
	}

	var notifier ports.IndexUpdateNotifier
	if queue != nil {
		notifier = queue
	}
	buildUC := usecase.NewBuildIndexUseCase(textExtractor, chunker, index, cfg.IndexPath, notifier)

	var dispatcher ports.ReindexDispatcher = usecase.NewInlineReindexer(buildUC)
	if queue != nil {
		dispatcher = queue
	}
	ingestUC := usecase.NewIngestKnowledgeUseCase(storage, dispatcher, cfg.UploadExtensions)

	var webProvider ports.WebSearchProvider
	if cfg.WebSearchEnabled {
		webProvider = duckduckgo.New(duckduckgo.Options{
			BaseURL:       cfg.WebSearchURL,
			Region:        cfg.WebSearchRegion,
			Timeout:       cfg.WebSearchTimeout,
			Workers:       cfg.WebSearchWorkers,
			RatePerSecond: cfg.WebSearchRate,
			Burst:         cfg.WebSearchBurst,
			Executor:      executor,
		})
	}
	retriever := usecase.NewRetriever(
		index,
		usecase.NewWebSearchAdapter(webProvider, cfg.WebSearchTimeout, cfg.WebSearchSnippetWords),
		cfg.WebSearchMaxResults,
	)

	var observer ports.PipelineObserver
	if o.metrics != nil {
		observer = o.metrics
	}
	pipelineUC := usecase.NewPipelineUseCase(
		retriever,
		usecase.NewAnswerGenerator(generator),
		observer,
		usecase.PipelineOptions{
			DefaultTopK: cfg.RAGTopK,
			MaxLocal:    cfg.ContextMaxLocal,
			MaxWeb:      cfg.ContextMaxWeb,
		},
	)

	slog.Info("bootstrap_done",
		"llm_provider", cfg.LLMProvider,
		"llm_model", generator.Model(),
		"embed_model", embedder.Model(),
		"web_search", cfg.WebSearchEnabled,
		"nats", queue != nil,
	)

	return &App{
		Config:     cfg,
		Storage:    storage,
		Index:      index,
		Queue:      queue,
		BuildUC:    buildUC,
		IngestUC:   ingestUC,
		PipelineUC: pipelineUC,
		closeFn: func() {
			if queue != nil {
				queue.Close()
			}
		},
	}, nil
}

// EnsureIndex loads the persisted index or builds it from the configured
// knowledge source. A missing source leaves the index unloaded and is not an
// error: uploads can still populate it.
func (a *App) EnsureIndex(ctx context.Context) (domain.IndexStats, error) {
	source := a.Config.KnowledgeSource
	if source != "" && !a.Storage.Exists(source) {
		slog.Warn("knowledge_source_missing", "source", source, "storage_path", a.Config.StoragePath)
		source = ""
	}
	stats, err := a.BuildUC.LoadOrBuild(ctx, source)
	if errors.Is(err, domain.ErrIndexUnavailable) {
		slog.Warn("knowledge_index_unavailable", "error", err)
		return domain.IndexStats{}, nil
	}
	return stats, err
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		RetryMaxBackoff:     cfg.RetryMaxBackoff,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.BreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.BreakerFailureRatio,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
		AttemptOverrides:    map[string]int{"websearch.": cfg.WebSearchMaxAttempts},
	}
}

func newEmbedder(cfg config.Config, executor *resilience.Executor) (ports.Embedder, error) {
	switch cfg.EmbedProvider {
	case "", "ollama":
		return ollama.NewEmbedder(ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)), nil
	case "openai":
		return openai.NewEmbedder(openai.New(openAIOptions(cfg, executor))), nil
	default:
		return nil, domain.WrapError(domain.ErrNotConfigured, "select embedder", fmt.Errorf("unknown EMBED_PROVIDER %q", cfg.EmbedProvider))
	}
}

func newGenerator(cfg config.Config, executor *resilience.Executor) (ports.TextGenerator, error) {
	switch cfg.LLMProvider {
	case "", "ollama":
		return ollama.NewGenerator(ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)), nil
	case "openai":
		return openai.NewGenerator(openai.New(openAIOptions(cfg, executor))), nil
	default:
		return nil, domain.WrapError(domain.ErrNotConfigured, "select generator", fmt.Errorf("unknown LLM_PROVIDER %q", cfg.LLMProvider))
	}
}

func openAIOptions(cfg config.Config, executor *resilience.Executor) openai.Options {
	return openai.Options{
		APIKey:     cfg.OpenAIAPIKey,
		BaseURL:    cfg.OpenAIBaseURL,
		ChatModel:  cfg.OpenAIChatModel,
		EmbedModel: cfg.OpenAIEmbedModel,
		Timeout:    cfg.LLMTimeout,
		Executor:   executor,
	}
}
