package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort  string
	LogLevel string

	IndexPath        string
	StoragePath      string
	KnowledgeSource  string
	UploadExtensions []string

	ChunkSize       int
	ChunkOverlap    int
	EmbedBatchSize  int
	RAGTopK         int
	ContextMaxLocal int
	ContextMaxWeb   int

	LLMProvider   string
	EmbedProvider string

	OllamaURL        string
	OllamaGenModel   string
	OllamaEmbedModel string

	OpenAIAPIKey     string
	OpenAIBaseURL    string
	OpenAIChatModel  string
	OpenAIEmbedModel string
	LLMTimeout       time.Duration

	WebSearchEnabled      bool
	WebSearchURL          string
	WebSearchRegion       string
	WebSearchTimeout      time.Duration
	WebSearchWorkers      int
	WebSearchRate         float64
	WebSearchBurst        int
	WebSearchMaxResults   int
	WebSearchSnippetWords int
	WebSearchMaxAttempts  int

	RetryMaxAttempts    int
	RetryInitialBackoff time.Duration
	RetryMaxBackoff     time.Duration
	BreakerEnabled      bool
	BreakerMinRequests  int
	BreakerFailureRatio float64
	BreakerOpenTimeout  time.Duration

	NATSEnabled        bool
	NATSURL            string
	NATSReindexSubject string
	NATSUpdatedSubject string

	APIRateLimitRPS     float64
	APIRateLimitBurst   int
	APIMaxInFlight      int
	APIBackpressureWait time.Duration
	APIRequestTimeout   time.Duration
	APIMaxUploadBytes   int64

	WorkerMetricsPort string
}

// Load reads configuration from the environment. When CONFIG_FILE points at a
// YAML file of KEY: value pairs, those values sit between the environment and
// the built-in defaults.
func Load() (Config, error) {
	file := map[string]string{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		overlay, err := readOverlay(path)
		if err != nil {
			return Config{}, err
		}
		file = overlay
	}
	s := source{file: file}

	return Config{
		APIPort:  s.str("API_PORT", "8080"),
		LogLevel: s.str("LOG_LEVEL", "info"),

		IndexPath:        s.str("INDEX_PATH", "./data/index"),
		StoragePath:      s.str("STORAGE_PATH", "./data/knowledge"),
		KnowledgeSource:  s.str("KNOWLEDGE_SOURCE", "knowledge_base.txt"),
		UploadExtensions: s.list("UPLOAD_EXTENSIONS", ".txt,.md,.pdf,.xlsx"),

		ChunkSize:       s.integer("CHUNK_SIZE", 800),
		ChunkOverlap:    s.integer("CHUNK_OVERLAP", 200),
		EmbedBatchSize:  s.integer("EMBED_BATCH_SIZE", 32),
		RAGTopK:         s.integer("RAG_TOP_K", 3),
		ContextMaxLocal: s.integer("CONTEXT_MAX_LOCAL", 3),
		ContextMaxWeb:   s.integer("CONTEXT_MAX_WEB", 3),

		LLMProvider:   strings.ToLower(s.str("LLM_PROVIDER", "ollama")),
		EmbedProvider: strings.ToLower(s.str("EMBED_PROVIDER", "ollama")),

		OllamaURL:        s.str("OLLAMA_URL", "http://localhost:11434"),
		OllamaGenModel:   s.str("OLLAMA_GEN_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: s.str("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		OpenAIAPIKey:     s.str("OPENAI_API_KEY", ""),
		OpenAIBaseURL:    s.str("OPENAI_BASE_URL", ""),
		OpenAIChatModel:  s.str("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		OpenAIEmbedModel: s.str("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		LLMTimeout:       s.duration("LLM_TIMEOUT", 60*time.Second),

		WebSearchEnabled:      s.boolean("WEB_SEARCH_ENABLED", true),
		WebSearchURL:          s.str("WEB_SEARCH_URL", ""),
		WebSearchRegion:       s.str("WEB_SEARCH_REGION", "wt-wt"),
		WebSearchTimeout:      s.duration("WEB_SEARCH_TIMEOUT", 8*time.Second),
		WebSearchWorkers:      s.integer("WEB_SEARCH_WORKERS", 4),
		WebSearchRate:         s.float("WEB_SEARCH_RATE", 1),
		WebSearchBurst:        s.integer("WEB_SEARCH_BURST", 2),
		WebSearchMaxResults:   s.integer("WEB_SEARCH_MAX_RESULTS", 5),
		WebSearchSnippetWords: s.integer("WEB_SEARCH_SNIPPET_WORDS", 150),
		WebSearchMaxAttempts:  s.integer("WEB_SEARCH_MAX_ATTEMPTS", 2),

		RetryMaxAttempts:    s.integer("RETRY_MAX_ATTEMPTS", 3),
		RetryInitialBackoff: s.duration("RETRY_INITIAL_BACKOFF", 100*time.Millisecond),
		RetryMaxBackoff:     s.duration("RETRY_MAX_BACKOFF", 400*time.Millisecond),
		BreakerEnabled:      s.boolean("BREAKER_ENABLED", true),
		BreakerMinRequests:  s.integer("BREAKER_MIN_REQUESTS", 10),
		BreakerFailureRatio: s.float("BREAKER_FAILURE_RATIO", 0.5),
		BreakerOpenTimeout:  s.duration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		NATSEnabled:        s.boolean("NATS_ENABLED", false),
		NATSURL:            s.str("NATS_URL", "nats://localhost:4222"),
		NATSReindexSubject: s.str("NATS_REINDEX_SUBJECT", "knowledge.reindex"),
		NATSUpdatedSubject: s.str("NATS_UPDATED_SUBJECT", "knowledge.index.updated"),

		APIRateLimitRPS:     s.float("API_RATE_LIMIT_RPS", 10),
		APIRateLimitBurst:   s.integer("API_RATE_LIMIT_BURST", 20),
		APIMaxInFlight:      s.integer("API_MAX_IN_FLIGHT", 16),
		APIBackpressureWait: s.duration("API_BACKPRESSURE_WAIT", 250*time.Millisecond),
		APIRequestTimeout:   s.duration("API_REQUEST_TIMEOUT", 90*time.Second),
		APIMaxUploadBytes:   int64(s.integer("API_MAX_UPLOAD_BYTES", 32<<20)),

		WorkerMetricsPort: s.str("WORKER_METRICS_PORT", "9090"),
	}, nil
}

func readOverlay(path string) (map[string]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var values map[string]any
	if err := yaml.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	out := make(map[string]string, len(values))
	for key, value := range values {
		if value == nil {
			continue
		}
		if items, ok := value.([]any); ok {
			parts := make([]string, 0, len(items))
			for _, item := range items {
				parts = append(parts, fmt.Sprint(item))
			}
			out[strings.ToUpper(key)] = strings.Join(parts, ",")
			continue
		}
		out[strings.ToUpper(key)] = fmt.Sprint(value)
	}
	return out, nil
}

type source struct {
	file map[string]string
}

func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) str(key, fallback string) string {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	return v
}

func (s source) integer(key string, fallback int) int {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func (s source) float(key string, fallback float64) float64 {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func (s source) boolean(key string, fallback bool) bool {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// duration accepts Go duration strings ("750ms") or whole seconds ("8").
func (s source) duration(key string, fallback time.Duration) time.Duration {
	v := s.lookup(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func (s source) list(key, fallback string) []string {
	v := s.str(key, fallback)
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
