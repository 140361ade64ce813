package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/mcq-rag-assistant/internal/config"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
	"github.com/kirillkom/mcq-rag-assistant/internal/core/ports"
	"github.com/kirillkom/mcq-rag-assistant/internal/observability/metrics"
)

const defaultMaxUploadBytes = 32 << 20

type Router struct {
	cfg       config.Config
	answerer  ports.QuestionAnswerer
	searcher  ports.KnowledgeSearcher
	ingestor  ports.KnowledgeIngestor
	metrics   *metrics.HTTPServerMetrics
	validator *requestValidator
}

func NewRouter(
	cfg config.Config,
	answerer ports.QuestionAnswerer,
	searcher ports.KnowledgeSearcher,
	ingestor ports.KnowledgeIngestor,
) *Router {
	validator, err := newRequestValidator()
	if err != nil {
		// The document is embedded; this only fails on a broken build.
		panic(err)
	}
	return &Router{
		cfg:       cfg,
		answerer:  answerer,
		searcher:  searcher,
		ingestor:  ingestor,
		validator: validator,
	}
}

// WithMetrics enables request metrics and exposes GET /metrics.
func (rt *Router) WithMetrics(m *metrics.HTTPServerMetrics) *Router {
	rt.metrics = m
	return rt
}

func (rt *Router) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/v1/ask", rt.ask)
	api.HandleFunc("/ask", rt.ask)
	api.HandleFunc("/v1/knowledge", rt.uploadKnowledge)
	api.HandleFunc("/v1/knowledge/stats", rt.knowledgeStats)
	api.HandleFunc("/v1/knowledge/search", rt.searchKnowledge)

	var limited http.Handler = api
	limited = requestTimeoutMiddleware(limited, rt.cfg.APIRequestTimeout)
	limited = backpressureMiddleware(limited, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	limited = rateLimitMiddleware(limited, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)

	root := http.NewServeMux()
	root.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		root.Handle("/metrics", rt.metrics.Handler())
	}
	root.Handle("/", limited)

	var handler http.Handler = root
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{"status": "ok"}
	if rt.searcher != nil {
		_, loaded := rt.searcher.Stats()
		status["index_loaded"] = loaded
	}
	writeJSON(w, http.StatusOK, status)
}

func (rt *Router) ask(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if r.Header.Get("Content-Type") == "" {
		r.Header.Set("Content-Type", "application/json")
	}
	if err := rt.validator.Validate(r); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.ErrorResponse(domain.FailureInvalidInput, validationMessage(err)))
		return
	}

	var req domain.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.ErrorResponse(domain.FailureInvalidInput, "invalid json"))
		return
	}

	resp := rt.answerer.AnswerQuestion(r.Context(), req)
	slog.Info("question_answered",
		"request_id", requestIDFromContext(r.Context()),
		"answer", resp.Answer,
		"failure", string(resp.Failure),
		"local_contexts", len(resp.Contexts.Local),
		"web_contexts", len(resp.Contexts.Web),
	)
	writeJSON(w, mapFailureToHTTPStatus(resp.Failure), resp)
}

func (rt *Router) uploadKnowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if rt.ingestor == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "knowledge upload is disabled"})
		return
	}

	maxBytes := rt.cfg.APIMaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload exceeds size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	receipt, err := rt.ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	if receipt.Queued {
		writeJSON(w, http.StatusAccepted, receipt)
		return
	}
	if rt.searcher != nil {
		if stats, ok := rt.searcher.Stats(); ok {
			receipt.Stats = &stats
		}
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (rt *Router) knowledgeStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	stats, ok := rt.searcher.Stats()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": domain.ErrIndexUnavailable.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) searchKnowledge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	if err := rt.validator.Validate(r); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": validationMessage(err)})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	topK := rt.cfg.RAGTopK
	if raw := r.URL.Query().Get("top_k"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			topK = n
		}
	}

	results, err := rt.searcher.Search(r.Context(), query, topK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": query, "results": results})
}

// validationMessage drops the wrapping so clients see only the schema complaint.
func validationMessage(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, domain.ErrInvalidInput.Error()+": "); i >= 0 {
		msg = msg[i+len(domain.ErrInvalidInput.Error())+2:]
	}
	return msg
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
