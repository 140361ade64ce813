package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

const namespace = "mcq"

type HTTPServerMetrics struct {
	service  string
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	pipelineTotal    *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	retrievedLocal   prometheus.Histogram
	retrievedWeb     prometheus.Histogram
	noContextTotal   prometheus.Counter
	breakerState     *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: serviceLabel,
		},
	)
	pipelineTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "requests_total",
			Help:        "Answered questions by outcome.",
			ConstLabels: serviceLabel,
		},
		[]string{"outcome"},
	)
	pipelineDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "duration_seconds",
			Help:        "End-to-end question answering duration in seconds.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
			ConstLabels: serviceLabel,
		},
		[]string{"outcome"},
	)
	retrievedLocal := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "local_hits",
			Help:        "Local knowledge chunks used per question.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8},
			ConstLabels: serviceLabel,
		},
	)
	retrievedWeb := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "web_hits",
			Help:        "Web results used per question.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8},
			ConstLabels: serviceLabel,
		},
	)
	noContextTotal := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "pipeline",
			Name:        "no_context_total",
			Help:        "Questions answered without any retrieved context.",
			ConstLabels: serviceLabel,
		},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "upstream",
			Name:        "breaker_state",
			Help:        "Circuit breaker state per upstream operation: 0 closed, 1 half-open, 2 open.",
			ConstLabels: serviceLabel,
		},
		[]string{"operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		pipelineTotal,
		pipelineDuration,
		retrievedLocal,
		retrievedWeb,
		noContextTotal,
		breakerState,
	)

	return &HTTPServerMetrics{
		service:          service,
		registry:         registry,
		requestTotal:     requestTotal,
		requestDuration:  requestDuration,
		requestInFlight:  requestInFlight,
		pipelineTotal:    pipelineTotal,
		pipelineDuration: pipelineDuration,
		retrievedLocal:   retrievedLocal,
		retrievedWeb:     retrievedWeb,
		noContextTotal:   noContextTotal,
		breakerState:     breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := r.URL.Path
		if recorder.statusCode == http.StatusNotFound {
			path = "unmatched"
		}
		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// ObservePipeline records one answered question.
func (m *HTTPServerMetrics) ObservePipeline(outcome domain.FailureKind, localHits, webHits int, duration time.Duration) {
	label := string(outcome)
	if outcome == domain.FailureNone {
		label = "answered"
	}
	m.pipelineTotal.WithLabelValues(label).Inc()
	m.pipelineDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.retrievedLocal.Observe(float64(localHits))
	m.retrievedWeb.Observe(float64(webHits))
	if outcome == domain.FailureNoContext {
		m.noContextTotal.Inc()
	}
}

func (m *HTTPServerMetrics) ObserveBreakerState(operation string, state gobreaker.State) {
	var value float64
	switch state {
	case gobreaker.StateHalfOpen:
		value = 1
	case gobreaker.StateOpen:
		value = 2
	}
	m.breakerState.WithLabelValues(operation).Set(value)
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
