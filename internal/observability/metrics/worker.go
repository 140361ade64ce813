package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/mcq-rag-assistant/internal/core/domain"
)

// WorkerMetrics covers the indexer process: rebuild counts, durations and the
// size of the last successful index.
type WorkerMetrics struct {
	service  string
	registry *prometheus.Registry

	buildTotal    *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	buildInFlight prometheus.Gauge
	indexChunks   prometheus.Gauge
	queueLag      prometheus.Histogram
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	serviceLabel := prometheus.Labels{"service": service}

	buildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "builds_total",
			Help:        "Total index rebuilds by status.",
			ConstLabels: serviceLabel,
		},
		[]string{"status"},
	)
	buildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "build_duration_seconds",
			Help:        "Index rebuild duration in seconds by status.",
			Buckets:     []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: serviceLabel,
		},
		[]string{"status"},
	)
	buildInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "builds_in_flight",
			Help:        "Number of in-flight index rebuilds.",
			ConstLabels: serviceLabel,
		},
	)
	indexChunks := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "index_chunks",
			Help:        "Chunk count of the last successfully built index.",
			ConstLabels: serviceLabel,
		},
	)
	queueLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "indexer",
			Name:        "queue_lag_seconds",
			Help:        "Delay between a reindex request and its build start.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: serviceLabel,
		},
	)

	registry.MustRegister(buildTotal, buildDuration, buildInFlight, indexChunks, queueLag)

	return &WorkerMetrics{
		service:       service,
		registry:      registry,
		buildTotal:    buildTotal,
		buildDuration: buildDuration,
		buildInFlight: buildInFlight,
		indexChunks:   indexChunks,
		queueLag:      queueLag,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBuild() {
	m.buildInFlight.Inc()
}

func (m *WorkerMetrics) FinishBuild(stats domain.IndexStats, duration time.Duration, err error) {
	m.buildInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	} else {
		m.indexChunks.Set(float64(stats.Chunks))
	}

	m.buildTotal.WithLabelValues(status).Inc()
	m.buildDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *WorkerMetrics) ObserveQueueLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.queueLag.Observe(lag.Seconds())
}
