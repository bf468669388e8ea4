package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineMetrics exposes per-stage counters for ingestion runs.
type PipelineMetrics struct {
	registry *prometheus.Registry

	objectsFetched *prometheus.CounterVec
	objectsSkipped *prometheus.CounterVec
	sectionsTotal  *prometheus.CounterVec
	chunksTotal    *prometheus.CounterVec
	loadFailures   *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	runsInFlight   prometheus.Gauge
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	objectsFetched := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "objects_fetched_total",
			Help:      "Storage objects downloaded for processing.",
		},
		[]string{"service", "category"},
	)
	objectsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "objects_skipped_total",
			Help:      "Storage objects skipped, by reason.",
		},
		[]string{"service", "reason"},
	)
	sectionsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "sections_total",
			Help:      "Document sections produced by structural chunking.",
		},
		[]string{"service", "category"},
	)
	chunksTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "chunks_total",
			Help:      "Final chunks produced, by chunk type.",
		},
		[]string{"service", "chunk_type"},
	)
	loadFailures := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "load_failures_total",
			Help:      "Failed upsert batches, by collection.",
		},
		[]string{"service", "collection"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Ingestion run duration in seconds by outcome.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"service", "outcome"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "libris",
			Subsystem: "pipeline",
			Name:      "runs_in_flight",
			Help:      "Number of ingestion runs currently executing.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)

	registry.MustRegister(objectsFetched, objectsSkipped, sectionsTotal, chunksTotal, loadFailures, runDuration, runsInFlight)

	return &PipelineMetrics{
		registry:        registry,
		objectsFetched:  objectsFetched,
		objectsSkipped:  objectsSkipped,
		sectionsTotal:   sectionsTotal,
		chunksTotal:     chunksTotal,
		loadFailures:    loadFailures,
		runDuration:     runDuration,
		runsInFlight:    runsInFlight,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *PipelineMetrics) ObjectFetched(service, category string) {
	m.objectsFetched.WithLabelValues(service, category).Inc()
}

func (m *PipelineMetrics) ObjectSkipped(service, reason string) {
	m.objectsSkipped.WithLabelValues(service, reason).Inc()
}

func (m *PipelineMetrics) SectionsProduced(service, category string, n int) {
	m.sectionsTotal.WithLabelValues(service, category).Add(float64(n))
}

func (m *PipelineMetrics) ChunkProduced(service, chunkType string) {
	m.chunksTotal.WithLabelValues(service, chunkType).Inc()
}

func (m *PipelineMetrics) LoadFailed(service, collection string) {
	m.loadFailures.WithLabelValues(service, collection).Inc()
}

func (m *PipelineMetrics) StartRun() {
	m.runsInFlight.Inc()
}

func (m *PipelineMetrics) FinishRun(service string, duration time.Duration, succeeded bool) {
	m.runsInFlight.Dec()

	outcome := "success"
	if !succeeded {
		outcome = "failure"
	}
	m.runDuration.WithLabelValues(service, outcome).Observe(duration.Seconds())
}
