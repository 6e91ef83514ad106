package polish

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder records document-level polish metrics.
type MetricsRecorder interface {
	// RecordChunk records one chunk outcome: "polished" or "passthrough".
	RecordChunk(outcome string)

	// RecordReassembly records the reassembly outcome: "formatted" or "merged".
	RecordReassembly(outcome string)

	// RecordRun records a finished document run.
	RecordRun(operation, outcome string, chunks int, duration time.Duration)
}

// PrometheusMetrics implements MetricsRecorder using Prometheus metrics.
type PrometheusMetrics struct {
	chunks      *prometheus.CounterVec
	reassembly  *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	runChunks   prometheus.Histogram
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

// getOrCreateCounterVec gets an existing counter vector or registers a new one.
func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// getOrCreateHistogramVec gets an existing histogram vector or registers a new one.
func getOrCreateHistogramVec(opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	h := prometheus.NewHistogramVec(opts, labels)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.HistogramVec)
		}
		return promauto.NewHistogramVec(opts, labels)
	}
	return h
}

// getOrCreateHistogram gets an existing histogram or registers a new one.
func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		return promauto.NewHistogram(opts)
	}
	return h
}

// NewPrometheusMetrics returns the process-wide polish metrics.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			chunks: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "polish_chunks_total",
				Help: "Chunks processed, by outcome (polished or passthrough)",
			}, []string{"outcome"}),
			reassembly: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "polish_reassembly_total",
				Help: "Reassembly passes, by outcome (formatted or merged)",
			}, []string{"outcome"}),
			runs: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "polish_runs_total",
				Help: "Document runs by operation and outcome",
			}, []string{"operation", "outcome"}),
			runDuration: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "polish_run_duration_seconds",
				Help:    "Wall time of a document run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 14),
			}, []string{"operation"}),
			runChunks: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "polish_run_chunks",
				Help:    "Chunks per polished document",
				Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34},
			}),
		}
	})
	return prometheusMetricsInstance
}

// RecordChunk implements MetricsRecorder.RecordChunk
func (p *PrometheusMetrics) RecordChunk(outcome string) {
	p.chunks.WithLabelValues(outcome).Inc()
}

// RecordReassembly implements MetricsRecorder.RecordReassembly
func (p *PrometheusMetrics) RecordReassembly(outcome string) {
	p.reassembly.WithLabelValues(outcome).Inc()
}

// RecordRun implements MetricsRecorder.RecordRun
func (p *PrometheusMetrics) RecordRun(operation, outcome string, chunks int, duration time.Duration) {
	p.runs.WithLabelValues(operation, outcome).Inc()
	p.runDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if operation == "polish" && chunks > 0 {
		p.runChunks.Observe(float64(chunks))
	}
}
