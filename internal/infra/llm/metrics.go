package llm

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// AttemptMetricsRecorder records per-attempt generation metrics.
// Tests inject a fake; production uses PrometheusAttemptMetrics.
type AttemptMetricsRecorder interface {
	// RecordAttempt records one attempt and its outcome ("success" or a failure kind).
	RecordAttempt(backend, model, outcome string, duration time.Duration)

	// RecordTokens records tokens reported by the backend for a successful attempt.
	RecordTokens(backend, model string, tokens int)
}

// PrometheusAttemptMetrics implements AttemptMetricsRecorder using Prometheus metrics.
type PrometheusAttemptMetrics struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
}

var (
	prometheusMetricsInstance *PrometheusAttemptMetrics
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

// NewPrometheusAttemptMetrics returns the process-wide recorder.
// Uses singleton pattern to avoid duplicate metric registration in tests.
func NewPrometheusAttemptMetrics() *PrometheusAttemptMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusAttemptMetrics{
			attempts: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "generation_attempts_total",
				Help: "Generation attempts by backend, model and outcome",
			}, []string{"backend", "model", "outcome"}),
			duration: getOrCreateHistogramVec(prometheus.HistogramOpts{
				Name:    "generation_attempt_duration_seconds",
				Help:    "Time taken by a single generation attempt",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
			}, []string{"backend", "outcome"}),
			tokens: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "generation_tokens_total",
				Help: "Tokens reported by backends for successful generations",
			}, []string{"backend", "model"}),
		}
	})
	return prometheusMetricsInstance
}

// RecordAttempt implements AttemptMetricsRecorder.RecordAttempt
func (p *PrometheusAttemptMetrics) RecordAttempt(backend, model, outcome string, duration time.Duration) {
	p.attempts.WithLabelValues(backend, model, outcome).Inc()
	p.duration.WithLabelValues(backend, outcome).Observe(duration.Seconds())
}

// RecordTokens implements AttemptMetricsRecorder.RecordTokens
func (p *PrometheusAttemptMetrics) RecordTokens(backend, model string, tokens int) {
	if tokens <= 0 {
		return
	}
	p.tokens.WithLabelValues(backend, model).Add(float64(tokens))
}
