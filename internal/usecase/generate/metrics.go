package generate

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder records orchestrator-level events.
type MetricsRecorder interface {
	RecordCooldownMarked(model string)
	RecordCooldownReset()
	RecordOutcome(backend, outcome string)
}

// PrometheusMetrics implements MetricsRecorder.
type PrometheusMetrics struct {
	cooldownMarks  *prometheus.CounterVec
	cooldownResets prometheus.Counter
	outcomes       *prometheus.CounterVec
}

var (
	metricsInstance *PrometheusMetrics
	metricsOnce     sync.Once
)

func registerOrExisting[T prometheus.Collector](c T) T {
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}
	return c
}

// NewPrometheusMetrics returns the process-wide orchestrator metrics.
func NewPrometheusMetrics() *PrometheusMetrics {
	metricsOnce.Do(func() {
		metricsInstance = &PrometheusMetrics{
			cooldownMarks: registerOrExisting(prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "generation_cooldown_marks_total",
				Help: "Models placed in cooldown after a rate limit",
			}, []string{"model"})),
			cooldownResets: registerOrExisting(prometheus.NewCounter(prometheus.CounterOpts{
				Name: "generation_cooldown_resets_total",
				Help: "Times every candidate was cooling down and the table was cleared",
			})),
			outcomes: registerOrExisting(prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "generation_requests_total",
				Help: "Orchestrated generations by winning backend or failure",
			}, []string{"backend", "outcome"})),
		}
	})
	return metricsInstance
}

func (p *PrometheusMetrics) RecordCooldownMarked(model string) {
	p.cooldownMarks.WithLabelValues(model).Inc()
}

func (p *PrometheusMetrics) RecordCooldownReset() {
	p.cooldownResets.Inc()
}

func (p *PrometheusMetrics) RecordOutcome(backend, outcome string) {
	p.outcomes.WithLabelValues(backend, outcome).Inc()
}
