package verifier

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsNamespace = "lincheck"

// Metrics holds the check counters of a run in a private registry.
type Metrics struct {
	registry *prometheus.Registry

	checks        *prometheus.CounterVec
	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	disagreements prometheus.Counter
}

// NewMetrics registers the check metrics in a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "checks_total",
				Help:      "Trace files checked by container kind and verdict",
			},
			[]string{"kind", "verdict"},
		),
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "operations_total",
				Help:      "Operations read from trace files by container kind",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "check_duration_seconds",
				Help:      "Time spent deciding one trace file",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"kind"},
		),
		disagreements: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "crosscheck_disagreements_total",
				Help:      "Files where the porcupine model disagreed with the checker",
			},
		),
	}

	m.registry.MustRegister(m.checks, m.operations, m.duration, m.disagreements)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(res HistoryResult, seconds float64) {
	if m == nil {
		return
	}

	verdict := "false"
	if res.IsLinearizable {
		verdict = "true"
	}

	m.checks.WithLabelValues(res.Kind, verdict).Inc()
	m.operations.WithLabelValues(res.Kind).Add(float64(res.TotalOps))
	m.duration.WithLabelValues(res.Kind).Observe(seconds)

	if res.CrossCheck != nil && !res.CrossCheck.Agrees {
		m.disagreements.Inc()
	}
}
