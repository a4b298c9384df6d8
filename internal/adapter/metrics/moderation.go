package metrics

import "github.com/prometheus/client_golang/prometheus"

// ModerationMetrics holds Prometheus metrics for the spam classifier client.
type ModerationMetrics struct {
	Requests            *prometheus.CounterVec
	RequestDuration     prometheus.Histogram
	CircuitBreakerState prometheus.Gauge
}

// NewModerationMetrics creates and registers classifier metrics on the given registry.
func NewModerationMetrics(reg prometheus.Registerer) *ModerationMetrics {
	m := &ModerationMetrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "requests_total",
			Help:      "Total number of classifier calls, by outcome.",
		}, []string{"outcome"}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "request_duration_seconds",
			Help:      "Duration of classifier HTTP calls in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		CircuitBreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "circuit_breaker_state",
			Help:      "Classifier circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
	}

	reg.MustRegister(m.Requests, m.RequestDuration, m.CircuitBreakerState)
	return m
}
