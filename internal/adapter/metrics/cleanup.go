package metrics

import "github.com/prometheus/client_golang/prometheus"

// CleanupMetrics holds Prometheus metrics for delayed message deletion.
type CleanupMetrics struct {
	Scheduled       prometheus.Counter
	MessagesDeleted *prometheus.CounterVec
	IsLeader        prometheus.Gauge
}

// NewCleanupMetrics creates and registers cleanup metrics on the given registry.
func NewCleanupMetrics(reg prometheus.Registerer) *CleanupMetrics {
	m := &CleanupMetrics{
		Scheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "scheduled_total",
			Help:      "Total number of cleanup jobs scheduled.",
		}),
		MessagesDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "messages_deleted_total",
			Help:      "Total number of scheduled message deletions, by result.",
		}, []string{"result"}),
		IsLeader: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cleanup",
			Name:      "is_leader",
			Help:      "1 if this instance currently holds the sweeper lease.",
		}),
	}

	reg.MustRegister(m.Scheduled, m.MessagesDeleted, m.IsLeader)
	return m
}
