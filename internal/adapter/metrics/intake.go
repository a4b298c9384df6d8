package metrics

import "github.com/prometheus/client_golang/prometheus"

// IntakeMetrics holds Prometheus metrics for incoming chat messages.
type IntakeMetrics struct {
	Messages     *prometheus.CounterVec
	SpamDetected prometheus.Counter
	ChatsLeft    prometheus.Counter
}

// NewIntakeMetrics creates and registers message intake metrics on the given registry.
func NewIntakeMetrics(reg prometheus.Registerer) *IntakeMetrics {
	m := &IntakeMetrics{
		Messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "messages_total",
			Help:      "Total number of messages ingested, by action taken.",
		}, []string{"action"}),
		SpamDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "spam_detected_total",
			Help:      "Total number of messages the classifier flagged as spam.",
		}),
		ChatsLeft: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "chats_left_total",
			Help:      "Total number of foreign chats the bot left after being added.",
		}),
	}

	reg.MustRegister(m.Messages, m.SpamDetected, m.ChatsLeft)
	return m
}
