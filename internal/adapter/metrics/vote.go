package metrics

import "github.com/prometheus/client_golang/prometheus"

// VoteMetrics holds Prometheus metrics for the ban-poll pipeline.
type VoteMetrics struct {
	VotingsStarted     prometheus.Counter
	VotesProcessed     *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	CASRetries         *prometheus.CounterVec
	ResolutionErrors   prometheus.Counter
}

// NewVoteMetrics creates and registers voting metrics on the given registry.
func NewVoteMetrics(reg prometheus.Registerer) *VoteMetrics {
	m := &VoteMetrics{
		VotingsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votings_started_total",
			Help:      "Total number of ban polls started.",
		}),
		VotesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_processed_total",
			Help:      "Total number of poll answers processed, by result.",
		}, []string{"result"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "votes_processing_duration_seconds",
			Help:      "Duration of poll answer processing in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		}),
		CASRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cas_retries_total",
			Help:      "Total number of version conflicts retried, by record kind.",
		}, []string{"record"}),
		ResolutionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_errors_total",
			Help:      "Total number of resolutions with at least one failed side effect.",
		}),
	}

	reg.MustRegister(m.VotingsStarted, m.VotesProcessed, m.ProcessingDuration, m.CASRetries, m.ResolutionErrors)
	return m
}
