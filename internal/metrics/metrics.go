package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors the server updates.
type Metrics struct {
	VotesRecorded   prometheus.Counter
	VoteRejections  *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		VotesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "polls",
			Name:      "votes_recorded_total",
			Help:      "Votes successfully recorded.",
		}),
		VoteRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polls",
			Name:      "vote_rejections_total",
			Help:      "Vote submissions rejected, by reason.",
		}, []string{"reason"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "polls",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(m.VotesRecorded, m.VoteRejections, m.RequestDuration)
	return m
}
