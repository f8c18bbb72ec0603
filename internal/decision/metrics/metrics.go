package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for submitted applications and their decisions.
type Metrics struct {
	// Decision outcomes by kind and entry point
	DecisionOutcome *prometheus.CounterVec

	// Submissions that produced no decision, by failure category
	SubmissionFailures *prometheus.CounterVec

	// Overall submit latency including the provider round trip
	SubmitLatency prometheus.Histogram
}

// New creates a new Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_decision_outcomes_total",
			Help: "Total decision outcomes by kind and entry point",
		}, []string{"outcome", "source"}), // source: "api", "form"

		SubmissionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_submission_failures_total",
			Help: "Total submissions without a decision by failure category",
		}, []string{"category"}),

		SubmitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_submit_duration_seconds",
			Help:    "Duration of application submission including the provider call",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}

// IncrementOutcome records a decision outcome.
func (m *Metrics) IncrementOutcome(outcome, source string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(outcome, source).Inc()
	}
}

// IncrementFailure records a submission that ended without a decision.
func (m *Metrics) IncrementFailure(category string) {
	if m != nil {
		m.SubmissionFailures.WithLabelValues(category).Inc()
	}
}

// ObserveSubmitLatency records the total submission duration.
func (m *Metrics) ObserveSubmitLatency(d time.Duration) {
	if m != nil {
		m.SubmitLatency.Observe(d.Seconds())
	}
}
