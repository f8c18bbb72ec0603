package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit publishing.
type Metrics struct {
	Emitted         *prometheus.CounterVec
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

// New creates a new Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Emitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_audit_events_total",
			Help: "Total number of audit events persisted by action",
		}, []string{"action"}),
		Dropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_audit_dropped_total",
			Help: "Total number of audit events dropped because the buffer was full",
		}),
		PersistFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
	}
}

// IncEmitted increments the persisted counter.
func (m *Metrics) IncEmitted(action string) {
	if m != nil {
		m.Emitted.WithLabelValues(action).Inc()
	}
}

// IncDropped increments the dropped counter.
func (m *Metrics) IncDropped() {
	if m != nil {
		m.Dropped.Inc()
	}
}

// IncPersistFailures increments the persist failures counter.
func (m *Metrics) IncPersistFailures() {
	if m != nil {
		m.PersistFailures.Inc()
	}
}
