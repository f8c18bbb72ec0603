package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for outbound provider calls.
type Metrics struct {
	Calls        *prometheus.CounterVec
	CallDuration *prometheus.HistogramVec
}

// New creates a new Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_provider_calls_total",
			Help: "Total provider calls by operation and result",
		}, []string{"op", "result"}), // result: "ok" or an error category

		CallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "intake_provider_call_duration_seconds",
			Help:    "Duration of provider calls by operation",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"op"}),
	}
}

// ObserveCall records one provider call.
func (m *Metrics) ObserveCall(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(op, result).Inc()
	m.CallDuration.WithLabelValues(op).Observe(d.Seconds())
}
