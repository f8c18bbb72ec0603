package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the intake form.
type Metrics struct {
	// Schema resolutions by origin ("provider", "fallback") and reason
	SchemaResolutions *prometheus.CounterVec

	// Submissions blocked by client-side validation
	ValidationFailures prometheus.Counter
}

// New creates a new Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SchemaResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_form_schema_resolutions_total",
			Help: "Total form schema resolutions by origin and fallback reason",
		}, []string{"origin", "reason"}),
		ValidationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "intake_form_validation_failures_total",
			Help: "Total form submissions blocked by validation",
		}),
	}
}

// IncResolution records one schema resolution.
func (m *Metrics) IncResolution(origin, reason string) {
	if m != nil {
		m.SchemaResolutions.WithLabelValues(origin, reason).Inc()
	}
}

// IncValidationFailure records one blocked submission.
func (m *Metrics) IncValidationFailure() {
	if m != nil {
		m.ValidationFailures.Inc()
	}
}
