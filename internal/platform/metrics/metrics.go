package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
// Construct once in main; services treat a nil *Metrics as "metrics off".
type Metrics struct {
	SubmissionsTotal   *prometheus.CounterVec
	RateLimitDecisions *prometheus.CounterVec
	BreakerState       prometheus.Gauge
	BreakerTransitions *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SubmissionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "laudo_submissions_total",
			Help: "Submission attempts by origin and outcome status",
		}, []string{"origin", "status"}),
		RateLimitDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "laudo_ratelimit_decisions_total",
			Help: "Rate limiter decisions by kind (admitted, rejected, blocked)",
		}, []string{"decision"}),
		BreakerState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "laudo_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		}),
		BreakerTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "laudo_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions by target state",
		}, []string{"to"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "laudo_audit_write_failures_total",
			Help: "Audit records that could not be persisted (swallowed, logged only)",
		}),
	}
}

// RecordSubmission counts one submission attempt outcome.
func (m *Metrics) RecordSubmission(origin, status string) {
	if m == nil {
		return
	}
	m.SubmissionsTotal.WithLabelValues(origin, status).Inc()
}

// RecordRateLimitDecision counts one limiter decision.
func (m *Metrics) RecordRateLimitDecision(decision string) {
	if m == nil {
		return
	}
	m.RateLimitDecisions.WithLabelValues(decision).Inc()
}

// SetBreakerState records the current breaker state.
func (m *Metrics) SetBreakerState(state float64) {
	if m == nil {
		return
	}
	m.BreakerState.Set(state)
}

// RecordBreakerTransition counts a breaker transition.
func (m *Metrics) RecordBreakerTransition(to string) {
	if m == nil {
		return
	}
	m.BreakerTransitions.WithLabelValues(to).Inc()
}

// RecordAuditWriteFailure counts a swallowed audit persistence failure.
func (m *Metrics) RecordAuditWriteFailure() {
	if m == nil {
		return
	}
	m.AuditWriteFailures.Inc()
}
