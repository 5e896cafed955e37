// Package metrics provides observability for the compliance engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for rule evaluation and violation
// case management. All methods are nil-safe so tests can pass a nil receiver.
type Metrics struct {
	ViolationsDetected *prometheus.CounterVec
	RuleFailures       *prometheus.CounterVec
	EvaluateLatency    prometheus.Histogram
	Resolutions        prometheus.Counter
	PatternsDetected   *prometheus.CounterVec
}

// New creates and registers all compliance metrics.
func New() *Metrics {
	return &Metrics{
		ViolationsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_violations_detected_total",
			Help: "Total violations detected by rule and severity",
		}, []string{"rule", "severity"}),

		RuleFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_rule_failures_total",
			Help: "Total rule evaluations that errored and were skipped",
		}, []string{"rule"}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "compliance_evaluate_duration_seconds",
			Help:    "Duration of full rule evaluation including context building",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		Resolutions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compliance_violations_resolved_total",
			Help: "Total violations resolved through case management",
		}),

		PatternsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "compliance_patterns_detected_total",
			Help: "Total suspicious patterns detected by type",
		}, []string{"pattern_type"}),
	}
}

// RecordViolation counts one detected violation.
func (m *Metrics) RecordViolation(rule, severity string) {
	if m != nil {
		m.ViolationsDetected.WithLabelValues(rule, severity).Inc()
	}
}

// RecordRuleFailure counts a swallowed rule error.
func (m *Metrics) RecordRuleFailure(rule string) {
	if m != nil {
		m.RuleFailures.WithLabelValues(rule).Inc()
	}
}

// ObserveEvaluateLatency records the duration of one evaluation.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// RecordResolution counts one resolved violation.
func (m *Metrics) RecordResolution() {
	if m != nil {
		m.Resolutions.Inc()
	}
}

// RecordPattern counts one detected pattern.
func (m *Metrics) RecordPattern(patternType string) {
	if m != nil {
		m.PatternsDetected.WithLabelValues(patternType).Inc()
	}
}
