// Package metrics exposes Prometheus instruments for validation and
// aggregation. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Validation runs by outcome ("valid", "invalid")
	ValidationRuns *prometheus.CounterVec

	// Flagged fields by form field key
	Violations *prometheus.CounterVec

	AggregationDuration prometheus.Histogram

	// Submissions of the last aggregation of a month whose institution is
	// missing from the directory
	Unmatched *prometheus.GaugeVec

	// Regions currently above the care-burden threshold, by month
	OverloadedRegions *prometheus.GaugeVec

	// Worker recomputes by trigger ("startup", "poll", "event") and result ("ok", "error")
	Recomputes *prometheus.CounterVec
}

// New registers every instrument with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers every instrument with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ValidationRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_validation_runs_total",
			Help: "Submissions checked by the consistency validator",
		}, []string{"outcome"}),

		Violations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_validation_violations_total",
			Help: "Fields flagged by the consistency validator",
		}, []string{"field"}),

		AggregationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "survey_aggregation_duration_seconds",
			Help:    "Duration of a full month recompute including snapshot load",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),

		Unmatched: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "survey_unmatched_submissions",
			Help: "Submissions excluded from the latest rollup of a month because the institution is unknown",
		}, []string{"month"}),

		OverloadedRegions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "survey_overloaded_regions",
			Help: "Regions whose users-per-staff ratio exceeds the overload threshold",
		}, []string{"month"}),

		Recomputes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "survey_recomputes_total",
			Help: "Month recomputes run by the aggregation worker",
		}, []string{"trigger", "result"}),
	}
}

// ObserveValidation records one validator run and its flagged fields.
func (m *Metrics) ObserveValidation(fields []string) {
	if m == nil {
		return
	}
	if len(fields) == 0 {
		m.ValidationRuns.WithLabelValues("valid").Inc()
		return
	}
	m.ValidationRuns.WithLabelValues("invalid").Inc()
	for _, f := range fields {
		m.Violations.WithLabelValues(f).Inc()
	}
}

// ObserveAggregation records one aggregation of month. Repeated reads of the
// same month overwrite its unmatched gauge.
func (m *Metrics) ObserveAggregation(month string, d time.Duration, unmatched int) {
	if m == nil {
		return
	}
	m.AggregationDuration.Observe(d.Seconds())
	m.Unmatched.WithLabelValues(month).Set(float64(unmatched))
}

func (m *Metrics) SetOverloadedRegions(month string, n int) {
	if m != nil {
		m.OverloadedRegions.WithLabelValues(month).Set(float64(n))
	}
}

func (m *Metrics) IncrementRecompute(trigger string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Recomputes.WithLabelValues(trigger, result).Inc()
}
