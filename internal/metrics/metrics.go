// Package metrics exposes Prometheus collectors for filter runs, shape
// lookups, and exports.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gst-filter collectors. A nil *Metrics is a no-op.
type Metrics struct {
	// Filter runs by mode (snapshot, state, city) and outcome
	FilterRuns *prometheus.CounterVec

	FilterLatency *prometheus.HistogramVec

	// Records surviving the full pipeline
	FilterRecords prometheus.Histogram

	StageLatency *prometheus.HistogramVec

	ShapeLookupLatency *prometheus.HistogramVec
	ShapeLookupRecords *prometheus.CounterVec

	Exports        *prometheus.CounterVec
	CreditsCharged prometheus.Counter
}

// New registers all collectors with reg. Passing a fresh registry keeps
// tests independent of the global default.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		FilterRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gstfilter_filter_runs_total",
			Help: "Filter requests by scope mode and outcome",
		}, []string{"mode", "outcome"}),

		FilterLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gstfilter_filter_duration_seconds",
			Help:    "Duration of filter requests including data acquisition",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"mode"}),

		FilterRecords: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gstfilter_filter_result_records",
			Help:    "Records in the final filtered set",
			Buckets: prometheus.ExponentialBuckets(1, 10, 7),
		}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gstfilter_stage_duration_seconds",
			Help:    "Duration of individual pipeline stages",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"stage"}),

		ShapeLookupLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gstfilter_shape_lookup_duration_seconds",
			Help:    "Duration of per-shape spatial lookups",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"level"}),

		ShapeLookupRecords: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gstfilter_shape_lookup_records_total",
			Help: "Records returned by spatial lookups",
		}, []string{"level"}),

		Exports: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gstfilter_exports_total",
			Help: "Completed exports by format",
		}, []string{"format"}),

		CreditsCharged: f.NewCounter(prometheus.CounterOpts{
			Name: "gstfilter_credits_charged_total",
			Help: "Credits deducted for exports",
		}),
	}
}

// ObserveFilter records one filter request.
func (m *Metrics) ObserveFilter(mode, outcome string, d time.Duration, records int) {
	if m == nil {
		return
	}
	m.FilterRuns.WithLabelValues(mode, outcome).Inc()
	m.FilterLatency.WithLabelValues(mode).Observe(d.Seconds())
	if outcome == OutcomeOK {
		m.FilterRecords.Observe(float64(records))
	}
}

// ObserveStage records one pipeline stage duration.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveShapeLookup records one spatial lookup.
func (m *Metrics) ObserveShapeLookup(level string, d time.Duration, records int) {
	if m != nil {
		m.ShapeLookupLatency.WithLabelValues(level).Observe(d.Seconds())
		m.ShapeLookupRecords.WithLabelValues(level).Add(float64(records))
	}
}

// IncrementExport records a charged export.
func (m *Metrics) IncrementExport(format string, credits int) {
	if m != nil {
		m.Exports.WithLabelValues(format).Inc()
		m.CreditsCharged.Add(float64(credits))
	}
}

// Filter outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeInvalid   = "invalid"
	OutcomeNoShapes  = "no_shapes"
	OutcomeNoRecords = "no_records"
	OutcomeError     = "error"
)
