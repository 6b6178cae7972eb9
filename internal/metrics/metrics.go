// Package metrics holds the Prometheus collectors for the analysis service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/trutrend/internal/core"
)

const (
	namespace = "trutrend"
	subsystem = "analysis"
)

// Outcome labels for the analyses counter.
const (
	OutcomeOK                 = "ok"
	OutcomeUnrecognizedFormat = "unrecognized_format"
	OutcomeNoValidRows        = "no_valid_rows"
	OutcomeRejected           = "rejected"
	OutcomeError              = "error"
)

// Metrics groups the collectors updated by the service.
type Metrics struct {
	Analyses    *prometheus.CounterVec
	RowsSeen    *prometheus.CounterVec
	RowsDropped *prometheus.CounterVec
	Findings    *prometheus.CounterVec
	Duration    prometheus.Histogram
	InFlight    prometheus.Gauge
}

// New creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which suits tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "runs_total",
			Help:      "Analyses run, by device type and outcome.",
		}, []string{"device", "outcome"}),
		RowsSeen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_seen_total",
			Help:      "Data rows read from device exports.",
		}, []string{"device"}),
		RowsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rows_dropped_total",
			Help:      "Rows or cells dropped by validation, by reason and stream.",
		}, []string{"reason", "stream"}),
		Findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "findings_total",
			Help:      "Findings emitted, by rule and severity.",
		}, []string{"rule", "severity"}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "duration_ms",
			Help:      "A histogram of analysis execution time (ms).",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 12),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "in_flight",
			Help:      "Analyses currently running.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.Analyses, m.RowsSeen, m.RowsDropped, m.Findings, m.Duration, m.InFlight)
	}
	return m
}

// ObserveReport records row accounting for one ingestion, successful or not.
func (m *Metrics) ObserveReport(r *core.IngestionReport) {
	if r == nil {
		return
	}
	m.RowsSeen.WithLabelValues(string(r.Device)).Add(float64(r.RowsSeen))
	for _, d := range r.Dropped {
		m.RowsDropped.WithLabelValues(string(d.Reason), string(d.Stream)).Add(float64(d.Count))
	}
}

// ObserveAnalysis records a completed analysis.
func (m *Metrics) ObserveAnalysis(a *core.Analysis, elapsed time.Duration) {
	m.Analyses.WithLabelValues(string(a.Device), OutcomeOK).Inc()
	for _, f := range a.Findings {
		m.Findings.WithLabelValues(f.RuleName, string(f.Severity)).Inc()
	}
	m.Duration.Observe(float64(elapsed.Milliseconds()))
}

// ObserveFailure records an analysis that ended without a result.
func (m *Metrics) ObserveFailure(device core.DeviceType, outcome string) {
	if device == "" {
		device = core.DeviceUnknown
	}
	m.Analyses.WithLabelValues(string(device), outcome).Inc()
}
