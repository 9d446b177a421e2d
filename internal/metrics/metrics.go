// Package metrics holds the Prometheus collectors shared by the poller, the
// renderer and the status API. A nil *Metrics records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DocumentJob     = "job"
	DocumentPrinter = "printer"

	OutcomeOK    = "ok"
	OutcomeError = "error"
)

type Metrics struct {
	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	snapshotAge   prometheus.Gauge
	renderTicks   prometheus.Counter
	rowSkipped    *prometheus.CounterVec
	sinkErrors    prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// falls back to prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octolcd_fetch_total",
			Help: "Status document fetches by document and outcome.",
		}, []string{"document", "outcome"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "octolcd_fetch_duration_seconds",
			Help:    "Time spent fetching a status document.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"document"}),
		snapshotAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "octolcd_snapshot_age_seconds",
			Help: "Age of the snapshot used by the last rendered frame.",
		}),
		renderTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "octolcd_render_ticks_total",
			Help: "Frames composed by the render loop.",
		}),
		rowSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "octolcd_row_skipped_total",
			Help: "Row updates skipped because status fields were missing.",
		}, []string{"row"}),
		sinkErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "octolcd_sink_errors_total",
			Help: "Display writes that returned an error.",
		}),
	}
	reg.MustRegister(m.fetches, m.fetchDuration, m.snapshotAge, m.renderTicks, m.rowSkipped, m.sinkErrors)
	return m
}

func (m *Metrics) ObserveFetch(document string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.fetches.WithLabelValues(document, outcome).Inc()
	m.fetchDuration.WithLabelValues(document).Observe(took.Seconds())
}

func (m *Metrics) ObserveFrame(snapshotAge time.Duration) {
	if m == nil {
		return
	}
	m.renderTicks.Inc()
	m.snapshotAge.Set(snapshotAge.Seconds())
}

func (m *Metrics) RowSkipped(row string) {
	if m == nil {
		return
	}
	m.rowSkipped.WithLabelValues(row).Inc()
}

func (m *Metrics) SinkError() {
	if m == nil {
		return
	}
	m.sinkErrors.Inc()
}
