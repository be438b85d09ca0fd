package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the engine.
type Metrics struct {
	// Calls by action and outcome case ("Success", "NotOwner", ...)
	Calls *prometheus.CounterVec

	// Records currently alive in the registry
	LiveRecords prometheus.Gauge

	// Last journal seq written
	JournalSeq prometheus.Gauge

	// Replay runs by result ("match", "mismatch")
	Replays *prometheus.CounterVec

	// Time spent in a single Execute, including the store commit
	ExecuteLatency prometheus.Histogram
}

// New creates a Metrics instance registered with reg.
// Pass prometheus.NewRegistry() in tests to keep registrations isolated.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Calls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rankvault_calls_total",
			Help: "Total registry calls by action and outcome case",
		}, []string{"action", "case"}),

		LiveRecords: f.NewGauge(prometheus.GaugeOpts{
			Name: "rankvault_live_records",
			Help: "Number of asset records currently in the registry",
		}),

		JournalSeq: f.NewGauge(prometheus.GaugeOpts{
			Name: "rankvault_journal_seq",
			Help: "Highest journal sequence number written",
		}),

		Replays: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rankvault_replays_total",
			Help: "Journal replays by result",
		}, []string{"result"}), // result: "match", "mismatch"

		ExecuteLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "rankvault_execute_duration_seconds",
			Help:    "Duration of a single call including persistence",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementCall records one call outcome.
func (m *Metrics) IncrementCall(action, outcomeCase string) {
	if m != nil {
		m.Calls.WithLabelValues(action, outcomeCase).Inc()
	}
}

// SetLiveRecords records the current record count.
func (m *Metrics) SetLiveRecords(n int) {
	if m != nil {
		m.LiveRecords.Set(float64(n))
	}
}

// SetJournalSeq records the last journal seq.
func (m *Metrics) SetJournalSeq(seq int64) {
	if m != nil {
		m.JournalSeq.Set(float64(seq))
	}
}

// IncrementReplay records a replay result.
func (m *Metrics) IncrementReplay(match bool) {
	if m != nil {
		result := "mismatch"
		if match {
			result = "match"
		}
		m.Replays.WithLabelValues(result).Inc()
	}
}

// ObserveExecuteLatency records the duration of one Execute.
func (m *Metrics) ObserveExecuteLatency(d time.Duration) {
	if m != nil {
		m.ExecuteLatency.Observe(d.Seconds())
	}
}
