package journal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks detection batch outcomes for Prometheus scraping.
type Metrics struct {
	batches       prometheus.Counter
	autoOpened    prometheus.Counter
	autoClosed    prometheus.Counter
	partialClosed prometheus.Counter
	conflicts     prometheus.Counter
}

// NewMetrics registers the engine's counters with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		batches: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_detection_batches_total",
			Help: "Number of detection batches processed.",
		}),
		autoOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_trades_auto_opened_total",
			Help: "Paper trades auto-opened on entry hits.",
		}),
		autoClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_trades_auto_closed_total",
			Help: "Paper trades auto-closed on SL/TP hits.",
		}),
		partialClosed: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_trades_partial_closed_total",
			Help: "Layered paper trades partially closed by level hits.",
		}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "journal_detection_conflicts_total",
			Help: "Same-bar SL+TP conflicts requiring manual resolution.",
		}),
	}
}

// Observe records one batch report. Safe on a nil receiver so metrics stay
// optional in tests.
func (m *Metrics) Observe(report *BatchReport) {
	if m == nil {
		return
	}
	m.batches.Inc()
	m.autoOpened.Add(float64(report.AutoOpened))
	m.autoClosed.Add(float64(report.AutoClosed))
	m.partialClosed.Add(float64(report.PartialClosed))
	m.conflicts.Add(float64(report.Conflicts))
}
