package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics tracks trade throughput and replay health for the accounting
// core.
type LedgerMetrics struct {
	tradesCreated   *prometheus.CounterVec
	tradesCompleted *prometheus.CounterVec
	rejections      *prometheus.CounterVec
	tradesReplayed  *prometheus.CounterVec
	replayDuration  prometheus.Gauge
}

var (
	ledgerOnce     sync.Once
	ledgerRegistry *LedgerMetrics
)

// Ledger returns the lazily-initialised ledger metrics registry.
func Ledger() *LedgerMetrics {
	ledgerOnce.Do(func() {
		ledgerRegistry = &LedgerMetrics{
			tradesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_trades_created_total",
				Help: "Count of trades durably created, by asset and transfer type.",
			}, []string{"asset", "type"}),
			tradesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_trades_completed_total",
				Help: "Count of terminal trade transitions, by asset, transfer type and outcome.",
			}, []string{"asset", "type", "outcome"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_creation_rejections_total",
				Help: "Count of trade creations rejected before any durable write.",
			}, []string{"asset", "reason"}),
			tradesReplayed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "ledger_trades_replayed_total",
				Help: "Count of persisted trades applied during cold-start replay.",
			}, []string{"asset"}),
			replayDuration: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "ledger_replay_duration_seconds",
				Help: "Wall-clock duration of the last cold-start replay.",
			}),
		}
		prometheus.MustRegister(
			ledgerRegistry.tradesCreated,
			ledgerRegistry.tradesCompleted,
			ledgerRegistry.rejections,
			ledgerRegistry.tradesReplayed,
			ledgerRegistry.replayDuration,
		)
	})
	return ledgerRegistry
}

// TradeCreated records one durably created trade.
func (m *LedgerMetrics) TradeCreated(asset, transferType string) {
	if m == nil {
		return
	}
	m.tradesCreated.WithLabelValues(asset, transferType).Inc()
}

// TradeCompleted records one terminal transition.
func (m *LedgerMetrics) TradeCompleted(asset, transferType, outcome string) {
	if m == nil {
		return
	}
	m.tradesCompleted.WithLabelValues(asset, transferType, outcome).Inc()
}

// CreationRejected records a creation refused before any durable write.
func (m *LedgerMetrics) CreationRejected(asset, reason string) {
	if m == nil {
		return
	}
	m.rejections.WithLabelValues(asset, reason).Inc()
}

// TradeReplayed records one trade applied during cold-start replay.
func (m *LedgerMetrics) TradeReplayed(asset string) {
	if m == nil {
		return
	}
	m.tradesReplayed.WithLabelValues(asset).Inc()
}

// ObserveReplay records the duration of a completed replay.
func (m *LedgerMetrics) ObserveReplay(seconds float64) {
	if m == nil {
		return
	}
	m.replayDuration.Set(seconds)
}
