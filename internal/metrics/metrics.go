// Package metrics registers the Prometheus instrumentation for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BillsCreated counts bills accepted by the split pipeline.
	BillsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evensplit_bills_created_total",
		Help: "Bills created and applied to the ledger.",
	})

	// SplitErrors counts rejected split computations by reason.
	SplitErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evensplit_split_errors_total",
		Help: "Split computations rejected by validation.",
	}, []string{"reason"})

	// SettlementsRecorded counts accepted settlements.
	SettlementsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evensplit_settlements_recorded_total",
		Help: "Settlements recorded and applied to the ledger.",
	})

	// SettlementErrors counts rejected settlements by reason.
	SettlementErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "evensplit_settlement_errors_total",
		Help: "Settlements rejected by validation or policy.",
	}, []string{"reason"})

	// BalanceConflicts counts balance writes that exhausted their
	// optimistic-concurrency retries.
	BalanceConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "evensplit_balance_conflicts_total",
		Help: "Balance writes surfaced as conflicts after bounded retries.",
	})

	// RecomputeDuration observes full ledger rebuilds.
	RecomputeDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "evensplit_ledger_recompute_seconds",
		Help:    "Duration of full ledger recomputation from history.",
		Buckets: prometheus.DefBuckets,
	})
)
