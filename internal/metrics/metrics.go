package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReconcileRuns counts reconciliation passes by chain and cache outcome
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_reconcile_runs_total",
			Help: "Total number of pool reconciliation runs",
		},
		[]string{"chain", "cache"},
	)

	// ReconcileDuration tracks reconciliation processing time
	ReconcileDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pool_reconcile_duration_seconds",
			Help:    "Reconciliation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain"},
	)

	// SourceFailures counts read failures by source (contract, database, subgraph)
	SourceFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_source_failures_total",
			Help: "Total number of pool source read failures",
		},
		[]string{"chain", "source"},
	)

	// VisiblePools tracks the number of pools in the last reconciled view
	VisiblePools = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_visible_pools",
			Help: "Number of pools in the last reconciled view",
		},
		[]string{"chain"},
	)

	// DesyncedPools tracks database rows without a confirmed contract pool
	DesyncedPools = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_desynced_rows",
			Help: "Number of database pool rows without a contract id",
		},
		[]string{"chain"},
	)

	// SubgraphLag tracks the indexer lag behind chain head
	SubgraphLag = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pool_subgraph_lag_seconds",
			Help: "Subgraph indexing lag behind chain head in seconds",
		},
		[]string{"chain"},
	)

	// TransactionsSent counts transactions submitted to each chain
	TransactionsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_transactions_sent_total",
			Help: "Total number of transactions sent",
		},
		[]string{"chain", "method"},
	)

	// TransactionOutcomes counts terminal flow states (confirmed, failed, cancelled)
	TransactionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_transaction_outcomes_total",
			Help: "Total number of transaction flows by terminal state",
		},
		[]string{"chain", "outcome"},
	)

	// ErrorsTotal counts errors by component
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pool_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)
)
