// Package metrics holds the wallet core's Prometheus collectors. They are
// registered on Registry rather than the global default so an embedding
// application decides whether and where to expose them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector in this package.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	// TransfersTotal counts transfer attempts by outcome ("submitted" or an error kind).
	TransfersTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kin_transfers_total",
			Help: "Total number of transfer attempts by outcome",
		},
		[]string{"outcome"},
	)

	// RPCCallsTotal counts ledger RPC calls per method.
	RPCCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kin_rpc_calls_total",
			Help: "Total number of ledger RPC calls",
		},
		[]string{"method"},
	)

	// RPCErrorsTotal counts failed ledger RPC calls per method and error kind.
	RPCErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kin_rpc_errors_total",
			Help: "Total number of failed ledger RPC calls",
		},
		[]string{"method", "kind"},
	)

	// RPCLatency tracks ledger RPC round-trip time.
	RPCLatency = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "kin_rpc_latency_seconds",
			Help:    "Ledger RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// PendingDriftTotal counts pending balance computations that went negative.
	PendingDriftTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "kin_pending_drift_total",
			Help: "Pending balance computations clamped at zero",
		},
	)

	// PendingClearedTotal counts pending effects removed, by reason
	// ("confirmed", "expired", "evicted").
	PendingClearedTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kin_pending_cleared_total",
			Help: "Pending transfer effects removed from tracking",
		},
		[]string{"reason"},
	)
)
