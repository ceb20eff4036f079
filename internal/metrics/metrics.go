// Package metrics exposes prometheus collectors for the engine, the RPC
// server and the escrow index.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/LeJamon/goEscrowd/internal/core/ledger/entry"
	"github.com/LeJamon/goEscrowd/internal/core/tx"
	"github.com/LeJamon/goEscrowd/internal/core/tx/sle"
)

// Namespace prefixes every metric name.
const Namespace = "escrowd"

// Metrics holds the process collectors. Each instance owns its registry
// so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	transactions  *prometheus.CounterVec
	applyDuration *prometheus.HistogramVec
	openEscrows   prometheus.Gauge

	rpcRequests  *prometheus.CounterVec
	rpcLatency   *prometheus.HistogramVec
	rpcThrottles prometheus.Counter

	dbEvents   *prometheus.CounterVec
	dbDuration *prometheus.HistogramVec
}

// New creates and registers every collector.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "engine",
			Name:      "transactions_total",
			Help:      "Processed transactions segmented by type and result.",
		}, []string{"type", "result"}),
		applyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "engine",
			Name:      "apply_duration_seconds",
			Help:      "Time spent processing a transaction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"type"}),
		openEscrows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "escrow",
			Name:      "open",
			Help:      "Escrows currently open.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "requests_total",
			Help:      "JSON-RPC requests segmented by method and outcome.",
		}, []string{"method", "outcome"}),
		rpcLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution for JSON-RPC methods.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		rpcThrottles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "rpc",
			Name:      "throttles_total",
			Help:      "Requests rejected by the rate limiter.",
		}),
		dbEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "index",
			Name:      "events_total",
			Help:      "Escrow index database events.",
		}, []string{"event", "driver"}),
		dbDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "index",
			Name:      "operation_duration_seconds",
			Help:      "Escrow index database operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "driver"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.transactions,
		m.applyDuration,
		m.openEscrows,
		m.rpcRequests,
		m.rpcLatency,
		m.rpcThrottles,
		m.dbEvents,
		m.dbDuration,
	)
	return m
}

// Registry returns the registry the collectors live in.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// TransactionProcessed implements tx.Observer.
func (m *Metrics) TransactionProcessed(ev *tx.Event) {
	txType := ev.Tx.TxType().String()
	m.transactions.WithLabelValues(txType, ev.Result.String()).Inc()
	m.applyDuration.WithLabelValues(txType).Observe(ev.Duration.Seconds())

	if !ev.Applied {
		return
	}
	node, ok := ev.Metadata.Node(entry.TypeEscrow.String())
	if !ok {
		return
	}
	fields := node.FinalFields
	if node.NodeType == sle.NodeCreated {
		fields = node.NewFields
	}
	switch fields["Status"] {
	case string(sle.EscrowOpen):
		m.openEscrows.Inc()
	case string(sle.EscrowClosed):
		m.openEscrows.Dec()
	}
}

// SetOpenEscrows seeds the open escrow gauge, typically at startup.
func (m *Metrics) SetOpenEscrows(n int64) {
	m.openEscrows.Set(float64(n))
}

// ObserveRPC records one JSON-RPC call.
func (m *Metrics) ObserveRPC(method string, failed bool, d time.Duration) {
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if failed {
		outcome = "error"
	}
	m.rpcRequests.WithLabelValues(method, outcome).Inc()
	m.rpcLatency.WithLabelValues(method).Observe(d.Seconds())
}

// RecordThrottle counts a rate limited request.
func (m *Metrics) RecordThrottle() {
	m.rpcThrottles.Inc()
}

// RegisterCache exposes ledger read cache statistics.
func (m *Metrics) RegisterCache(stats func() (hits, misses uint64)) {
	m.registry.MustRegister(
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ledger",
			Name:      "cache_hits_total",
			Help:      "Ledger read cache hits.",
		}, func() float64 {
			hits, _ := stats()
			return float64(hits)
		}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "ledger",
			Name:      "cache_misses_total",
			Help:      "Ledger read cache misses.",
		}, func() float64 {
			_, misses := stats()
			return float64(misses)
		}),
	)
}

// IncrementCounter implements relationaldb.Metrics. Names arrive dotted,
// as in "db.connection.opened"; the leading "db." is dropped.
func (m *Metrics) IncrementCounter(name string, tags map[string]string) {
	m.dbEvents.WithLabelValues(dbName(name), tags["driver"]).Inc()
}

// RecordDuration implements relationaldb.Metrics.
func (m *Metrics) RecordDuration(name string, duration time.Duration, tags map[string]string) {
	m.dbDuration.WithLabelValues(dbName(name), tags["driver"]).Observe(duration.Seconds())
}

func dbName(name string) string {
	return strings.ReplaceAll(strings.TrimPrefix(name, "db."), ".", "_")
}
