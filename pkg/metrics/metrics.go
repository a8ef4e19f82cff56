// Package metrics exposes the state computer's Prometheus metrics: ledger
// progress, committed/rejected transaction counts, vertex-prepare stop
// reasons and protocol-version enactments. Prometheus's own exposition
// internals (the HTTP handler, registry wiring into a server mux) are out
// of scope — this module only produces the metrics themselves, a
// dependency the wider codebase declares but otherwise never imports.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/certen/state-computer/pkg/types"
)

// Metrics holds every collector the state computer updates.
type Metrics struct {
	StateVersion           prometheus.Gauge
	CommittedTransactions  prometheus.Counter
	RejectedTransactions   *prometheus.CounterVec
	PreparedVertexStops    *prometheus.CounterVec
	ProtocolVersionEnacted *prometheus.CounterVec
	ExecutionCacheSize     prometheus.Gauge
}

// New registers and returns a Metrics set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StateVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "state_computer",
			Name:      "state_version",
			Help:      "Current committed state version.",
		}),
		CommittedTransactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "state_computer",
			Name:      "committed_transactions_total",
			Help:      "Total number of transactions committed.",
		}),
		RejectedTransactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "state_computer",
			Name:      "rejected_transactions_total",
			Help:      "Total number of transactions rejected, by reason.",
		}, []string{"reason"}),
		PreparedVertexStops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "state_computer",
			Name:      "prepared_vertex_stop_total",
			Help:      "Number of prepared vertices, by stop reason.",
		}, []string{"reason"}),
		ProtocolVersionEnacted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "state_computer",
			Name:      "protocol_version_enacted_total",
			Help:      "Number of protocol version enactments, by version.",
		}, []string{"version"}),
		ExecutionCacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "state_computer",
			Name:      "execution_cache_size",
			Help:      "Number of cached edges in the execution cache.",
		}),
	}

	reg.MustRegister(
		m.StateVersion,
		m.CommittedTransactions,
		m.RejectedTransactions,
		m.PreparedVertexStops,
		m.ProtocolVersionEnacted,
		m.ExecutionCacheSize,
	)
	return m
}

// ObserveCommit updates the metrics a successful commit affects.
func (m *Metrics) ObserveCommit(endVersion types.StateVersion, committedCount int) {
	m.StateVersion.Set(float64(endVersion))
	m.CommittedTransactions.Add(float64(committedCount))
}

// ObserveRejected records a transaction rejection by reason.
func (m *Metrics) ObserveRejected(reason types.RejectionReason) {
	m.RejectedTransactions.WithLabelValues(reason.String()).Inc()
}

// ObservePrepareStop records why a prepared vertex stopped accepting
// further transactions.
func (m *Metrics) ObservePrepareStop(reason types.VertexStopReason) {
	m.PreparedVertexStops.WithLabelValues(reason.String()).Inc()
}

// ObserveProtocolVersionEnacted records a protocol-version enactment.
func (m *Metrics) ObserveProtocolVersionEnacted(version types.ProtocolVersion) {
	m.ProtocolVersionEnacted.WithLabelValues(string(version)).Inc()
}
