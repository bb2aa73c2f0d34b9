package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EscrowMetrics records lifecycle transition activity for the daemon's
// /metrics endpoint.
type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var (
	escrowMetricsOnce sync.Once
	escrowRegistry    *EscrowMetrics
)

// Escrow returns the lazily-initialised metrics registry used to record
// escrow transitions.
func Escrow() *EscrowMetrics {
	escrowMetricsOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "token_escrow",
				Name:      "transitions_total",
				Help:      "Escrow lifecycle transitions segmented by operation and outcome.",
			}, []string{"op", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "token_escrow",
				Name:      "transition_seconds",
				Help:      "Latency of escrow transitions in seconds.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"op"}),
		}
		prometheus.MustRegister(escrowRegistry.transitions, escrowRegistry.latency)
	})
	return escrowRegistry
}

// Observe records one transition attempt.
func (m *EscrowMetrics) Observe(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(op, outcome).Inc()
	m.latency.WithLabelValues(op).Observe(seconds)
}
