package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "malina_auth"

// AuthMetrics exports authentication outcomes and password hashing pressure.
type AuthMetrics struct {
	outcomes    *prometheus.CounterVec
	hashWaiting prometheus.Gauge
	hashActive  prometheus.Gauge
}

// NewAuthMetrics registers the collectors on reg.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outcomes_total",
			Help:      "Authentication attempts by strategy and result reason.",
		}, []string{"strategy", "reason"}),
		hashWaiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hash_pool_waiting",
			Help:      "Password hash operations waiting for a worker slot.",
		}),
		hashActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hash_pool_active",
			Help:      "Password hash operations currently running.",
		}),
	}
	reg.MustRegister(m.outcomes, m.hashWaiting, m.hashActive)
	return m
}

// RecordOutcome counts one authentication attempt. reason is "ok" on success.
func (m *AuthMetrics) RecordOutcome(strategy, reason string) {
	m.outcomes.WithLabelValues(strategy, reason).Inc()
}

// HashQueued tracks a hash request entering (+1) or leaving (-1) the wait queue.
func (m *AuthMetrics) HashQueued(delta int) {
	m.hashWaiting.Add(float64(delta))
}

// HashRunning tracks a hash request starting (+1) or finishing (-1).
func (m *AuthMetrics) HashRunning(delta int) {
	m.hashActive.Add(float64(delta))
}
