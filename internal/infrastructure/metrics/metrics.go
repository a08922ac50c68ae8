// Package metrics exposes Prometheus instruments for issuance, revocation and
// pool reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics is nil-safe: every method on a nil *Metrics is a no-op.
type Metrics struct {
	CertificatesIssued  *prometheus.CounterVec
	CertificatesRevoked prometheus.Counter
	CapacityRejections  prometheus.Counter
	PoolsOverConsumed   prometheus.Counter
	TeardownFailures    prometheus.Counter
	SubscriptionsSwept  *prometheus.CounterVec
	ReconcileDuration   prometheus.Histogram
}

// New registers every instrument with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CertificatesIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "candlepin_certificates_issued_total",
			Help: "Total number of certificates issued, by kind",
		}, []string{"kind"}),
		CertificatesRevoked: factory.NewCounter(prometheus.CounterOpts{
			Name: "candlepin_certificates_revoked_total",
			Help: "Total number of certificates revoked",
		}),
		CapacityRejections: factory.NewCounter(prometheus.CounterOpts{
			Name: "candlepin_capacity_rejections_total",
			Help: "Issuance requests refused because the pool was fully consumed",
		}),
		PoolsOverConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "candlepin_pools_over_consumed_total",
			Help: "Reconciliations that left a pool with more consumption than quantity",
		}),
		TeardownFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "candlepin_teardown_failures_total",
			Help: "Subscription deletions that failed and were compensated",
		}),
		SubscriptionsSwept: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "candlepin_subscription_status_changes_total",
			Help: "Subscription status transitions applied by the expiry sweep",
		}, []string{"status"}),
		ReconcileDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "candlepin_reconcile_duration_seconds",
			Help:    "Duration of full reconciliation passes",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
	}
}

// IncrementIssued records a successful issuance.
func (m *Metrics) IncrementIssued(kind string) {
	if m == nil {
		return
	}
	m.CertificatesIssued.WithLabelValues(kind).Inc()
}

// AddRevoked records n revocations.
func (m *Metrics) AddRevoked(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.CertificatesRevoked.Add(float64(n))
}

func (m *Metrics) IncrementCapacityRejection() {
	if m == nil {
		return
	}
	m.CapacityRejections.Inc()
}

func (m *Metrics) IncrementOverConsumed() {
	if m == nil {
		return
	}
	m.PoolsOverConsumed.Inc()
}

func (m *Metrics) IncrementTeardownFailure() {
	if m == nil {
		return
	}
	m.TeardownFailures.Inc()
}

// IncrementStatusChange records a sweep transition into status.
func (m *Metrics) IncrementStatusChange(status string) {
	if m == nil {
		return
	}
	m.SubscriptionsSwept.WithLabelValues(status).Inc()
}

// ObserveReconcile records a reconciliation pass started at start.
func (m *Metrics) ObserveReconcile(start time.Time) {
	if m == nil {
		return
	}
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}
