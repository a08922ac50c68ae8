package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.IncrementIssued("entitlement")
	m.IncrementIssued("entitlement")
	m.IncrementIssued("pool")
	m.AddRevoked(3)
	m.AddRevoked(0)
	m.IncrementCapacityRejection()
	m.IncrementOverConsumed()
	m.IncrementTeardownFailure()
	m.IncrementStatusChange("EXPIRED")
	m.ObserveReconcile(time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CertificatesIssued.WithLabelValues("entitlement")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CertificatesIssued.WithLabelValues("pool")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.CertificatesRevoked))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CapacityRejections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolsOverConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TeardownFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubscriptionsSwept.WithLabelValues("EXPIRED")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.IncrementIssued("entitlement")
		m.AddRevoked(1)
		m.IncrementCapacityRejection()
		m.IncrementOverConsumed()
		m.IncrementTeardownFailure()
		m.IncrementStatusChange("ACTIVE")
		m.ObserveReconcile(time.Now())
	})
}

func TestNew_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
