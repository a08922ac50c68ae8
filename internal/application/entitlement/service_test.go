package entitlement

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherboy/candlepin/internal/application/entitlement/usecases"
	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/infrastructure/metrics"
	dbtestutil "github.com/cipherboy/candlepin/internal/infrastructure/persistence/testutil"
	"github.com/cipherboy/candlepin/internal/infrastructure/pki"
	"github.com/cipherboy/candlepin/internal/infrastructure/repository"
	"github.com/cipherboy/candlepin/internal/shared/config"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.DomainEvent
}

func (p *recordingPublisher) Publish(e events.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) PublishAll(evts []events.DomainEvent) error {
	for _, e := range evts {
		_ = p.Publish(e)
	}
	return nil
}

func (p *recordingPublisher) count(eventType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.GetEventType() == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	svc       *ServiceDDD
	pools     pool.Repository
	certs     *repository.CertificateRepositoryImpl
	txm       *db.TransactionManager
	publisher *recordingPublisher
	metrics   *metrics.Metrics
	nextSubID uint
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtestutil.NewTestDB(t)
	log := logger.NewDiscardLogger()

	authority, err := pki.Load(&config.PKIConfig{KeyCurve: "P256"}, 1, log)
	require.NoError(t, err)

	f := &fixture{
		pools:     repository.NewPoolRepository(gdb, log),
		certs:     repository.NewCertificateRepository(gdb, log),
		txm:       db.NewTransactionManager(gdb),
		publisher: &recordingPublisher{},
		metrics:   metrics.New(prometheus.NewRegistry()),
	}
	f.svc = NewServiceDDD(Dependencies{
		TxManager:    f.txm,
		Pools:        f.pools,
		Certificates: f.certs,
		Revocations:  f.certs,
		Signer:       authority,
		Publisher:    f.publisher,
		Collab:       usecases.Collaborators{Metrics: f.metrics},
		RetryPolicy:  retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond},
		Logger:       log,
	})
	return f
}

func (f *fixture) createPool(t *testing.T, quantity int64) *pool.Pool {
	t.Helper()
	now := time.Now().UTC()
	f.nextSubID++
	p, err := pool.NewPool(f.nextSubID, "acme", "RH00001", quantity,
		now.Add(-time.Hour), now.AddDate(1, 0, 0), []string{"69"}, now)
	require.NoError(t, err)
	require.NoError(t, f.pools.Create(context.Background(), p))
	return p
}

func (f *fixture) consumed(t *testing.T, poolID uint) int64 {
	t.Helper()
	p, err := f.pools.GetByID(context.Background(), poolID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.Consumed()
}

func TestIssue_ConsumesOneUnit(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 2)
	ctx := context.Background()

	res, err := f.svc.Issue(ctx, p.ID(), "consumer-1", "tok-1")
	require.NoError(t, err)
	assert.False(t, res.Reused)

	cert := res.Certificate
	assert.Positive(t, cert.Serial())
	assert.Equal(t, p.ID(), cert.PoolID())
	assert.Equal(t, entitlement.KindEntitlement, cert.Kind())
	assert.True(t, cert.ExpiresAt().Equal(p.EndDate()))
	assert.Contains(t, cert.CertificatePEM(), "BEGIN CERTIFICATE")
	assert.Equal(t, int64(1), f.consumed(t, p.ID()))
	assert.Equal(t, 1, f.publisher.count(entitlement.EventCertificateIssued))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CertificatesIssued.WithLabelValues("entitlement")))
}

func TestIssue_IdempotentPerRequestToken(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 5)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, p.ID(), "consumer-1", "tok-1")
	require.NoError(t, err)
	again, err := f.svc.Issue(ctx, p.ID(), "consumer-1", "tok-1")
	require.NoError(t, err)

	assert.True(t, again.Reused)
	assert.Equal(t, first.Certificate.Serial(), again.Certificate.Serial())
	assert.Equal(t, int64(1), f.consumed(t, p.ID()))

	// an empty token never deduplicates
	_, err = f.svc.Issue(ctx, p.ID(), "consumer-1", "")
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, p.ID(), "consumer-1", "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.consumed(t, p.ID()))

	certs, err := f.svc.ListForConsumer(ctx, p.ID(), "consumer-1")
	require.NoError(t, err)
	assert.Len(t, certs, 3)
}

func TestIssue_Failures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	full := f.createPool(t, 1)
	_, err := f.svc.Issue(ctx, full.ID(), "consumer-1", "a")
	require.NoError(t, err)

	draining := f.createPool(t, 1)
	_, err = f.pools.SetStatusBySubscription(ctx, draining.SubscriptionID(), pool.StatusDraining)
	require.NoError(t, err)

	tests := []struct {
		name    string
		poolID  uint
		check   func(error) bool
		message string
	}{
		{"capacity exceeded", full.ID(), errors.IsCapacityExceededError, "capacity"},
		{"unknown pool", 9999, errors.IsNotFoundError, "pool not found"},
		{"missing consumer", full.ID(), errors.IsValidationError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			consumer := "consumer-2"
			if tt.name == "missing consumer" {
				consumer = ""
			}
			_, err := f.svc.Issue(ctx, tt.poolID, consumer, "b")
			require.Error(t, err)
			assert.True(t, tt.check(err), "unexpected error: %v", err)
			if tt.message != "" {
				assert.Contains(t, err.Error(), tt.message)
			}
		})
	}

	_, err = f.svc.Issue(ctx, draining.ID(), "consumer-3", "c")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.CapacityRejections))
}

func TestIssue_ExpiredPool(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	p, err := pool.NewPool(99, "acme", "RH00001", 3, now.AddDate(-1, 0, 0), now.Add(-time.Hour), nil, now)
	require.NoError(t, err)
	require.NoError(t, f.pools.Create(context.Background(), p))

	_, err = f.svc.Issue(context.Background(), p.ID(), "consumer-1", "")
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, int64(0), f.consumed(t, p.ID()))
}

func TestIssue_ConcurrentNeverOverConsumes(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 3)
	ctx := context.Background()

	const callers = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		issued    int
		rejected  int
		unexpects []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Issue(ctx, p.ID(), fmt.Sprintf("consumer-%d", i), "")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				issued++
			case errors.IsCapacityExceededError(err):
				rejected++
			default:
				unexpects = append(unexpects, err)
			}
		}(i)
	}
	wg.Wait()

	assert.Empty(t, unexpects)
	assert.Equal(t, 3, issued)
	assert.Equal(t, callers-3, rejected)
	assert.Equal(t, int64(3), f.consumed(t, p.ID()))
}

func TestRevoke_DoubleRevokeReleasesOnce(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 2)
	ctx := context.Background()

	res, err := f.svc.Issue(ctx, p.ID(), "consumer-1", "")
	require.NoError(t, err)
	_, err = f.svc.Issue(ctx, p.ID(), "consumer-2", "")
	require.NoError(t, err)
	require.Equal(t, int64(2), f.consumed(t, p.ID()))

	serial := res.Certificate.Serial()
	first, err := f.svc.Revoke(ctx, serial)
	require.NoError(t, err)
	assert.True(t, first.Revoked)

	second, err := f.svc.Revoke(ctx, serial)
	require.NoError(t, err)
	assert.False(t, second.Revoked)

	cert, err := f.svc.Get(ctx, serial)
	require.NoError(t, err)
	assert.True(t, cert.IsRevoked())
	assert.NotNil(t, cert.RevokedAt())
	assert.Equal(t, int64(1), f.consumed(t, p.ID()))
	assert.Equal(t, 1, f.publisher.count(entitlement.EventCertificateRevoked))
}

func TestRevoke_UnknownSerial(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Revoke(context.Background(), 123456)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestRevokeAllForPool_RemovedRowsStayRevoked(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 3)
	ctx := context.Background()

	var serials []int64
	for i := 0; i < 2; i++ {
		res, err := f.svc.Issue(ctx, p.ID(), fmt.Sprintf("consumer-%d", i), "")
		require.NoError(t, err)
		serials = append(serials, res.Certificate.Serial())
	}
	bundle, err := f.svc.IssuePoolBundle(ctx, p)
	require.NoError(t, err)
	serials = append(serials, bundle.Serial())

	err = f.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		revoked, err := f.svc.RevokeAllForPool(ctx, p.ID())
		if err != nil {
			return err
		}
		assert.Len(t, revoked, 3)
		if _, err := f.certs.DeleteByPool(ctx, p.ID()); err != nil {
			return err
		}
		return f.pools.Delete(ctx, p.ID())
	})
	require.NoError(t, err)

	for _, serial := range serials {
		res, err := f.svc.Revoke(ctx, serial)
		require.NoError(t, err, "serial %d", serial)
		assert.False(t, res.Revoked)
		assert.Nil(t, res.Certificate)

		status, err := f.svc.Status(ctx, serial)
		require.NoError(t, err)
		assert.Equal(t, entitlement.OCSPRevoked, status.Status)
	}

	der, entries, err := f.svc.RevocationList(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, der)
	assert.Equal(t, 3, entries)
}

func TestRevokeAllForPool_RollsBackWithCaller(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 3)
	ctx := context.Background()

	res, err := f.svc.Issue(ctx, p.ID(), "consumer-1", "")
	require.NoError(t, err)

	err = f.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := f.svc.RevokeAllForPool(ctx, p.ID()); err != nil {
			return err
		}
		return fmt.Errorf("teardown aborted")
	})
	require.Error(t, err)

	cert, err := f.svc.Get(ctx, res.Certificate.Serial())
	require.NoError(t, err)
	assert.False(t, cert.IsRevoked())
	assert.Equal(t, int64(1), f.consumed(t, p.ID()))
}

func TestPoolBundle(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 4)
	ctx := context.Background()

	_, err := f.svc.PoolCertificate(ctx, p.ID())
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))

	bundle, err := f.svc.IssuePoolBundle(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, entitlement.KindPool, bundle.Kind())

	again, err := f.svc.IssuePoolBundle(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, bundle.Serial(), again.Serial())

	got, err := f.svc.PoolCertificate(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, bundle.Serial(), got.Serial())
	assert.Equal(t, int64(0), f.consumed(t, p.ID()), "bundle must not consume capacity")

	_, err = f.svc.PoolCertificate(ctx, 9999)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestStatus_GoodAndUnknown(t *testing.T) {
	f := newFixture(t)
	p := f.createPool(t, 1)
	ctx := context.Background()

	res, err := f.svc.Issue(ctx, p.ID(), "consumer-1", "")
	require.NoError(t, err)

	good, err := f.svc.Status(ctx, res.Certificate.Serial())
	require.NoError(t, err)
	assert.Equal(t, entitlement.OCSPGood, good.Status)
	assert.NotEmpty(t, good.Response)

	unknown, err := f.svc.Status(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, entitlement.OCSPUnknown, unknown.Status)
}
