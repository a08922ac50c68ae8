package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/testutil"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newSubscription(t *testing.T, ownerKey, productID string, qty int64) *subscription.Subscription {
	t.Helper()
	start, end := testutil.Window(now)
	sub, err := subscription.NewSubscription(ownerKey, productID, qty, start, end,
		subscription.Contract{ContractNumber: "c"}, []string{"p1"}, nil, now)
	require.NoError(t, err)
	return sub
}

func TestOwnerAndProductRepositories(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	ctx := context.Background()
	log := logger.NewDiscardLogger()

	testutil.SeedOwner(t, gdb, "admin")
	testutil.SeedOwner(t, gdb, "acme")
	testutil.SeedProduct(t, gdb, "rhel", testutil.Multiplier(2))

	owners := NewOwnerRepository(gdb, log)
	o, err := owners.GetByKey(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, o)

	missing, err := owners.GetByKey(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	keys, err := owners.ListKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "admin"}, keys)

	products := NewProductRepository(gdb, log)
	p, err := products.GetByID(ctx, "rhel")
	require.NoError(t, err)
	m, err := p.Multiplier()
	require.NoError(t, err)
	assert.Equal(t, int64(2), m)

	p.SetMultiplier(testutil.Multiplier(3))
	require.NoError(t, products.Update(ctx, p))
	p, err = products.GetByID(ctx, "rhel")
	require.NoError(t, err)
	m, _ = p.Multiplier()
	assert.Equal(t, int64(3), m)
}

func TestSubscriptionRepository_CreateListOrder(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()

	for _, p := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, newSubscription(t, "admin", p, 2)))
	}
	require.NoError(t, repo.Create(ctx, newSubscription(t, "other", "a", 1)))

	subs, err := repo.ListByOwner(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{subs[0].ProductID(), subs[1].ProductID(), subs[2].ProductID()})
	assert.Equal(t, []string{"p1"}, subs[0].ProvidedProductIDs())

	active, err := repo.ListByStatus(ctx, subscription.StatusActive)
	require.NoError(t, err)
	assert.Len(t, active, 4)
}

func TestSubscriptionRepository_UpdateOptimisticLock(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()

	sub := newSubscription(t, "admin", "a", 2)
	require.NoError(t, repo.Create(ctx, sub))

	stale, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)

	qty := int64(7)
	require.NoError(t, sub.Amend(subscription.Amendment{Quantity: &qty}, now))
	require.NoError(t, repo.Update(ctx, sub))

	require.NoError(t, stale.Amend(subscription.Amendment{Quantity: &qty}, now))
	err = repo.Update(ctx, stale)
	assert.True(t, apperrors.IsConflictError(err))

	reloaded, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(7), reloaded.Quantity())
}

func TestSubscriptionRepository_Delete(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()

	sub := newSubscription(t, "admin", "a", 2)
	require.NoError(t, repo.Create(ctx, sub))
	require.NoError(t, repo.Delete(ctx, sub.ID()))
	assert.True(t, apperrors.IsNotFoundError(repo.Delete(ctx, sub.ID())))

	got, err := repo.GetByID(ctx, sub.ID())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func createPool(t *testing.T, repo pool.Repository, subID uint, qty int64) *pool.Pool {
	t.Helper()
	start, end := testutil.Window(now)
	p, err := pool.NewPool(subID, "admin", "rhel", qty, start, end, []string{"p1"}, now)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPoolRepository_TryConsumeRespectsCapacity(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewPoolRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()
	p := createPool(t, repo, 1, 3)

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryConsume(ctx, p.ID())
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, granted)
	got, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Consumed())
	assert.Equal(t, pool.AtCapacity, got.CapacityState())
}

func TestPoolRepository_ReleaseNeverGoesNegative(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewPoolRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()
	p := createPool(t, repo, 1, 3)

	ok, err := repo.TryConsume(ctx, p.ID())
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Release(ctx, p.ID(), 2)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Release(ctx, p.ID(), 1)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Consumed())
}

func TestPoolRepository_DrainingRefusesConsumption(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewPoolRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()
	p := createPool(t, repo, 9, 3)
	createPool(t, repo, 9, 1)

	n, err := repo.SetStatusBySubscription(ctx, 9, pool.StatusDraining)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err := repo.TryConsume(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, ok)

	n, err = repo.SetStatusBySubscription(ctx, 9, pool.StatusActive)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ok, err = repo.TryConsume(ctx, p.ID())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPoolRepository_UpdateKeepsConsumption(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewPoolRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()
	p := createPool(t, repo, 1, 3)

	for i := 0; i < 2; i++ {
		ok, err := repo.TryConsume(ctx, p.ID())
		require.NoError(t, err)
		require.True(t, ok)
	}

	_, after, err := p.Resize(1, now)
	require.NoError(t, err)
	require.NoError(t, repo.Update(ctx, p))
	assert.Equal(t, pool.UnderCapacity, after, "stale in-memory copy still shows zero consumed")

	got, err := repo.GetByID(ctx, p.ID())
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Quantity())
	assert.Equal(t, int64(2), got.Consumed())
	assert.Equal(t, pool.OverConsumed, got.CapacityState())

	ok, err := repo.TryConsume(ctx, p.ID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPoolRepository_IDsAreNotReused(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewPoolRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()

	first := createPool(t, repo, 1, 1)
	require.NoError(t, repo.Delete(ctx, first.ID()))
	second := createPool(t, repo, 1, 1)

	assert.Greater(t, second.ID(), first.ID())
}

func TestCertificateRepository_Lifecycle(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewCertificateRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()

	mk := func(serial int64, consumer, token string) *entitlement.Certificate {
		c, err := entitlement.NewCertificate(serial, 5, consumer, token, entitlement.KindEntitlement,
			now, now.AddDate(1, 0, 0), entitlement.Material{CertificatePEM: "cert", PrivateKeyPEM: "key"})
		require.NoError(t, err)
		return c
	}

	require.NoError(t, repo.Create(ctx, mk(100, "c1", "req_a")))
	require.NoError(t, repo.Create(ctx, mk(101, "c1", "req_b")))
	assert.ErrorIs(t, repo.Create(ctx, mk(102, "c1", "req_a")), entitlement.ErrDuplicateRequest)

	byReq, err := repo.GetByRequest(ctx, 5, "c1", "req_a")
	require.NoError(t, err)
	require.NotNil(t, byReq)
	assert.Equal(t, int64(100), byReq.Serial())

	list, err := repo.ListByPoolAndConsumer(ctx, 5, "c1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	changed, err := repo.MarkRevoked(ctx, 100, now)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = repo.MarkRevoked(ctx, 100, now)
	require.NoError(t, err)
	assert.False(t, changed)

	active, err := repo.ListActiveByPool(ctx, 5)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, int64(101), active[0].Serial())

	rev := entitlement.Revocation{Serial: 100, PoolID: 5, Reason: entitlement.ReasonCessationOfOperation, RevokedAt: now}
	require.NoError(t, repo.Record(ctx, rev))
	require.NoError(t, repo.Record(ctx, rev))

	n, err := repo.DeleteByPool(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	gone, err := repo.GetBySerial(ctx, 100)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := repo.Get(ctx, 100)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, entitlement.ReasonCessationOfOperation, kept.Reason)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestCertificateRepository_Reissue(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewCertificateRepository(gdb, logger.NewDiscardLogger())
	ctx := context.Background()

	mk := func(serial int64, token string) *entitlement.Certificate {
		c, err := entitlement.NewCertificate(serial, 5, "c1", token, entitlement.KindEntitlement,
			now, now.AddDate(1, 0, 0), entitlement.Material{CertificatePEM: "cert", PrivateKeyPEM: "key"})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))
		return c
	}
	live := mk(200, "req_a")
	revoked := mk(201, "req_b")
	_, err := repo.MarkRevoked(ctx, 201, now)
	require.NoError(t, err)

	end := now.AddDate(0, 0, 1)
	previous, err := live.Reissue(300, now, end, entitlement.Material{CertificatePEM: "cert2", PrivateKeyPEM: "key2"})
	require.NoError(t, err)
	assert.Equal(t, int64(200), previous)

	ok, err := repo.Reissue(ctx, previous, live)
	require.NoError(t, err)
	assert.True(t, ok)

	old, err := repo.GetBySerial(ctx, 200)
	require.NoError(t, err)
	assert.Nil(t, old)

	got, err := repo.GetByRequest(ctx, 5, "c1", "req_a")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(300), got.Serial())
	assert.Equal(t, live.ID(), got.ID())
	assert.True(t, got.ExpiresAt().Equal(end))
	assert.Equal(t, "cert2", got.CertificatePEM())

	// a revoked row keeps its serial
	_, err = revoked.Reissue(301, now, end, entitlement.Material{})
	require.NoError(t, err)
	ok, err = repo.Reissue(ctx, 201, revoked)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositories_JoinContextTransaction(t *testing.T) {
	gdb := testutil.NewTestDB(t)
	repo := NewSubscriptionRepository(gdb, logger.NewDiscardLogger())
	tm := db.NewTransactionManager(gdb)
	ctx := context.Background()

	err := tm.RunInTransaction(ctx, func(txCtx context.Context) error {
		require.NoError(t, repo.Create(txCtx, newSubscription(t, "admin", "a", 1)))
		return apperrors.NewValidationError("abort")
	})
	require.Error(t, err)

	subs, err := repo.ListByOwner(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, subs)
}
