package mediator_test

import (
	"context"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appperm "github.com/cipherboy/candlepin/internal/application/permission"
	"github.com/cipherboy/candlepin/internal/infrastructure/cache"
	"github.com/cipherboy/candlepin/internal/infrastructure/config"
	dbtestutil "github.com/cipherboy/candlepin/internal/infrastructure/persistence/testutil"
	"github.com/cipherboy/candlepin/internal/interfaces/container"
	"github.com/cipherboy/candlepin/internal/interfaces/mediator"
	sharedConfig "github.com/cipherboy/candlepin/internal/shared/config"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

var (
	admin    = appperm.Caller{Subject: "admin"}
	acme     = appperm.Caller{Subject: "acme", OwnerKey: "acme"}
	globex   = appperm.Caller{Subject: "globex", OwnerKey: "globex"}
	consumer = appperm.Caller{Subject: "system-1", OwnerKey: "acme"}
	stranger = appperm.Caller{Subject: "stranger", OwnerKey: "acme"}
)

type env struct {
	m     *mediator.Mediator
	c     *container.Container
	redis *miniredis.Miniredis
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gdb := dbtestutil.NewTestDB(t)
	log := logger.NewDiscardLogger()

	dbtestutil.SeedOwner(t, gdb, "acme")
	dbtestutil.SeedOwner(t, gdb, "globex")
	dbtestutil.SeedProduct(t, gdb, "RH00001", nil)
	dbtestutil.SeedProduct(t, gdb, "RH00002", dbtestutil.Multiplier(2))
	for _, id := range []string{"A", "B", "C"} {
		dbtestutil.SeedProduct(t, gdb, id, nil)
	}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})

	cfg := &config.Config{
		PKI: sharedConfig.PKIConfig{KeyCurve: "P256"},
		Reconciler: sharedConfig.ReconcilerConfig{
			RetryAttempts: 2,
			RetryInitial:  time.Millisecond,
			RetryMax:      2 * time.Millisecond,
		},
	}
	c, err := container.New(context.Background(), cfg, gdb, log, container.Options{
		Registerer:   prometheus.NewRegistry(),
		Availability: cache.NewRedisPoolAvailabilityCache(client, log),
	})
	require.NoError(t, err)
	t.Cleanup(c.Shutdown)

	require.NoError(t, c.Permissions.GrantRole(context.Background(), consumer.Subject, "consumer"))
	return &env{m: c.Mediator, c: c, redis: mr}
}

func (e *env) create(t *testing.T, ownerKey, productID string, quantity int64) uint {
	t.Helper()
	p, err := e.m.CreateSubscription(context.Background(), admin, mediator.CreateSubscriptionRequest{
		OwnerKey:  ownerKey,
		ProductID: productID,
		Quantity:  quantity,
	})
	require.NoError(t, err)
	return p.ID
}

func TestSubscriptionLookupByIDIsAlwaysRejected(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	poolID := e.create(t, "acme", "RH00001", 1)
	p, err := e.m.GetPool(ctx, admin, poolID)
	require.NoError(t, err)
	existing := fmt.Sprint(p.SubscriptionID)

	for _, id := range []string{existing, "999999", "", "not-a-number"} {
		for _, caller := range []appperm.Caller{admin, acme, stranger, {}} {
			t.Run(id+"/"+caller.String(), func(t *testing.T) {
				_, err := e.m.GetSubscription(ctx, caller, id)
				assert.True(t, errors.IsRoutingError(err), "got %v", err)
				var appErr *errors.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Contains(t, appErr.Details, "pools/{pool_id}")

				_, err = e.m.GetSubscriptionCertificate(ctx, caller, id)
				assert.True(t, errors.IsRoutingError(err), "got %v", err)
				require.ErrorAs(t, err, &appErr)
				assert.Contains(t, appErr.Details, "pools/{pool_id}/cert")
			})
		}
	}
}

func TestScenario_ListGrowsOnePerCreate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.create(t, "acme", "A", 2)
	e.create(t, "acme", "B", 3)
	e.create(t, "acme", "C", 2)

	subs, err := e.m.ListSubscriptions(ctx, acme, "acme")
	require.NoError(t, err)
	require.Len(t, subs, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{subs[0].ProductID, subs[1].ProductID, subs[2].ProductID})

	other, err := e.m.ListSubscriptions(ctx, admin, "globex")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestScenario_CreateThenDelete(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	poolID := e.create(t, "globex", "RH00001", 5)
	subs, err := e.m.ListSubscriptions(ctx, globex, "globex")
	require.NoError(t, err)
	require.Len(t, subs, 1)

	result, err := e.m.DeletePool(ctx, globex, poolID)
	require.NoError(t, err)
	assert.Equal(t, []uint{poolID}, result.PoolIDs)

	subs, err = e.m.ListSubscriptions(ctx, globex, "globex")
	require.NoError(t, err)
	assert.Empty(t, subs)

	_, err = e.m.GetPool(ctx, admin, poolID)
	assert.True(t, errors.IsNotFoundError(err))

	_, err = e.m.DeletePool(ctx, admin, poolID)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestCreateSubscription_AppliesMultiplier(t *testing.T) {
	e := newEnv(t)

	p, err := e.m.CreateSubscription(context.Background(), acme, mediator.CreateSubscriptionRequest{
		OwnerKey:  "acme",
		ProductID: "RH00002",
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.Quantity)
	assert.NotZero(t, p.SubscriptionID)
}

func TestCreateSubscription_Failures(t *testing.T) {
	e := newEnv(t)

	tests := []struct {
		name    string
		caller  appperm.Caller
		req     mediator.CreateSubscriptionRequest
		checkFn func(error) bool
	}{
		{"zero quantity", admin, mediator.CreateSubscriptionRequest{OwnerKey: "acme", ProductID: "RH00001"}, errors.IsValidationError},
		{"unknown owner", admin, mediator.CreateSubscriptionRequest{OwnerKey: "initech", ProductID: "RH00001", Quantity: 1}, errors.IsNotFoundError},
		{"unknown product", admin, mediator.CreateSubscriptionRequest{OwnerKey: "acme", ProductID: "NOPE", Quantity: 1}, errors.IsNotFoundError},
		{"consumer may not create", consumer, mediator.CreateSubscriptionRequest{OwnerKey: "acme", ProductID: "RH00001", Quantity: 1}, errors.IsForbiddenError},
		{"owner scoped to itself", globex, mediator.CreateSubscriptionRequest{OwnerKey: "acme", ProductID: "RH00001", Quantity: 1}, errors.IsForbiddenError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.m.CreateSubscription(context.Background(), tt.caller, tt.req)
			require.Error(t, err)
			assert.True(t, tt.checkFn(err), "got %v", err)
		})
	}

	subs, err := e.m.ListSubscriptions(context.Background(), admin, "acme")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestIssueAndRevoke(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	poolID := e.create(t, "acme", "RH00001", 1)

	first, err := e.m.IssueEntitlement(ctx, consumer, poolID, "system-1", "req-1")
	require.NoError(t, err)
	assert.NotEmpty(t, first.PrivateKeyPEM)

	again, err := e.m.IssueEntitlement(ctx, consumer, poolID, "system-1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, first.Serial, again.Serial)

	_, err = e.m.IssueEntitlement(ctx, consumer, poolID, "system-2", "")
	assert.True(t, errors.IsCapacityExceededError(err))

	_, err = e.m.RevokeCertificate(ctx, consumer, first.Serial)
	assert.True(t, errors.IsForbiddenError(err), "consumers may not revoke")

	for i := 0; i < 2; i++ {
		revoked, err := e.m.RevokeCertificate(ctx, acme, first.Serial)
		require.NoError(t, err)
		assert.True(t, revoked.Revoked)
	}

	p, err := e.m.GetPool(ctx, acme, poolID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.Consumed)

	_, err = e.m.IssueEntitlement(ctx, consumer, poolID, "system-2", "")
	assert.NoError(t, err)

	status, err := e.m.CertificateStatus(ctx, consumer, first.Serial)
	require.NoError(t, err)
	assert.Equal(t, "revoked", status.Status)
	assert.NotEmpty(t, status.Response)
}

func TestDeletePool_RevokesEveryCertificate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.m.CreateSubscription(ctx, acme, mediator.CreateSubscriptionRequest{
		OwnerKey:     "acme",
		ProductID:    "RH00001",
		Quantity:     3,
		GenerateCert: true,
	})
	require.NoError(t, err)

	bundle, err := e.m.GetPoolCertificate(ctx, acme, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "pool", bundle.Kind)

	var serials []int64
	for i := 0; i < 3; i++ {
		cert, err := e.m.IssueEntitlement(ctx, consumer, p.ID, fmt.Sprintf("system-%d", i), "")
		require.NoError(t, err)
		serials = append(serials, cert.Serial)
	}

	result, err := e.m.DeletePool(ctx, acme, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, result.Revoked)

	for _, serial := range append(serials, bundle.Serial) {
		status, err := e.m.CertificateStatus(ctx, admin, serial)
		require.NoError(t, err)
		assert.Equal(t, "revoked", status.Status, "serial %d", serial)

		revoked, err := e.m.RevokeCertificate(ctx, admin, serial)
		require.NoError(t, err, "revoking a removed serial is a no-op")
		assert.True(t, revoked.Revoked)
	}

	crl, err := e.m.RevocationList(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 4, crl.Entries)
	assert.NotEmpty(t, crl.DER)
}

func TestUpdatePool_ReportsOverConsumed(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	poolID := e.create(t, "acme", "RH00001", 3)

	for i := 0; i < 3; i++ {
		_, err := e.m.IssueEntitlement(ctx, acme, poolID, fmt.Sprintf("system-%d", i), "")
		require.NoError(t, err)
	}

	qty := int64(1)
	result, err := e.m.UpdatePool(ctx, acme, poolID, mediator.UpdatePoolRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.True(t, result.OverConsumed)
	assert.Equal(t, int64(1), result.Pool.Quantity)
	assert.Equal(t, int64(3), result.Pool.Consumed)
	assert.Equal(t, "OVER_CONSUMED", result.Pool.CapacityState)

	_, err = e.m.IssueEntitlement(ctx, acme, poolID, "system-9", "")
	assert.True(t, errors.IsCapacityExceededError(err))

	_, err = e.m.UpdatePool(ctx, globex, poolID, mediator.UpdatePoolRequest{Quantity: &qty})
	assert.True(t, errors.IsForbiddenError(err))
}

func TestUpdatePool_ShrinkingWindowRegeneratesCertificates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	p, err := e.m.CreateSubscription(ctx, acme, mediator.CreateSubscriptionRequest{
		OwnerKey:     "acme",
		ProductID:    "RH00001",
		Quantity:     3,
		GenerateCert: true,
	})
	require.NoError(t, err)

	issued, err := e.m.IssueEntitlement(ctx, consumer, p.ID, "system-1", "req-1")
	require.NoError(t, err)
	require.True(t, issued.ExpiresAt.After(time.Now().AddDate(0, 6, 0)))

	end := time.Now().UTC().Add(24 * time.Hour)
	result, err := e.m.UpdatePool(ctx, acme, p.ID, mediator.UpdatePoolRequest{EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Regenerated, "entitlement and pool bundle")
	assert.Equal(t, int64(1), result.Pool.Consumed)
	poolEnd := result.Pool.EndDate

	certs, err := e.m.ListCertificates(ctx, acme, p.ID, "system-1")
	require.NoError(t, err)
	require.Len(t, certs, 1)
	current := certs[0]
	assert.NotEqual(t, issued.Serial, current.Serial)
	assert.False(t, current.ExpiresAt.After(poolEnd), "expires %v after pool end %v", current.ExpiresAt, poolEnd)
	assert.False(t, current.Revoked)

	block, _ := pem.Decode([]byte(current.CertificatePEM))
	require.NotNil(t, block)
	x, err := x509.ParseCertificate(block.Bytes)
	require.NoError(t, err)
	assert.False(t, x.NotAfter.After(poolEnd))

	bundle, err := e.m.GetPoolCertificate(ctx, acme, p.ID)
	require.NoError(t, err)
	assert.False(t, bundle.ExpiresAt.After(poolEnd))

	// the superseded serial is revoked without releasing capacity
	status, err := e.m.CertificateStatus(ctx, consumer, issued.Serial)
	require.NoError(t, err)
	assert.Equal(t, "revoked", status.Status)
	status, err = e.m.CertificateStatus(ctx, consumer, current.Serial)
	require.NoError(t, err)
	assert.Equal(t, "good", status.Status)

	again, err := e.m.IssueEntitlement(ctx, consumer, p.ID, "system-1", "req-1")
	require.NoError(t, err)
	assert.Equal(t, current.Serial, again.Serial)

	stale, err := e.m.RevokeCertificate(ctx, acme, issued.Serial)
	require.NoError(t, err)
	assert.True(t, stale.Revoked)
	pl, err := e.m.GetPool(ctx, acme, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pl.Consumed)

	revoked, err := e.m.RevokeCertificate(ctx, acme, current.Serial)
	require.NoError(t, err)
	assert.True(t, revoked.Revoked)
	pl, err = e.m.GetPool(ctx, acme, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), pl.Consumed)

	// a quantity-only update leaves certificates alone
	qty := int64(4)
	result, err = e.m.UpdatePool(ctx, acme, p.ID, mediator.UpdatePoolRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Zero(t, result.Regenerated)
}

func TestIssueEntitlement_AuthorizesBeforePoolLookup(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	poolID := e.create(t, "acme", "RH00001", 1)

	for _, id := range []uint{poolID, 424242} {
		_, err := e.m.IssueEntitlement(ctx, stranger, id, "system-1", "")
		assert.True(t, errors.IsForbiddenError(err), "pool %d: got %v", id, err)
	}

	_, err := e.m.IssueEntitlement(ctx, consumer, 424242, "system-1", "")
	assert.True(t, errors.IsNotFoundError(err))

	_, err = e.m.IssueEntitlement(ctx, globex, poolID, "system-1", "")
	assert.True(t, errors.IsForbiddenError(err))
}

func TestPoolAvailability_ReadsThroughCache(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	poolID := e.create(t, "acme", "RH00001", 2)

	_, err := e.m.IssueEntitlement(ctx, consumer, poolID, "system-1", "")
	require.NoError(t, err)

	a, err := e.m.PoolAvailability(ctx, consumer, poolID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), a.Quantity)
	assert.Equal(t, int64(1), a.Consumed)
	assert.Equal(t, int64(1), a.Available)
	assert.NotEmpty(t, e.redis.Keys())

	_, err = e.m.PoolAvailability(ctx, consumer, 424242)
	assert.True(t, errors.IsNotFoundError(err))

	_, err = e.m.PoolAvailability(ctx, globex, poolID)
	assert.True(t, errors.IsForbiddenError(err))
}

func TestAuthorization_UnknownCaller(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	poolID := e.create(t, "acme", "RH00001", 1)

	_, err := e.m.GetPool(ctx, stranger, poolID)
	assert.True(t, errors.IsForbiddenError(err))

	_, err = e.m.ListSubscriptions(ctx, appperm.Caller{}, "acme")
	assert.True(t, errors.IsForbiddenError(err))

	_, err = e.m.RevocationList(ctx, stranger)
	assert.True(t, errors.IsForbiddenError(err))
}
