package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	dbtestutil "github.com/cipherboy/candlepin/internal/infrastructure/persistence/testutil"
	"github.com/cipherboy/candlepin/internal/shared/db"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
)

const testTerm = 30 * 24 * time.Hour

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 2, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond}
}

func newTestTxManager(t *testing.T) *db.TransactionManager {
	t.Helper()
	return db.NewTransactionManager(dbtestutil.NewTestDB(t))
}

func newCreateUseCase(t *testing.T, repo *mockSubscriptionRepository, rec *mockReconciler, pub *mockPublisher) *CreateSubscriptionUseCase {
	t.Helper()
	return NewCreateSubscriptionUseCase(
		newTestTxManager(t),
		repo,
		newMockOwnerDirectory("acme"),
		newMockCatalog("RH00001"),
		rec,
		pub,
		testTerm,
		testPolicy(),
		logger.NewDiscardLogger(),
	)
}

func TestCreateSubscriptionUseCase_Validation(t *testing.T) {
	now := time.Now().UTC()
	before := now.Add(-time.Hour)

	tests := []struct {
		name      string
		cmd       CreateSubscriptionCommand
		checkFunc func(error) bool
	}{
		{
			name:      "zero quantity",
			cmd:       CreateSubscriptionCommand{OwnerKey: "acme", ProductID: "RH00001", Quantity: 0},
			checkFunc: errors.IsValidationError,
		},
		{
			name:      "negative quantity",
			cmd:       CreateSubscriptionCommand{OwnerKey: "acme", ProductID: "RH00001", Quantity: -3},
			checkFunc: errors.IsValidationError,
		},
		{
			name:      "owner key with spaces",
			cmd:       CreateSubscriptionCommand{OwnerKey: "ac me", ProductID: "RH00001", Quantity: 1},
			checkFunc: errors.IsValidationError,
		},
		{
			name:      "end before start",
			cmd:       CreateSubscriptionCommand{OwnerKey: "acme", ProductID: "RH00001", Quantity: 1, StartDate: &now, EndDate: &before},
			checkFunc: errors.IsValidationError,
		},
		{
			name:      "unknown owner",
			cmd:       CreateSubscriptionCommand{OwnerKey: "globex", ProductID: "RH00001", Quantity: 1},
			checkFunc: errors.IsNotFoundError,
		},
		{
			name:      "unknown product",
			cmd:       CreateSubscriptionCommand{OwnerKey: "acme", ProductID: "RH99999", Quantity: 1},
			checkFunc: errors.IsNotFoundError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockSubscriptionRepository{}
			rec := &mockReconciler{}
			uc := newCreateUseCase(t, repo, rec, &mockPublisher{})

			_, err := uc.Execute(context.Background(), tt.cmd)
			require.Error(t, err)
			assert.True(t, tt.checkFunc(err), "unexpected error: %v", err)
			assert.Zero(t, repo.nextID, "nothing is stored")
			assert.Zero(t, rec.afterCommitCalls())
		})
	}
}

func TestCreateSubscriptionUseCase_Success(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	pub := &mockPublisher{}
	var generate bool
	rec := &mockReconciler{
		OnSubscriptionCreatedFunc: func(_ context.Context, sub *subscription.Subscription, generateCert bool) ([]*pool.Pool, error) {
			generate = generateCert
			p, err := pool.NewPool(sub.ID(), sub.OwnerKey(), sub.ProductID(), sub.Quantity(),
				sub.StartDate(), sub.EndDate(), sub.ProvidedProductIDs(), time.Now())
			if err != nil {
				return nil, err
			}
			_ = p.SetID(7)
			return []*pool.Pool{p}, nil
		},
	}
	uc := newCreateUseCase(t, repo, rec, pub)

	result, err := uc.Execute(context.Background(), CreateSubscriptionCommand{
		OwnerKey:           "acme",
		ProductID:          "RH00001",
		Quantity:           5,
		ProvidedProductIDs: []string{"69", "37060", "69"},
		ContractNumber:     "<b>C-100</b>",
		GenerateCert:       true,
	})
	require.NoError(t, err)

	sub := result.Subscription
	assert.Equal(t, uint(1), sub.ID())
	assert.Equal(t, int64(5), sub.Quantity())
	assert.Equal(t, "C-100", sub.Contract().ContractNumber)
	assert.Equal(t, []string{"37060", "69"}, sub.ProvidedProductIDs())
	assert.Equal(t, subscription.StatusActive, sub.Status())
	assert.Equal(t, testTerm, sub.EndDate().Sub(sub.StartDate()))

	assert.True(t, generate)
	require.Len(t, result.Pools, 1)
	assert.Equal(t, uint(7), result.Pools[0].ID())

	require.Equal(t, 1, rec.afterCommitCalls())
	assert.True(t, rec.committed[0][0].Created)
	assert.Equal(t, []string{subscription.EventSubscriptionCreated}, pub.types())
}

func TestCreateSubscriptionUseCase_ReconcilerFailure(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	pub := &mockPublisher{}
	rec := &mockReconciler{
		OnSubscriptionCreatedFunc: func(context.Context, *subscription.Subscription, bool) ([]*pool.Pool, error) {
			return nil, errors.NewValidationError("cannot derive pools")
		},
	}
	uc := newCreateUseCase(t, repo, rec, pub)

	_, err := uc.Execute(context.Background(), CreateSubscriptionCommand{OwnerKey: "acme", ProductID: "RH00001", Quantity: 1})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Zero(t, rec.afterCommitCalls())
	assert.Empty(t, pub.types())
}

func TestCreateSubscriptionUseCase_FutureStartIsCreated(t *testing.T) {
	repo := &mockSubscriptionRepository{}
	uc := newCreateUseCase(t, repo, &mockReconciler{}, &mockPublisher{})

	start := time.Now().UTC().Add(48 * time.Hour)
	result, err := uc.Execute(context.Background(), CreateSubscriptionCommand{
		OwnerKey:  "acme",
		ProductID: "RH00001",
		Quantity:  1,
		StartDate: &start,
	})
	require.NoError(t, err)
	assert.Equal(t, subscription.StatusCreated, result.Subscription.Status())
}
