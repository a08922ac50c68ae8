package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

func storedSubscription(t *testing.T, id uint, start, end time.Time) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.ReconstructSubscription(id, "acme", "RH00001", 2, start, end,
		subscription.Contract{ContractNumber: "C-1"}, []string{"69"}, nil, subscription.StatusActive, 1, start, start)
	require.NoError(t, err)
	return sub
}

func TestDeleteSubscriptionUseCase_NotFound(t *testing.T) {
	rec := &mockReconciler{}
	uc := NewDeleteSubscriptionUseCase(&mockSubscriptionRepository{}, rec, &mockPublisher{}, logger.NewDiscardLogger())

	_, err := uc.Execute(context.Background(), 42)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestDeleteSubscriptionUseCase_FinalizeRemovesSubscription(t *testing.T) {
	now := time.Now().UTC()
	var deletedID uint
	repo := &mockSubscriptionRepository{
		GetByIDFunc: func(_ context.Context, id uint) (*subscription.Subscription, error) {
			return storedSubscription(t, id, now.Add(-time.Hour), now.Add(time.Hour)), nil
		},
		DeleteFunc: func(_ context.Context, id uint) error {
			deletedID = id
			return nil
		},
	}
	rec := &mockReconciler{
		OnSubscriptionDeletedFunc: func(ctx context.Context, _ uint, finalize func(ctx context.Context) error) ([]apppool.Reconciliation, error) {
			if err := finalize(ctx); err != nil {
				return nil, err
			}
			return []apppool.Reconciliation{{Deleted: true, Revoked: 3}}, nil
		},
	}
	pub := &mockPublisher{}
	uc := NewDeleteSubscriptionUseCase(repo, rec, pub, logger.NewDiscardLogger())

	result, err := uc.Execute(context.Background(), 9)
	require.NoError(t, err)
	assert.Equal(t, uint(9), deletedID)
	assert.Equal(t, subscription.StatusDeleted, result.Subscription.Status())
	assert.Equal(t, 3, result.Revoked())
	assert.Equal(t, []string{subscription.EventSubscriptionDeleted}, pub.types())
}

func TestDeleteSubscriptionUseCase_TeardownFailure(t *testing.T) {
	now := time.Now().UTC()
	repo := &mockSubscriptionRepository{
		GetByIDFunc: func(_ context.Context, id uint) (*subscription.Subscription, error) {
			return storedSubscription(t, id, now.Add(-time.Hour), now.Add(time.Hour)), nil
		},
		DeleteFunc: func(context.Context, uint) error {
			t.Fatal("subscription must not be removed when teardown fails")
			return nil
		},
	}
	rec := &mockReconciler{
		OnSubscriptionDeletedFunc: func(context.Context, uint, func(ctx context.Context) error) ([]apppool.Reconciliation, error) {
			return nil, errors.NewTransientError("teardown failed", context.DeadlineExceeded)
		},
	}
	pub := &mockPublisher{}
	uc := NewDeleteSubscriptionUseCase(repo, rec, pub, logger.NewDiscardLogger())

	_, err := uc.Execute(context.Background(), 9)
	require.Error(t, err)
	assert.True(t, errors.IsTransientError(err))
	assert.Empty(t, pub.types())
}

func TestUpdateSubscriptionUseCase(t *testing.T) {
	now := time.Now().UTC()
	qty := int64(4)
	zero := int64(0)
	contract := "<i>C-2</i>"

	tests := []struct {
		name      string
		cmd       UpdateSubscriptionCommand
		missing   bool
		wantErr   func(error) bool
		wantQty   int64
		wantCalls int
	}{
		{name: "amends quantity and contract", cmd: UpdateSubscriptionCommand{ID: 1, Quantity: &qty, ContractNumber: &contract}, wantQty: 4, wantCalls: 1},
		{name: "zero quantity", cmd: UpdateSubscriptionCommand{ID: 1, Quantity: &zero}, wantErr: errors.IsValidationError},
		{name: "missing id", cmd: UpdateSubscriptionCommand{}, wantErr: errors.IsValidationError},
		{name: "unknown subscription", cmd: UpdateSubscriptionCommand{ID: 5, Quantity: &qty}, missing: true, wantErr: errors.IsNotFoundError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var updated *subscription.Subscription
			repo := &mockSubscriptionRepository{
				GetByIDFunc: func(_ context.Context, id uint) (*subscription.Subscription, error) {
					if tt.missing {
						return nil, nil
					}
					return storedSubscription(t, id, now.Add(-time.Hour), now.Add(time.Hour)), nil
				},
				UpdateFunc: func(_ context.Context, sub *subscription.Subscription) error {
					updated = sub
					return nil
				},
			}
			reconciled := 0
			rec := &mockReconciler{
				OnSubscriptionUpdatedFunc: func(context.Context, *subscription.Subscription) ([]apppool.Reconciliation, error) {
					reconciled++
					return []apppool.Reconciliation{{Resized: true}}, nil
				},
			}
			uc := NewUpdateSubscriptionUseCase(newTestTxManager(t), repo, rec, &mockPublisher{}, testPolicy(), logger.NewDiscardLogger())

			result, err := uc.Execute(context.Background(), tt.cmd)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, tt.wantErr(err), "unexpected error: %v", err)
				assert.Zero(t, rec.afterCommitCalls())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQty, updated.Quantity())
			assert.Equal(t, "C-2", result.Subscription.Contract().ContractNumber)
			assert.Equal(t, 2, result.Subscription.Version())
			assert.Equal(t, tt.wantCalls, reconciled)
			assert.Equal(t, 1, rec.afterCommitCalls())
		})
	}
}

func TestListSubscriptionsUseCase(t *testing.T) {
	now := time.Now().UTC()
	live := storedSubscription(t, 1, now.Add(-time.Hour), now.Add(time.Hour))
	gone, err := subscription.ReconstructSubscription(2, "acme", "RH00001", 1, now, now,
		subscription.Contract{}, nil, nil, subscription.StatusDeleted, 3, now, now)
	require.NoError(t, err)

	repo := &mockSubscriptionRepository{
		ListByOwnerFunc: func(context.Context, string) ([]*subscription.Subscription, error) {
			return []*subscription.Subscription{live, gone}, nil
		},
	}
	uc := NewListSubscriptionsUseCase(repo, newMockOwnerDirectory("acme"), logger.NewDiscardLogger())

	subs, err := uc.Execute(context.Background(), "acme")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, uint(1), subs[0].ID())

	_, err = uc.Execute(context.Background(), "globex")
	assert.True(t, errors.IsNotFoundError(err))
}

func TestExpireSubscriptionsUseCase(t *testing.T) {
	now := time.Now().UTC()
	pending, err := subscription.ReconstructSubscription(1, "acme", "RH00001", 1,
		now.Add(-time.Hour), now.Add(time.Hour), subscription.Contract{}, nil, nil, subscription.StatusCreated, 1, now, now)
	require.NoError(t, err)
	lapsed := storedSubscription(t, 2, now.Add(-48*time.Hour), now.Add(-24*time.Hour))
	current := storedSubscription(t, 3, now.Add(-time.Hour), now.Add(time.Hour))
	broken := storedSubscription(t, 4, now.Add(-48*time.Hour), now.Add(-time.Hour))

	repo := &mockSubscriptionRepository{
		ListByStatusFunc: func(_ context.Context, statuses ...subscription.Status) ([]*subscription.Subscription, error) {
			assert.ElementsMatch(t, []subscription.Status{subscription.StatusCreated, subscription.StatusActive}, statuses)
			return []*subscription.Subscription{pending, lapsed, current, broken}, nil
		},
		UpdateFunc: func(_ context.Context, sub *subscription.Subscription) error {
			if sub.ID() == 4 {
				return errors.NewConflictError("subscription was modified concurrently")
			}
			return nil
		},
	}
	metrics := &mockStatusMetrics{}
	pub := &mockPublisher{}
	uc := NewExpireSubscriptionsUseCase(repo, pub, metrics, logger.NewDiscardLogger())

	changed, err := uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, changed)
	assert.Equal(t, subscription.StatusActive, pending.Status())
	assert.Equal(t, subscription.StatusExpired, lapsed.Status())
	assert.Equal(t, subscription.StatusActive, current.Status())
	assert.Equal(t, map[string]int{"ACTIVE": 1, "EXPIRED": 1}, metrics.changes)
	assert.Len(t, pub.types(), 2)
}
