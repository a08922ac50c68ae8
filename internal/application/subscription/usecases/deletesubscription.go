package usecases

import (
	"context"
	"fmt"

	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// DeleteSubscriptionResult lists the pools removed with the subscription.
type DeleteSubscriptionResult struct {
	Subscription *subscription.Subscription
	Pools        []apppool.Reconciliation
}

// Revoked returns the number of certificates revoked by the teardown.
func (r *DeleteSubscriptionResult) Revoked() int {
	n := 0
	for _, rec := range r.Pools {
		n += rec.Revoked
	}
	return n
}

// DeleteSubscriptionUseCase tears down every pool of a subscription and
// removes it. Either everything is removed or nothing is.
type DeleteSubscriptionUseCase struct {
	subscriptions subscription.Repository
	reconciler    PoolReconciler
	publisher     events.EventPublisher
	logger        logger.Interface
}

// NewDeleteSubscriptionUseCase creates a new delete subscription use case
func NewDeleteSubscriptionUseCase(
	subscriptions subscription.Repository,
	reconciler PoolReconciler,
	publisher events.EventPublisher,
	logger logger.Interface,
) *DeleteSubscriptionUseCase {
	return &DeleteSubscriptionUseCase{
		subscriptions: subscriptions,
		reconciler:    reconciler,
		publisher:     publisher,
		logger:        logger,
	}
}

func (uc *DeleteSubscriptionUseCase) Execute(ctx context.Context, id uint) (*DeleteSubscriptionResult, error) {
	uc.logger.Infow("executing delete subscription use case", "subscription_id", id)

	sub, err := uc.subscriptions.GetByID(ctx, id)
	if err != nil {
		uc.logger.Errorw("failed to get subscription", "subscription_id", id, "error", err)
		return nil, err
	}
	if sub == nil || sub.Status() == subscription.StatusDeleted {
		return nil, apperrors.NewNotFoundError("subscription not found", fmt.Sprintf("subscription %d", id))
	}

	var (
		deleted *subscription.Subscription
		from    subscription.Status
	)
	finalize := func(ctx context.Context) error {
		// reload inside the teardown transaction
		current, err := uc.subscriptions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if current == nil {
			return apperrors.NewNotFoundError("subscription not found", fmt.Sprintf("subscription %d", id))
		}
		from = current.Status()
		if err := current.MarkDeleted(biztime.NowUTC()); err != nil {
			return domainError(err)
		}
		if err := uc.subscriptions.Delete(ctx, id); err != nil {
			return err
		}
		deleted = current
		return nil
	}

	recs, err := uc.reconciler.OnSubscriptionDeleted(ctx, id, finalize)
	if err != nil {
		uc.logger.Errorw("failed to delete subscription",
			"subscription_id", id,
			"error", err,
		)
		return nil, err
	}

	result := &DeleteSubscriptionResult{Subscription: deleted, Pools: recs}
	common.Publish(uc.publisher, uc.logger, subscription.NewLifecycleEvent(
		subscription.EventSubscriptionDeleted, deleted, from, biztime.NowUTC()))

	uc.logger.Infow("subscription deleted successfully",
		"subscription_id", id,
		"pools", len(recs),
		"revoked", result.Revoked(),
	)
	return result, nil
}
