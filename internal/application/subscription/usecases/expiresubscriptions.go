package usecases

import (
	"context"
	"fmt"

	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// ExpireSubscriptionsUseCase moves subscriptions forward through CREATED,
// ACTIVE and EXPIRED as their validity windows open and close. It runs as a
// scheduled batch job.
type ExpireSubscriptionsUseCase struct {
	subscriptions subscription.Repository
	publisher     events.EventPublisher
	metrics       StatusMetrics
	logger        logger.Interface
}

// NewExpireSubscriptionsUseCase creates a new ExpireSubscriptionsUseCase
func NewExpireSubscriptionsUseCase(
	subscriptions subscription.Repository,
	publisher events.EventPublisher,
	metrics StatusMetrics,
	logger logger.Interface,
) *ExpireSubscriptionsUseCase {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ExpireSubscriptionsUseCase{
		subscriptions: subscriptions,
		publisher:     publisher,
		metrics:       metrics,
		logger:        logger,
	}
}

// Execute returns the number of subscriptions whose status changed.
func (uc *ExpireSubscriptionsUseCase) Execute(ctx context.Context) (int, error) {
	candidates, err := uc.subscriptions.ListByStatus(ctx, subscription.StatusCreated, subscription.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	if len(candidates) == 0 {
		return 0, nil
	}

	now := biztime.NowUTC()
	changed := 0
	for _, sub := range candidates {
		from, moved := sub.RefreshStatus(now)
		if !moved {
			continue
		}

		if err := uc.subscriptions.Update(ctx, sub); err != nil {
			uc.logger.Errorw("failed to update subscription status",
				"subscription_id", sub.ID(),
				"from", from,
				"to", sub.Status(),
				"error", err,
			)
			continue
		}

		changed++
		uc.metrics.IncrementStatusChange(sub.Status().String())
		common.Publish(uc.publisher, uc.logger, subscription.NewLifecycleEvent(
			subscription.EventSubscriptionStatusChanged, sub, from, now))
		uc.logger.Debugw("subscription status changed",
			"subscription_id", sub.ID(),
			"from", from,
			"to", sub.Status(),
		)
	}

	return changed, nil
}
