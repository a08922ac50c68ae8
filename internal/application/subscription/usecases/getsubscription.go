package usecases

import (
	"context"
	"fmt"

	"github.com/cipherboy/candlepin/internal/domain/subscription"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// GetSubscriptionUseCase loads a subscription by its internal id. It is used
// by maintenance tooling and the pool-scoped mediator operations only.
type GetSubscriptionUseCase struct {
	subscriptions subscription.Repository
	logger        logger.Interface
}

func NewGetSubscriptionUseCase(subscriptions subscription.Repository, logger logger.Interface) *GetSubscriptionUseCase {
	return &GetSubscriptionUseCase{
		subscriptions: subscriptions,
		logger:        logger,
	}
}

func (uc *GetSubscriptionUseCase) Execute(ctx context.Context, id uint) (*subscription.Subscription, error) {
	sub, err := uc.subscriptions.GetByID(ctx, id)
	if err != nil {
		uc.logger.Errorw("failed to get subscription", "subscription_id", id, "error", err)
		return nil, err
	}
	if sub == nil || sub.Status() == subscription.StatusDeleted {
		return nil, apperrors.NewNotFoundError("subscription not found", fmt.Sprintf("subscription %d", id))
	}
	return sub, nil
}
