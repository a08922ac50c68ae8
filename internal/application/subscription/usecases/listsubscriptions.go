package usecases

import (
	"context"
	"fmt"

	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// ListSubscriptionsUseCase lists an owner's live subscriptions.
type ListSubscriptionsUseCase struct {
	subscriptions subscription.Repository
	owners        owner.Directory
	logger        logger.Interface
}

// NewListSubscriptionsUseCase creates a new list subscriptions use case
func NewListSubscriptionsUseCase(
	subscriptions subscription.Repository,
	owners owner.Directory,
	logger logger.Interface,
) *ListSubscriptionsUseCase {
	return &ListSubscriptionsUseCase{
		subscriptions: subscriptions,
		owners:        owners,
		logger:        logger,
	}
}

// Execute returns the subscriptions in creation order.
func (uc *ListSubscriptionsUseCase) Execute(ctx context.Context, ownerKey string) ([]*subscription.Subscription, error) {
	if ownerKey == "" {
		return nil, apperrors.NewValidationError("owner key is required")
	}

	o, err := uc.owners.GetByKey(ctx, ownerKey)
	if err != nil {
		uc.logger.Errorw("failed to get owner", "owner_key", ownerKey, "error", err)
		return nil, err
	}
	if o == nil {
		return nil, apperrors.NewNotFoundError("owner not found", ownerKey)
	}

	subs, err := uc.subscriptions.ListByOwner(ctx, ownerKey)
	if err != nil {
		uc.logger.Errorw("failed to list subscriptions", "owner_key", ownerKey, "error", err)
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	live := make([]*subscription.Subscription, 0, len(subs))
	for _, sub := range subs {
		if sub.Status() != subscription.StatusDeleted {
			live = append(live, sub)
		}
	}
	return live, nil
}
