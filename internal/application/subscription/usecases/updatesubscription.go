package usecases

import (
	"context"
	"fmt"
	"time"

	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
	"github.com/cipherboy/candlepin/internal/shared/utils"
)

// UpdateSubscriptionCommand amends a subscription. Nil fields are unchanged.
type UpdateSubscriptionCommand struct {
	ID                 uint       `json:"id" validate:"required"`
	Quantity           *int64     `json:"quantity" validate:"omitempty,gt=0"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	ProvidedProductIDs []string   `json:"provided_product_ids" validate:"omitempty,dive,key"`
	ContractNumber     *string    `json:"contract_number" validate:"omitempty,max=255"`
	AccountNumber      *string    `json:"account_number" validate:"omitempty,max=255"`
	OrderNumber        *string    `json:"order_number" validate:"omitempty,max=255"`
}

func (c UpdateSubscriptionCommand) amendment(current subscription.Contract) subscription.Amendment {
	a := subscription.Amendment{
		Quantity:           c.Quantity,
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		ProvidedProductIDs: c.ProvidedProductIDs,
	}
	if c.ContractNumber == nil && c.AccountNumber == nil && c.OrderNumber == nil {
		return a
	}
	contract := current
	if c.ContractNumber != nil {
		contract.ContractNumber = utils.SanitizeText(*c.ContractNumber)
	}
	if c.AccountNumber != nil {
		contract.AccountNumber = utils.SanitizeText(*c.AccountNumber)
	}
	if c.OrderNumber != nil {
		contract.OrderNumber = utils.SanitizeText(*c.OrderNumber)
	}
	a.Contract = &contract
	return a
}

// UpdateSubscriptionResult carries the amended subscription and what
// reconciliation did to its pools.
type UpdateSubscriptionResult struct {
	Subscription *subscription.Subscription
	Pools        []apppool.Reconciliation
}

// UpdateSubscriptionUseCase applies an explicit update and re-runs
// reconciliation in the same transaction.
type UpdateSubscriptionUseCase struct {
	txManager     *db.TransactionManager
	subscriptions subscription.Repository
	reconciler    PoolReconciler
	publisher     events.EventPublisher
	policy        retry.Policy
	logger        logger.Interface
}

// NewUpdateSubscriptionUseCase creates a new update subscription use case
func NewUpdateSubscriptionUseCase(
	txManager *db.TransactionManager,
	subscriptions subscription.Repository,
	reconciler PoolReconciler,
	publisher events.EventPublisher,
	policy retry.Policy,
	logger logger.Interface,
) *UpdateSubscriptionUseCase {
	return &UpdateSubscriptionUseCase{
		txManager:     txManager,
		subscriptions: subscriptions,
		reconciler:    reconciler,
		publisher:     publisher,
		policy:        policy,
		logger:        logger,
	}
}

func (uc *UpdateSubscriptionUseCase) Execute(ctx context.Context, cmd UpdateSubscriptionCommand) (*UpdateSubscriptionResult, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		uc.logger.Warnw("invalid update subscription command", "error", err)
		return nil, err
	}

	uc.logger.Infow("executing update subscription use case", "subscription_id", cmd.ID)

	var result *UpdateSubscriptionResult
	err := uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "subscription.update", func(ctx context.Context) error {
		sub, err := uc.subscriptions.GetByID(ctx, cmd.ID)
		if err != nil {
			return err
		}
		if sub == nil {
			return apperrors.NewNotFoundError("subscription not found", fmt.Sprintf("subscription %d", cmd.ID))
		}
		if err := sub.Amend(cmd.amendment(sub.Contract()), biztime.NowUTC()); err != nil {
			return domainError(err)
		}
		if err := uc.subscriptions.Update(ctx, sub); err != nil {
			return err
		}
		recs, err := uc.reconciler.OnSubscriptionUpdated(ctx, sub)
		if err != nil {
			return err
		}
		result = &UpdateSubscriptionResult{Subscription: sub, Pools: recs}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to update subscription",
			"subscription_id", cmd.ID,
			"error", err,
		)
		return nil, err
	}

	uc.reconciler.AfterCommit(ctx, result.Pools)
	common.Publish(uc.publisher, uc.logger, subscription.NewLifecycleEvent(
		subscription.EventSubscriptionUpdated, result.Subscription, "", biztime.NowUTC()))

	uc.logger.Infow("subscription updated successfully",
		"subscription_id", cmd.ID,
		"quantity", result.Subscription.Quantity(),
		"pools", len(result.Pools),
	)
	return result, nil
}
