package usecases

import (
	"context"
	"time"

	apppool "github.com/cipherboy/candlepin/internal/application/pool"
	"github.com/cipherboy/candlepin/internal/application/common"
	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/biztime"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
	"github.com/cipherboy/candlepin/internal/shared/retry"
	"github.com/cipherboy/candlepin/internal/shared/utils"
)

// CreateSubscriptionCommand describes a purchased grant. Nil dates default to
// now and now plus the configured term.
type CreateSubscriptionCommand struct {
	OwnerKey           string     `json:"owner_key" validate:"required,key,max=255"`
	ProductID          string     `json:"product_id" validate:"required,key,max=255"`
	Quantity           int64      `json:"quantity" validate:"gt=0"`
	ProvidedProductIDs []string   `json:"provided_product_ids" validate:"omitempty,dive,key"`
	ContractNumber     string     `json:"contract_number" validate:"max=255"`
	AccountNumber      string     `json:"account_number" validate:"max=255"`
	OrderNumber        string     `json:"order_number" validate:"max=255"`
	ActivationKey      *string    `json:"activation_key" validate:"omitempty,max=255"`
	StartDate          *time.Time `json:"start_date"`
	EndDate            *time.Time `json:"end_date"`
	GenerateCert       bool       `json:"generate_cert"`
}

// CreateSubscriptionResult carries the stored subscription and its pools.
type CreateSubscriptionResult struct {
	Subscription *subscription.Subscription
	Pools        []*pool.Pool
}

// CreateSubscriptionUseCase stores a subscription and derives its pools in
// one transaction.
type CreateSubscriptionUseCase struct {
	txManager     *db.TransactionManager
	subscriptions subscription.Repository
	owners        owner.Directory
	catalog       product.Catalog
	reconciler    PoolReconciler
	publisher     events.EventPublisher
	defaultTerm   time.Duration
	policy        retry.Policy
	logger        logger.Interface
}

// NewCreateSubscriptionUseCase creates a new create subscription use case
func NewCreateSubscriptionUseCase(
	txManager *db.TransactionManager,
	subscriptions subscription.Repository,
	owners owner.Directory,
	catalog product.Catalog,
	reconciler PoolReconciler,
	publisher events.EventPublisher,
	defaultTerm time.Duration,
	policy retry.Policy,
	logger logger.Interface,
) *CreateSubscriptionUseCase {
	return &CreateSubscriptionUseCase{
		txManager:     txManager,
		subscriptions: subscriptions,
		owners:        owners,
		catalog:       catalog,
		reconciler:    reconciler,
		publisher:     publisher,
		defaultTerm:   defaultTerm,
		policy:        policy,
		logger:        logger,
	}
}

func (uc *CreateSubscriptionUseCase) Execute(ctx context.Context, cmd CreateSubscriptionCommand) (*CreateSubscriptionResult, error) {
	if err := utils.ValidateStruct(cmd); err != nil {
		uc.logger.Warnw("invalid create subscription command", "error", err)
		return nil, err
	}

	uc.logger.Infow("executing create subscription use case",
		"owner_key", cmd.OwnerKey,
		"product_id", cmd.ProductID,
		"quantity", cmd.Quantity,
	)

	o, err := uc.owners.GetByKey(ctx, cmd.OwnerKey)
	if err != nil {
		uc.logger.Errorw("failed to get owner", "owner_key", cmd.OwnerKey, "error", err)
		return nil, err
	}
	if o == nil {
		return nil, apperrors.NewNotFoundError("owner not found", cmd.OwnerKey)
	}

	prod, err := uc.catalog.GetByID(ctx, cmd.ProductID)
	if err != nil {
		uc.logger.Errorw("failed to get product", "product_id", cmd.ProductID, "error", err)
		return nil, err
	}
	if prod == nil {
		return nil, apperrors.NewNotFoundError("product not found", cmd.ProductID)
	}

	now := biztime.NowUTC()
	start := now
	if cmd.StartDate != nil {
		start = cmd.StartDate.UTC()
	}
	end := start.Add(uc.defaultTerm)
	if cmd.EndDate != nil {
		end = cmd.EndDate.UTC()
	}
	contract := subscription.Contract{
		ContractNumber: utils.SanitizeText(cmd.ContractNumber),
		AccountNumber:  utils.SanitizeText(cmd.AccountNumber),
		OrderNumber:    utils.SanitizeText(cmd.OrderNumber),
	}

	var result *CreateSubscriptionResult
	err = uc.txManager.RunWithRetry(ctx, uc.policy, uc.logger, "subscription.create", func(ctx context.Context) error {
		sub, err := subscription.NewSubscription(cmd.OwnerKey, cmd.ProductID, cmd.Quantity,
			start, end, contract, cmd.ProvidedProductIDs, cmd.ActivationKey, now)
		if err != nil {
			return domainError(err)
		}
		if err := uc.subscriptions.Create(ctx, sub); err != nil {
			return err
		}
		pools, err := uc.reconciler.OnSubscriptionCreated(ctx, sub, cmd.GenerateCert)
		if err != nil {
			return err
		}
		result = &CreateSubscriptionResult{Subscription: sub, Pools: pools}
		return nil
	})
	if err != nil {
		uc.logger.Errorw("failed to create subscription",
			"owner_key", cmd.OwnerKey,
			"product_id", cmd.ProductID,
			"error", err,
		)
		return nil, err
	}

	uc.reconciler.AfterCommit(ctx, apppool.Created(result.Pools))
	common.Publish(uc.publisher, uc.logger, subscription.NewLifecycleEvent(
		subscription.EventSubscriptionCreated, result.Subscription, "", biztime.NowUTC()))

	uc.logger.Infow("subscription created successfully",
		"subscription_id", result.Subscription.ID(),
		"owner_key", cmd.OwnerKey,
		"pools", len(result.Pools),
	)
	return result, nil
}
