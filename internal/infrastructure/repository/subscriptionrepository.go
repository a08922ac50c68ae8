package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/mappers"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// SubscriptionRepositoryImpl implements subscription.Repository with gorm
type SubscriptionRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.SubscriptionMapper
	logger logger.Interface
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB, logger logger.Interface) subscription.Repository {
	return &SubscriptionRepositoryImpl{
		db:     db,
		mapper: mappers.NewSubscriptionMapper(),
		logger: logger,
	}
}

func (r *SubscriptionRepositoryImpl) Create(ctx context.Context, sub *subscription.Subscription) error {
	model := r.mapper.ToModel(sub)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create subscription", "owner_key", sub.OwnerKey(), "product_id", sub.ProductID(), "error", err)
		return apperrors.FromDB("failed to create subscription", err)
	}
	if err := sub.SetID(model.ID); err != nil {
		return err
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) GetByID(ctx context.Context, id uint) (*subscription.Subscription, error) {
	var model models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get subscription by ID", "id", id, "error", err)
		return nil, apperrors.FromDB("failed to get subscription", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *SubscriptionRepositoryImpl) ListByOwner(ctx context.Context, ownerKey string) ([]*subscription.Subscription, error) {
	var rows []*models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("owner_key = ?", ownerKey).
		Scopes(db.OrderByID()).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions", "owner_key", ownerKey, "error", err)
		return nil, apperrors.FromDB("failed to list subscriptions", err)
	}
	return r.mapper.ToEntities(rows)
}

func (r *SubscriptionRepositoryImpl) ListByStatus(ctx context.Context, statuses ...subscription.Status) ([]*subscription.Subscription, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, s.String())
	}

	var rows []*models.SubscriptionModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("status IN ?", names).
		Scopes(db.OrderByID()).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list subscriptions by status", "statuses", names, "error", err)
		return nil, apperrors.FromDB("failed to list subscriptions", err)
	}
	return r.mapper.ToEntities(rows)
}

// Update saves the aggregate with optimistic locking on version.
func (r *SubscriptionRepositoryImpl) Update(ctx context.Context, sub *subscription.Subscription) error {
	model := r.mapper.ToModel(sub)
	result := db.GetTxFromContext(ctx, r.db).Model(&models.SubscriptionModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"quantity":             model.Quantity,
			"start_date":           model.StartDate,
			"end_date":             model.EndDate,
			"contract_number":      model.ContractNumber,
			"account_number":       model.AccountNumber,
			"order_number":         model.OrderNumber,
			"provided_product_ids": model.ProvidedProductIDs,
			"status":               model.Status,
			"version":              model.Version,
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update subscription", "id", model.ID, "error", result.Error)
		return apperrors.FromDB("failed to update subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewConflictError("subscription was modified concurrently", "reload and retry")
	}
	return nil
}

func (r *SubscriptionRepositoryImpl) Delete(ctx context.Context, id uint) error {
	result := db.GetTxFromContext(ctx, r.db).Delete(&models.SubscriptionModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete subscription", "id", id, "error", result.Error)
		return apperrors.FromDB("failed to delete subscription", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("subscription not found")
	}
	return nil
}
