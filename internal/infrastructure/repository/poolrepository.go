package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/mappers"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// PoolRepositoryImpl implements pool.Repository with gorm. Consumption is
// changed by conditional UPDATEs so concurrent issuers never overshoot.
type PoolRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PoolMapper
	logger logger.Interface
}

// NewPoolRepository creates a new pool repository instance
func NewPoolRepository(db *gorm.DB, logger logger.Interface) pool.Repository {
	return &PoolRepositoryImpl{
		db:     db,
		mapper: mappers.NewPoolMapper(),
		logger: logger,
	}
}

func (r *PoolRepositoryImpl) Create(ctx context.Context, p *pool.Pool) error {
	model := r.mapper.ToModel(p)
	if err := db.GetTxFromContext(ctx, r.db).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create pool", "subscription_id", p.SubscriptionID(), "error", err)
		return apperrors.FromDB("failed to create pool", err)
	}
	return p.SetID(model.ID)
}

func (r *PoolRepositoryImpl) GetByID(ctx context.Context, id uint) (*pool.Pool, error) {
	var model models.PoolModel
	if err := db.GetTxFromContext(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get pool by ID", "id", id, "error", err)
		return nil, apperrors.FromDB("failed to get pool", err)
	}
	return r.mapper.ToEntity(&model)
}

func (r *PoolRepositoryImpl) ListBySubscription(ctx context.Context, subscriptionID uint) ([]*pool.Pool, error) {
	var rows []*models.PoolModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("subscription_id = ?", subscriptionID).
		Scopes(db.OrderByID(), db.ForUpdate()).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list pools by subscription", "subscription_id", subscriptionID, "error", err)
		return nil, apperrors.FromDB("failed to list pools", err)
	}
	return r.mapper.ToEntities(rows)
}

func (r *PoolRepositoryImpl) ListByOwner(ctx context.Context, ownerKey string) ([]*pool.Pool, error) {
	var rows []*models.PoolModel
	if err := db.GetTxFromContext(ctx, r.db).
		Where("owner_key = ?", ownerKey).
		Scopes(db.OrderByID()).
		Find(&rows).Error; err != nil {
		r.logger.Errorw("failed to list pools by owner", "owner_key", ownerKey, "error", err)
		return nil, apperrors.FromDB("failed to list pools", err)
	}
	return r.mapper.ToEntities(rows)
}

func (r *PoolRepositoryImpl) Update(ctx context.Context, p *pool.Pool) error {
	model := r.mapper.ToModel(p)
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PoolModel{}).
		Where("id = ?", model.ID).
		Updates(map[string]any{
			"quantity":             model.Quantity,
			"start_date":           model.StartDate,
			"end_date":             model.EndDate,
			"provided_product_ids": model.ProvidedProductIDs,
			"version":              gorm.Expr("version + ?", 1),
			"updated_at":           model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update pool", "id", model.ID, "error", result.Error)
		return apperrors.FromDB("failed to update pool", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("pool not found")
	}
	return nil
}

func (r *PoolRepositoryImpl) TryConsume(ctx context.Context, id uint) (bool, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PoolModel{}).
		Where("id = ? AND status = ? AND consumed < quantity", id, string(pool.StatusActive)).
		UpdateColumn("consumed", gorm.Expr("consumed + ?", 1))
	if result.Error != nil {
		r.logger.Errorw("failed to consume pool capacity", "id", id, "error", result.Error)
		return false, apperrors.FromDB("failed to consume pool capacity", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *PoolRepositoryImpl) Release(ctx context.Context, id uint, n int64) (bool, error) {
	if n <= 0 {
		return false, nil
	}
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PoolModel{}).
		Where("id = ? AND consumed >= ?", id, n).
		UpdateColumn("consumed", gorm.Expr("consumed - ?", n))
	if result.Error != nil {
		r.logger.Errorw("failed to release pool capacity", "id", id, "count", n, "error", result.Error)
		return false, apperrors.FromDB("failed to release pool capacity", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *PoolRepositoryImpl) SetStatusBySubscription(ctx context.Context, subscriptionID uint, status pool.Status) (int64, error) {
	result := db.GetTxFromContext(ctx, r.db).Model(&models.PoolModel{}).
		Where("subscription_id = ? AND status <> ?", subscriptionID, string(status)).
		UpdateColumn("status", string(status))
	if result.Error != nil {
		r.logger.Errorw("failed to set pool status", "subscription_id", subscriptionID, "status", status, "error", result.Error)
		return 0, apperrors.FromDB("failed to set pool status", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *PoolRepositoryImpl) Delete(ctx context.Context, id uint) error {
	result := db.GetTxFromContext(ctx, r.db).Delete(&models.PoolModel{}, id)
	if result.Error != nil {
		r.logger.Errorw("failed to delete pool", "id", id, "error", result.Error)
		return apperrors.FromDB("failed to delete pool", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("pool not found")
	}
	return nil
}
