package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/mappers"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// OwnerRepositoryImpl implements owner.Repository with gorm
type OwnerRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewOwnerRepository creates a new owner repository instance
func NewOwnerRepository(db *gorm.DB, logger logger.Interface) owner.Repository {
	return &OwnerRepositoryImpl{db: db, logger: logger}
}

func (r *OwnerRepositoryImpl) Create(ctx context.Context, o *owner.Owner) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.OwnerToModel(o)).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("owner already exists", o.Key())
		}
		r.logger.Errorw("failed to create owner", "owner_key", o.Key(), "error", err)
		return apperrors.FromDB("failed to create owner", err)
	}
	return nil
}

func (r *OwnerRepositoryImpl) GetByKey(ctx context.Context, key string) (*owner.Owner, error) {
	var model models.OwnerModel
	if err := db.GetTxFromContext(ctx, r.db).Where("owner_key = ?", key).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get owner", "owner_key", key, "error", err)
		return nil, apperrors.FromDB("failed to get owner", err)
	}
	return mappers.OwnerToEntity(&model), nil
}

func (r *OwnerRepositoryImpl) ListKeys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := db.GetTxFromContext(ctx, r.db).Model(&models.OwnerModel{}).Order("owner_key ASC").Pluck("owner_key", &keys).Error; err != nil {
		r.logger.Errorw("failed to list owner keys", "error", err)
		return nil, apperrors.FromDB("failed to list owners", err)
	}
	return keys, nil
}
