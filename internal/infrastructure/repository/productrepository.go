package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/mappers"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/db"
	apperrors "github.com/cipherboy/candlepin/internal/shared/errors"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// ProductRepositoryImpl implements product.Repository with gorm
type ProductRepositoryImpl struct {
	db     *gorm.DB
	logger logger.Interface
}

// NewProductRepository creates a new product repository instance
func NewProductRepository(db *gorm.DB, logger logger.Interface) product.Repository {
	return &ProductRepositoryImpl{db: db, logger: logger}
}

func (r *ProductRepositoryImpl) Create(ctx context.Context, p *product.Product) error {
	if err := db.GetTxFromContext(ctx, r.db).Create(mappers.ProductToModel(p)).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("product already exists", p.ID())
		}
		r.logger.Errorw("failed to create product", "product_id", p.ID(), "error", err)
		return apperrors.FromDB("failed to create product", err)
	}
	return nil
}

func (r *ProductRepositoryImpl) Update(ctx context.Context, p *product.Product) error {
	model := mappers.ProductToModel(p)
	result := db.GetTxFromContext(ctx, r.db).Model(&models.ProductModel{}).
		Where("id = ?", p.ID()).
		Updates(map[string]any{
			"name":       model.Name,
			"multiplier": model.Multiplier,
			"attributes": model.Attributes,
			"updated_at": model.UpdatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update product", "product_id", p.ID(), "error", result.Error)
		return apperrors.FromDB("failed to update product", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.NewNotFoundError("product not found", p.ID())
	}
	return nil
}

func (r *ProductRepositoryImpl) GetByID(ctx context.Context, id string) (*product.Product, error) {
	var model models.ProductModel
	if err := db.GetTxFromContext(ctx, r.db).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Errorw("failed to get product", "product_id", id, "error", err)
		return nil, apperrors.FromDB("failed to get product", err)
	}
	return mappers.ProductToEntity(&model), nil
}
