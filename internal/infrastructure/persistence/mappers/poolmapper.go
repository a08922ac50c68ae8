package mappers

import (
	"fmt"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/mapper"
)

// PoolMapper handles the conversion between pool entities and persistence models
type PoolMapper interface {
	ToEntity(model *models.PoolModel) (*pool.Pool, error)
	ToModel(entity *pool.Pool) *models.PoolModel
	ToEntities(models []*models.PoolModel) ([]*pool.Pool, error)
}

type poolMapper struct{}

// NewPoolMapper creates a new pool mapper
func NewPoolMapper() PoolMapper {
	return &poolMapper{}
}

func (m *poolMapper) ToEntity(model *models.PoolModel) (*pool.Pool, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := pool.ReconstructPool(
		model.ID,
		model.SubscriptionID,
		model.OwnerKey,
		model.ProductID,
		model.Quantity,
		model.Consumed,
		model.StartDate,
		model.EndDate,
		model.ProvidedProductIDs,
		pool.Status(model.Status),
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct pool entity: %w", err)
	}
	return entity, nil
}

func (m *poolMapper) ToModel(entity *pool.Pool) *models.PoolModel {
	if entity == nil {
		return nil
	}
	return &models.PoolModel{
		ID:                 entity.ID(),
		SubscriptionID:     entity.SubscriptionID(),
		OwnerKey:           entity.OwnerKey(),
		ProductID:          entity.ProductID(),
		Quantity:           entity.Quantity(),
		Consumed:           entity.Consumed(),
		StartDate:          entity.StartDate(),
		EndDate:            entity.EndDate(),
		ProvidedProductIDs: entity.ProvidedProductIDs(),
		Status:             string(entity.Status()),
		Version:            entity.Version(),
		CreatedAt:          entity.CreatedAt(),
		UpdatedAt:          entity.UpdatedAt(),
	}
}

func (m *poolMapper) ToEntities(items []*models.PoolModel) ([]*pool.Pool, error) {
	return mapper.MapSlicePtrWithID(items, m.ToEntity, func(model *models.PoolModel) uint { return model.ID })
}
