package mappers

import (
	"fmt"

	"gorm.io/datatypes"

	"github.com/cipherboy/candlepin/internal/domain/owner"
	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
)

// OwnerToEntity converts an owner row.
func OwnerToEntity(model *models.OwnerModel) *owner.Owner {
	if model == nil {
		return nil
	}
	return owner.ReconstructOwner(model.Key, model.DisplayName, model.CreatedAt)
}

// OwnerToModel converts an owner entity.
func OwnerToModel(entity *owner.Owner) *models.OwnerModel {
	return &models.OwnerModel{
		Key:         entity.Key(),
		DisplayName: entity.DisplayName(),
		CreatedAt:   entity.CreatedAt(),
	}
}

// ProductToEntity converts a product row. Non-string attribute values are
// rendered with fmt so hand-edited rows still load.
func ProductToEntity(model *models.ProductModel) *product.Product {
	if model == nil {
		return nil
	}
	attrs := make(map[string]string, len(model.Attributes))
	for k, v := range model.Attributes {
		if s, ok := v.(string); ok {
			attrs[k] = s
			continue
		}
		attrs[k] = fmt.Sprint(v)
	}
	return product.ReconstructProduct(model.ID, model.Name, model.Multiplier, attrs, model.CreatedAt, model.UpdatedAt)
}

// ProductToModel converts a product entity.
func ProductToModel(entity *product.Product) *models.ProductModel {
	attrs := datatypes.JSONMap{}
	for k, v := range entity.Attributes() {
		attrs[k] = v
	}
	return &models.ProductModel{
		ID:         entity.ID(),
		Name:       entity.Name(),
		Multiplier: entity.RawMultiplier(),
		Attributes: attrs,
		CreatedAt:  entity.CreatedAt(),
		UpdatedAt:  entity.UpdatedAt(),
	}
}
