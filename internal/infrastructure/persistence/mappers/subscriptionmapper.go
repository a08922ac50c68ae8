package mappers

import (
	"fmt"

	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/infrastructure/persistence/models"
	"github.com/cipherboy/candlepin/internal/shared/mapper"
)

// SubscriptionMapper handles the conversion between subscription entities and persistence models
type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type subscriptionMapper struct{}

// NewSubscriptionMapper creates a new subscription mapper
func NewSubscriptionMapper() SubscriptionMapper {
	return &subscriptionMapper{}
}

func (m *subscriptionMapper) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := subscription.ReconstructSubscription(
		model.ID,
		model.OwnerKey,
		model.ProductID,
		model.Quantity,
		model.StartDate,
		model.EndDate,
		subscription.Contract{
			ContractNumber: model.ContractNumber,
			AccountNumber:  model.AccountNumber,
			OrderNumber:    model.OrderNumber,
		},
		model.ProvidedProductIDs,
		model.ActivationKey,
		subscription.Status(model.Status),
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription entity: %w", err)
	}
	return entity, nil
}

func (m *subscriptionMapper) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}
	contract := entity.Contract()
	return &models.SubscriptionModel{
		ID:                 entity.ID(),
		OwnerKey:           entity.OwnerKey(),
		ProductID:          entity.ProductID(),
		Quantity:           entity.Quantity(),
		StartDate:          entity.StartDate(),
		EndDate:            entity.EndDate(),
		ContractNumber:     contract.ContractNumber,
		AccountNumber:      contract.AccountNumber,
		OrderNumber:        contract.OrderNumber,
		ProvidedProductIDs: entity.ProvidedProductIDs(),
		ActivationKey:      entity.ActivationKey(),
		Status:             entity.Status().String(),
		Version:            entity.Version(),
		CreatedAt:          entity.CreatedAt(),
		UpdatedAt:          entity.UpdatedAt(),
	}
}

func (m *subscriptionMapper) ToEntities(items []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	return mapper.MapSlicePtrWithID(items, m.ToEntity, func(model *models.SubscriptionModel) uint { return model.ID })
}
