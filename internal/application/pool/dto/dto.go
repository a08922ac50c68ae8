package dto

import (
	"time"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/infrastructure/cache"
	"github.com/cipherboy/candlepin/internal/shared/mapper"
)

// PoolDTO is the outward view of a pool.
type PoolDTO struct {
	ID                 uint      `json:"id" yaml:"id"`
	SubscriptionID     uint      `json:"subscription_id" yaml:"subscription_id"`
	OwnerKey           string    `json:"owner_key" yaml:"owner_key"`
	ProductID          string    `json:"product_id" yaml:"product_id"`
	Quantity           int64     `json:"quantity" yaml:"quantity"`
	Consumed           int64     `json:"consumed" yaml:"consumed"`
	Available          int64     `json:"available" yaml:"available"`
	CapacityState      string    `json:"capacity_state" yaml:"capacity_state"`
	Status             string    `json:"status" yaml:"status"`
	StartDate          time.Time `json:"start_date" yaml:"start_date"`
	EndDate            time.Time `json:"end_date" yaml:"end_date"`
	ProvidedProductIDs []string  `json:"provided_product_ids,omitempty" yaml:"provided_product_ids,omitempty"`
}

func ToPoolDTO(p *pool.Pool) *PoolDTO {
	if p == nil {
		return nil
	}
	return &PoolDTO{
		ID:                 p.ID(),
		SubscriptionID:     p.SubscriptionID(),
		OwnerKey:           p.OwnerKey(),
		ProductID:          p.ProductID(),
		Quantity:           p.Quantity(),
		Consumed:           p.Consumed(),
		Available:          p.Available(),
		CapacityState:      string(p.CapacityState()),
		Status:             string(p.Status()),
		StartDate:          p.StartDate(),
		EndDate:            p.EndDate(),
		ProvidedProductIDs: p.ProvidedProductIDs(),
	}
}

func ToPoolDTOs(pools []*pool.Pool) []*PoolDTO {
	return mapper.MapSlice(pools, ToPoolDTO)
}

// AvailabilityDTO is the cached capacity view of a pool.
type AvailabilityDTO struct {
	PoolID        uint   `json:"pool_id" yaml:"pool_id"`
	Quantity      int64  `json:"quantity" yaml:"quantity"`
	Consumed      int64  `json:"consumed" yaml:"consumed"`
	Available     int64  `json:"available" yaml:"available"`
	CapacityState string `json:"capacity_state" yaml:"capacity_state"`
	Status        string `json:"status" yaml:"status"`
}

func ToAvailabilityDTO(poolID uint, a *cache.PoolAvailability) *AvailabilityDTO {
	if a == nil {
		return nil
	}
	return &AvailabilityDTO{
		PoolID:        poolID,
		Quantity:      a.Quantity,
		Consumed:      a.Consumed,
		Available:     a.Available(),
		CapacityState: a.State,
		Status:        a.Status,
	}
}
