package dto

import (
	"time"

	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/mapper"
)

// SubscriptionDTO is the listing view of a subscription. It carries the id
// for correlation with pools; the id is never an addressable handle.
type SubscriptionDTO struct {
	ID                 uint      `json:"id" yaml:"id"`
	OwnerKey           string    `json:"owner_key" yaml:"owner_key"`
	ProductID          string    `json:"product_id" yaml:"product_id"`
	Quantity           int64     `json:"quantity" yaml:"quantity"`
	StartDate          time.Time `json:"start_date" yaml:"start_date"`
	EndDate            time.Time `json:"end_date" yaml:"end_date"`
	ContractNumber     string    `json:"contract_number,omitempty" yaml:"contract_number,omitempty"`
	AccountNumber      string    `json:"account_number,omitempty" yaml:"account_number,omitempty"`
	OrderNumber        string    `json:"order_number,omitempty" yaml:"order_number,omitempty"`
	ProvidedProductIDs []string  `json:"provided_product_ids,omitempty" yaml:"provided_product_ids,omitempty"`
	Status             string    `json:"status" yaml:"status"`
	CreatedAt          time.Time `json:"created_at" yaml:"created_at"`
}

func ToSubscriptionDTO(s *subscription.Subscription) *SubscriptionDTO {
	if s == nil {
		return nil
	}
	c := s.Contract()
	return &SubscriptionDTO{
		ID:                 s.ID(),
		OwnerKey:           s.OwnerKey(),
		ProductID:          s.ProductID(),
		Quantity:           s.Quantity(),
		StartDate:          s.StartDate(),
		EndDate:            s.EndDate(),
		ContractNumber:     c.ContractNumber,
		AccountNumber:      c.AccountNumber,
		OrderNumber:        c.OrderNumber,
		ProvidedProductIDs: s.ProvidedProductIDs(),
		Status:             s.Status().String(),
		CreatedAt:          s.CreatedAt(),
	}
}

func ToSubscriptionDTOs(subs []*subscription.Subscription) []*SubscriptionDTO {
	return mapper.MapSlice(subs, ToSubscriptionDTO)
}
