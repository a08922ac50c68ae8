package pool

import (
	"fmt"
	"time"

	"github.com/cipherboy/candlepin/internal/domain/product"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
)

// PoolSpec is the desired shape of one derived pool.
type PoolSpec struct {
	ProductID          string
	Quantity           int64
	StartDate          time.Time
	EndDate            time.Time
	ProvidedProductIDs []string
}

// PoolDeriver projects a subscription onto the pools that should exist for
// it. Specs are matched to existing pools by product id, so a deriver must not
// return two specs for the same product.
type PoolDeriver interface {
	Derive(sub *subscription.Subscription, prod *product.Product) ([]PoolSpec, error)
}

// OneToOneDeriver derives a single pool sized quantity × multiplier.
type OneToOneDeriver struct{}

// Derive implements PoolDeriver.
func (OneToOneDeriver) Derive(sub *subscription.Subscription, prod *product.Product) ([]PoolSpec, error) {
	multiplier, err := prod.Multiplier()
	if err != nil {
		return nil, err
	}
	quantity := sub.Quantity() * multiplier
	if quantity/multiplier != sub.Quantity() {
		return nil, fmt.Errorf("pool quantity overflows: %d x %d", sub.Quantity(), multiplier)
	}
	return []PoolSpec{{
		ProductID:          sub.ProductID(),
		Quantity:           quantity,
		StartDate:          sub.StartDate(),
		EndDate:            sub.EndDate(),
		ProvidedProductIDs: sub.ProvidedProductIDs(),
	}}, nil
}
