// Package pool models consumable inventory derived from a subscription.
package pool

import (
	"fmt"
	"slices"
	"time"
)

// Status controls whether a pool accepts new issuance.
type Status string

const (
	StatusActive Status = "active"
	// StatusDraining marks a pool slated for deletion; issuance is refused.
	StatusDraining Status = "draining"
)

func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusDraining
}

// CapacityState is a function of consumed versus quantity.
type CapacityState string

const (
	UnderCapacity CapacityState = "UNDER_CAPACITY"
	AtCapacity    CapacityState = "AT_CAPACITY"
	OverConsumed  CapacityState = "OVER_CONSUMED"
)

// CapacityOf classifies consumption against quantity.
func CapacityOf(quantity, consumed int64) CapacityState {
	switch {
	case consumed > quantity:
		return OverConsumed
	case consumed == quantity:
		return AtCapacity
	default:
		return UnderCapacity
	}
}

// Pool is never created by a client; the reconciler projects it from a subscription.
type Pool struct {
	id                 uint
	subscriptionID     uint
	ownerKey           string
	productID          string
	quantity           int64
	consumed           int64
	startDate          time.Time
	endDate            time.Time
	providedProductIDs []string
	status             Status
	version            int
	createdAt          time.Time
	updatedAt          time.Time
}

// NewPool creates an active, unconsumed pool.
func NewPool(
	subscriptionID uint,
	ownerKey, productID string,
	quantity int64,
	startDate, endDate time.Time,
	providedProductIDs []string,
	now time.Time,
) (*Pool, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if ownerKey == "" || productID == "" {
		return nil, fmt.Errorf("owner key and product id are required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	return &Pool{
		subscriptionID:     subscriptionID,
		ownerKey:           ownerKey,
		productID:          productID,
		quantity:           quantity,
		startDate:          startDate.UTC(),
		endDate:            endDate.UTC(),
		providedProductIDs: slices.Clone(providedProductIDs),
		status:             StatusActive,
		version:            1,
		createdAt:          now.UTC(),
		updatedAt:          now.UTC(),
	}, nil
}

// ReconstructPool rebuilds a pool from persistence.
func ReconstructPool(
	id, subscriptionID uint,
	ownerKey, productID string,
	quantity, consumed int64,
	startDate, endDate time.Time,
	providedProductIDs []string,
	status Status,
	version int,
	createdAt, updatedAt time.Time,
) (*Pool, error) {
	if id == 0 {
		return nil, fmt.Errorf("pool ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid pool status: %s", status)
	}
	return &Pool{
		id:                 id,
		subscriptionID:     subscriptionID,
		ownerKey:           ownerKey,
		productID:          productID,
		quantity:           quantity,
		consumed:           consumed,
		startDate:          startDate.UTC(),
		endDate:            endDate.UTC(),
		providedProductIDs: slices.Clone(providedProductIDs),
		status:             status,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}, nil
}

func (p *Pool) ID() uint                     { return p.id }
func (p *Pool) SubscriptionID() uint         { return p.subscriptionID }
func (p *Pool) OwnerKey() string             { return p.ownerKey }
func (p *Pool) ProductID() string            { return p.productID }
func (p *Pool) Quantity() int64              { return p.quantity }
func (p *Pool) Consumed() int64              { return p.consumed }
func (p *Pool) StartDate() time.Time         { return p.startDate }
func (p *Pool) EndDate() time.Time           { return p.endDate }
func (p *Pool) ProvidedProductIDs() []string { return slices.Clone(p.providedProductIDs) }
func (p *Pool) Status() Status               { return p.status }
func (p *Pool) Version() int                 { return p.version }
func (p *Pool) CreatedAt() time.Time         { return p.createdAt }
func (p *Pool) UpdatedAt() time.Time         { return p.updatedAt }

// SetID sets the pool ID (only for persistence layer use)
func (p *Pool) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("pool ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("pool ID cannot be zero")
	}
	p.id = id
	return nil
}

// CapacityState reports the pool's current capacity classification.
func (p *Pool) CapacityState() CapacityState {
	return CapacityOf(p.quantity, p.consumed)
}

// Available returns the remaining capacity, never negative.
func (p *Pool) Available() int64 {
	return max(0, p.quantity-p.consumed)
}

// CheckIssuable returns the reason issuance must be refused, or nil. The
// capacity check here is advisory; the store enforces it atomically.
func (p *Pool) CheckIssuable(now time.Time) error {
	if p.status != StatusActive {
		return ErrPoolUnavailable
	}
	if now.After(p.endDate) {
		return ErrPoolExpired
	}
	if p.consumed >= p.quantity {
		return ErrCapacityExceeded
	}
	return nil
}

// CertificateWindow clips a certificate's validity to the pool's window.
func (p *Pool) CertificateWindow(now time.Time) (notBefore, notAfter time.Time) {
	notBefore = now.UTC()
	if notBefore.Before(p.startDate) {
		notBefore = p.startDate
	}
	return notBefore, p.endDate
}

// Resize sets a new quantity and reports the capacity state before and after.
// Consumption above the new quantity is kept and reported as OverConsumed.
func (p *Pool) Resize(quantity int64, now time.Time) (before, after CapacityState, err error) {
	if quantity <= 0 {
		return "", "", fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	before = p.CapacityState()
	if quantity != p.quantity {
		p.quantity = quantity
		p.touch(now)
	}
	return before, p.CapacityState(), nil
}

// Follow copies the source subscription's window and provided products.
// It reports whether anything changed.
func (p *Pool) Follow(startDate, endDate time.Time, providedProductIDs []string, now time.Time) bool {
	startDate, endDate = startDate.UTC(), endDate.UTC()
	if p.startDate.Equal(startDate) && p.endDate.Equal(endDate) && slices.Equal(p.providedProductIDs, providedProductIDs) {
		return false
	}
	p.startDate, p.endDate = startDate, endDate
	p.providedProductIDs = slices.Clone(providedProductIDs)
	p.touch(now)
	return true
}

func (p *Pool) touch(now time.Time) {
	p.updatedAt = now.UTC()
	p.version++
}
