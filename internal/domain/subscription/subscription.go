// Package subscription holds the authoritative record of purchased grants.
package subscription

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Contract groups the commercial references carried by a subscription.
type Contract struct {
	ContractNumber string
	AccountNumber  string
	OrderNumber    string
}

// Subscription is the aggregate root for a purchased grant.
type Subscription struct {
	id                 uint
	ownerKey           string
	productID          string
	quantity           int64
	startDate          time.Time
	endDate            time.Time
	contract           Contract
	providedProductIDs []string
	activationKey      *string
	status             Status
	version            int
	createdAt          time.Time
	updatedAt          time.Time
}

// NewSubscription validates and creates a subscription. The status is derived
// from now and the validity window.
func NewSubscription(
	ownerKey, productID string,
	quantity int64,
	startDate, endDate time.Time,
	contract Contract,
	providedProductIDs []string,
	activationKey *string,
	now time.Time,
) (*Subscription, error) {
	if ownerKey == "" {
		return nil, fmt.Errorf("owner key is required")
	}
	if productID == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	startDate, endDate = startDate.UTC(), endDate.UTC()
	if endDate.Before(startDate) {
		return nil, ErrInvalidValidityWindow
	}

	s := &Subscription{
		ownerKey:           ownerKey,
		productID:          productID,
		quantity:           quantity,
		startDate:          startDate,
		endDate:            endDate,
		contract:           contract,
		providedProductIDs: NormalizeProductIDs(providedProductIDs),
		activationKey:      activationKey,
		status:             StatusCreated,
		version:            1,
		createdAt:          now.UTC(),
		updatedAt:          now.UTC(),
	}
	s.status = s.statusAt(now)
	return s, nil
}

// ReconstructSubscription rebuilds a subscription from persistence.
func ReconstructSubscription(
	id uint,
	ownerKey, productID string,
	quantity int64,
	startDate, endDate time.Time,
	contract Contract,
	providedProductIDs []string,
	activationKey *string,
	status Status,
	version int,
	createdAt, updatedAt time.Time,
) (*Subscription, error) {
	if id == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", status)
	}
	return &Subscription{
		id:                 id,
		ownerKey:           ownerKey,
		productID:          productID,
		quantity:           quantity,
		startDate:          startDate.UTC(),
		endDate:            endDate.UTC(),
		contract:           contract,
		providedProductIDs: NormalizeProductIDs(providedProductIDs),
		activationKey:      activationKey,
		status:             status,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}, nil
}

func (s *Subscription) ID() uint                     { return s.id }
func (s *Subscription) OwnerKey() string             { return s.ownerKey }
func (s *Subscription) ProductID() string            { return s.productID }
func (s *Subscription) Quantity() int64              { return s.quantity }
func (s *Subscription) StartDate() time.Time         { return s.startDate }
func (s *Subscription) EndDate() time.Time           { return s.endDate }
func (s *Subscription) Contract() Contract           { return s.contract }
func (s *Subscription) ProvidedProductIDs() []string { return slices.Clone(s.providedProductIDs) }
func (s *Subscription) ActivationKey() *string       { return s.activationKey }
func (s *Subscription) Status() Status               { return s.status }
func (s *Subscription) Version() int                 { return s.version }
func (s *Subscription) CreatedAt() time.Time         { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time         { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

func (s *Subscription) statusAt(now time.Time) Status {
	switch {
	case now.After(s.endDate):
		return StatusExpired
	case now.Before(s.startDate):
		return StatusCreated
	default:
		return StatusActive
	}
}

// IsActiveAt reports whether now falls inside the validity window.
func (s *Subscription) IsActiveAt(now time.Time) bool {
	return !now.Before(s.startDate) && !now.After(s.endDate)
}

// RefreshStatus moves the status forward to match now. It returns the previous
// status and whether anything changed. Deleted subscriptions never change.
func (s *Subscription) RefreshStatus(now time.Time) (Status, bool) {
	prev := s.status
	next := s.statusAt(now)
	if !prev.CanTransitionTo(next) {
		return prev, false
	}
	s.status = next
	s.touch(now)
	return prev, true
}

// MarkDeleted moves the subscription to its terminal state.
func (s *Subscription) MarkDeleted(now time.Time) error {
	if s.status == StatusDeleted {
		return ErrSubscriptionDeleted
	}
	s.status = StatusDeleted
	s.touch(now)
	return nil
}

// Amendment lists the mutable fields of an explicit update; nil fields are left as is.
type Amendment struct {
	Quantity           *int64
	StartDate          *time.Time
	EndDate            *time.Time
	ProvidedProductIDs []string
	Contract           *Contract
}

// Amend applies an explicit update. The caller re-runs reconciliation afterwards.
func (s *Subscription) Amend(a Amendment, now time.Time) error {
	if s.status == StatusDeleted {
		return ErrSubscriptionDeleted
	}
	quantity := s.quantity
	if a.Quantity != nil {
		if *a.Quantity <= 0 {
			return fmt.Errorf("%w: got %d", ErrInvalidQuantity, *a.Quantity)
		}
		quantity = *a.Quantity
	}
	start, end := s.startDate, s.endDate
	if a.StartDate != nil {
		start = a.StartDate.UTC()
	}
	if a.EndDate != nil {
		end = a.EndDate.UTC()
	}
	if end.Before(start) {
		return ErrInvalidValidityWindow
	}

	s.quantity = quantity
	s.startDate, s.endDate = start, end
	if a.ProvidedProductIDs != nil {
		s.providedProductIDs = NormalizeProductIDs(a.ProvidedProductIDs)
	}
	if a.Contract != nil {
		s.contract = *a.Contract
	}
	// a moved window may push the status forward, never back
	if next := s.statusAt(now); s.status.CanTransitionTo(next) {
		s.status = next
	}
	s.touch(now)
	return nil
}

func (s *Subscription) touch(now time.Time) {
	s.updatedAt = now.UTC()
	s.version++
}

// NormalizeProductIDs gives provided products set semantics: trimmed,
// deduplicated, sorted, without empty entries.
func NormalizeProductIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
