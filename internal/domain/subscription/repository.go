package subscription

import "context"

// Repository persists subscriptions. GetByID returns nil, nil when absent.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	// ListByOwner returns the owner's subscriptions in creation order.
	ListByOwner(ctx context.Context, ownerKey string) ([]*Subscription, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, id uint) error
}
