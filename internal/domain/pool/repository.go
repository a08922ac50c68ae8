package pool

import "context"

// Repository persists pools. The consumed counter is only changed through
// TryConsume and Release, which are atomic per row. GetByID returns nil, nil
// when absent.
type Repository interface {
	Create(ctx context.Context, p *Pool) error
	GetByID(ctx context.Context, id uint) (*Pool, error)
	ListBySubscription(ctx context.Context, subscriptionID uint) ([]*Pool, error)
	ListByOwner(ctx context.Context, ownerKey string) ([]*Pool, error)
	// Update writes quantity, window and provided products. It never touches
	// consumed or status.
	Update(ctx context.Context, p *Pool) error
	// TryConsume increments consumed by one if the pool is active and below
	// quantity. It reports whether the increment happened.
	TryConsume(ctx context.Context, id uint) (bool, error)
	// Release decrements consumed by n, never below zero. It reports whether
	// the decrement happened.
	Release(ctx context.Context, id uint, n int64) (bool, error)
	// SetStatusBySubscription flips every pool of a subscription and returns
	// the number of rows changed.
	SetStatusBySubscription(ctx context.Context, subscriptionID uint, status Status) (int64, error)
	Delete(ctx context.Context, id uint) error
}
