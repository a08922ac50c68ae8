package entitlement

import (
	"context"
	"time"
)

// Repository persists certificates. Lookups return nil, nil when absent.
type Repository interface {
	// Create inserts a certificate. A repeated (pool, consumer, token) triple
	// fails with ErrDuplicateRequest.
	Create(ctx context.Context, c *Certificate) error

	GetBySerial(ctx context.Context, serial int64) (*Certificate, error)

	GetByRequest(ctx context.Context, poolID uint, consumerID, requestToken string) (*Certificate, error)

	// ListByPoolAndConsumer returns a consumer's certificates in a pool, oldest first.
	ListByPoolAndConsumer(ctx context.Context, poolID uint, consumerID string) ([]*Certificate, error)

	// ListActiveByPool returns unrevoked certificates of every kind.
	ListActiveByPool(ctx context.Context, poolID uint) ([]*Certificate, error)

	// MarkRevoked flips revoked on an unrevoked row and reports whether it did.
	MarkRevoked(ctx context.Context, serial int64, at time.Time) (bool, error)

	// Reissue stores c's new serial, window and material on the unrevoked row
	// still holding previousSerial, and reports whether that row existed.
	Reissue(ctx context.Context, previousSerial int64, c *Certificate) (bool, error)

	// DeleteByPool removes certificate rows, including private keys.
	DeleteByPool(ctx context.Context, poolID uint) (int64, error)
}

// RevocationRepository keeps revoked serials for the CRL and OCSP.
type RevocationRepository interface {
	// Record stores a revocation; recording the same serial twice is a no-op.
	Record(ctx context.Context, r Revocation) error
	Get(ctx context.Context, serial int64) (*Revocation, error)
	List(ctx context.Context) ([]Revocation, error)
}
