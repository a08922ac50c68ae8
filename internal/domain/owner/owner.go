// Package owner models the tenant namespace subscriptions belong to.
// Owners are maintained outside this module; it only reads them.
package owner

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

var ErrOwnerNotFound = errors.New("owner not found")

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{0,254}$`)

// Owner is identified by its key, e.g. "admin" or "acme_corp".
type Owner struct {
	key         string
	displayName string
	createdAt   time.Time
}

// NewOwner validates the key and creates an owner.
func NewOwner(key, displayName string) (*Owner, error) {
	if !keyPattern.MatchString(key) {
		return nil, fmt.Errorf("invalid owner key %q", key)
	}
	if displayName == "" {
		displayName = key
	}
	return &Owner{key: key, displayName: displayName, createdAt: time.Now().UTC()}, nil
}

// ReconstructOwner rebuilds an owner from persistence.
func ReconstructOwner(key, displayName string, createdAt time.Time) *Owner {
	return &Owner{key: key, displayName: displayName, createdAt: createdAt}
}

func (o *Owner) Key() string          { return o.key }
func (o *Owner) DisplayName() string  { return o.displayName }
func (o *Owner) CreatedAt() time.Time { return o.createdAt }

// Directory resolves owner keys. GetByKey returns nil, nil for an unknown key.
type Directory interface {
	GetByKey(ctx context.Context, key string) (*Owner, error)
	ListKeys(ctx context.Context) ([]string, error)
}

// Repository adds the seeding operations used by tooling and tests.
type Repository interface {
	Directory
	Create(ctx context.Context, o *Owner) error
}
