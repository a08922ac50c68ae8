// Package product models catalog entries referenced by subscriptions.
package product

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidMultiplier = errors.New("product multiplier must be positive")
)

// Well-known attribute names.
const (
	AttrMultiplier = "multiplier"
	AttrVirtOnly   = "virt_only"
	AttrStacking   = "stacking_id"
)

// Product is a catalog entry. A nil multiplier means 1.
type Product struct {
	id         string
	name       string
	multiplier *int64
	attributes map[string]string
	createdAt  time.Time
	updatedAt  time.Time
}

// NewProduct creates a product. multiplier may be nil.
func NewProduct(id, name string, multiplier *int64, attributes map[string]string) (*Product, error) {
	if id == "" {
		return nil, fmt.Errorf("product id is required")
	}
	if name == "" {
		name = id
	}
	now := time.Now().UTC()
	return &Product{
		id:         id,
		name:       name,
		multiplier: multiplier,
		attributes: cloneAttributes(attributes),
		createdAt:  now,
		updatedAt:  now,
	}, nil
}

// ReconstructProduct rebuilds a product from persistence.
func ReconstructProduct(id, name string, multiplier *int64, attributes map[string]string, createdAt, updatedAt time.Time) *Product {
	return &Product{
		id:         id,
		name:       name,
		multiplier: multiplier,
		attributes: cloneAttributes(attributes),
		createdAt:  createdAt,
		updatedAt:  updatedAt,
	}
}

func (p *Product) ID() string                    { return p.id }
func (p *Product) Name() string                  { return p.name }
func (p *Product) RawMultiplier() *int64         { return p.multiplier }
func (p *Product) Attributes() map[string]string { return cloneAttributes(p.attributes) }
func (p *Product) CreatedAt() time.Time          { return p.createdAt }
func (p *Product) UpdatedAt() time.Time          { return p.updatedAt }

// Attribute returns a single attribute value.
func (p *Product) Attribute(name string) (string, bool) {
	v, ok := p.attributes[name]
	return v, ok
}

// Multiplier returns the factor that scales subscription quantity into pool
// quantity. Zero or negative values are rejected rather than producing an
// empty pool.
func (p *Product) Multiplier() (int64, error) {
	if p.multiplier == nil {
		return 1, nil
	}
	if *p.multiplier <= 0 {
		return 0, fmt.Errorf("%w: product %s has multiplier %d", ErrInvalidMultiplier, p.id, *p.multiplier)
	}
	return *p.multiplier, nil
}

// SetMultiplier changes the multiplier; pools pick it up on the next reconciliation.
func (p *Product) SetMultiplier(m *int64) {
	p.multiplier = m
	p.updatedAt = time.Now().UTC()
}

func cloneAttributes(in map[string]string) map[string]string {
	if in == nil {
		return map[string]string{}
	}
	return maps.Clone(in)
}

// Catalog resolves product ids. GetByID returns nil, nil for an unknown id.
type Catalog interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Repository adds the seeding operations used by tooling and tests.
type Repository interface {
	Catalog
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
}
