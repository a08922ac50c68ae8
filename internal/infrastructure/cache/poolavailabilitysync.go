package cache

import (
	"context"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// SnapshotOf builds the cached view of p.
func SnapshotOf(p *pool.Pool) *PoolAvailability {
	return &PoolAvailability{
		Quantity: p.Quantity(),
		Consumed: p.Consumed(),
		State:    string(p.CapacityState()),
		Status:   string(p.Status()),
	}
}

// RefreshPool reloads a pool after a committed change and replaces its
// snapshot, or drops it when the pool is gone. Cache failures are logged and
// never returned; the database stays authoritative.
func RefreshPool(ctx context.Context, c PoolAvailabilityCache, repo pool.Repository, poolID uint, log logger.Interface) {
	p, err := repo.GetByID(ctx, poolID)
	if err != nil {
		log.Warnw("failed to reload pool for availability cache", "pool_id", poolID, "error", err)
		if err := c.Invalidate(ctx, poolID); err != nil {
			log.Warnw("failed to invalidate pool availability", "pool_id", poolID, "error", err)
		}
		return
	}
	if p == nil {
		if err := c.Invalidate(ctx, poolID); err != nil {
			log.Warnw("failed to invalidate pool availability", "pool_id", poolID, "error", err)
		}
		return
	}
	if err := c.Set(ctx, poolID, SnapshotOf(p)); err != nil {
		log.Warnw("failed to cache pool availability", "pool_id", poolID, "error", err)
	}
}

// LookupAvailability serves a pool's availability from the cache, falling
// back to the repository and populating the cache on a miss. It returns
// nil, nil for an unknown pool.
func LookupAvailability(ctx context.Context, c PoolAvailabilityCache, repo pool.Repository, poolID uint, log logger.Interface) (*PoolAvailability, error) {
	cached, err := c.Get(ctx, poolID)
	if err != nil {
		log.Warnw("pool availability cache read failed", "pool_id", poolID, "error", err)
	}
	if cached != nil {
		if cached.NotFound {
			return nil, nil
		}
		return cached, nil
	}

	p, err := repo.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		if err := c.SetNullMarker(ctx, poolID); err != nil {
			log.Warnw("failed to cache pool null marker", "pool_id", poolID, "error", err)
		}
		return nil, nil
	}
	snapshot := SnapshotOf(p)
	if err := c.Set(ctx, poolID, snapshot); err != nil {
		log.Warnw("failed to cache pool availability", "pool_id", poolID, "error", err)
	}
	return snapshot, nil
}
