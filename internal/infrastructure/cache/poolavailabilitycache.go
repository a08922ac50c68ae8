package cache

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// PoolAvailability is the read-model snapshot of a pool's capacity.
type PoolAvailability struct {
	Quantity int64
	Consumed int64
	State    string
	Status   string
	NotFound bool // Null marker: pool confirmed absent in DB
}

// Available returns the remaining capacity, never negative.
func (a *PoolAvailability) Available() int64 {
	if a.Consumed >= a.Quantity {
		return 0
	}
	return a.Quantity - a.Consumed
}

// PoolAvailabilityCache caches pool capacity for read-heavy callers. The
// database stays authoritative; entries are refreshed after every change.
type PoolAvailabilityCache interface {
	Get(ctx context.Context, poolID uint) (*PoolAvailability, error)
	Set(ctx context.Context, poolID uint, a *PoolAvailability) error
	Invalidate(ctx context.Context, poolID uint) error
	// SetNullMarker caches a short-lived marker for a pool that does not exist.
	SetNullMarker(ctx context.Context, poolID uint) error
}

const (
	poolKeyPrefix     = "pool:availability:"
	basePoolTTL       = 10 * time.Minute
	poolTTLJitter     = 2 * time.Minute
	poolNullMarkerTTL = 30 * time.Second
	fieldQuantity     = "quantity"
	fieldConsumed     = "consumed"
	fieldState        = "state"
	fieldStatus       = "status"
	fieldNullMarker   = "_null"
)

// RedisPoolAvailabilityCache stores one hash per pool.
type RedisPoolAvailabilityCache struct {
	client *redis.Client
	logger logger.Interface
}

// NewRedisPoolAvailabilityCache creates a Redis-backed availability cache.
func NewRedisPoolAvailabilityCache(client *redis.Client, logger logger.Interface) *RedisPoolAvailabilityCache {
	return &RedisPoolAvailabilityCache{
		client: client,
		logger: logger,
	}
}

func (c *RedisPoolAvailabilityCache) key(poolID uint) string {
	return fmt.Sprintf("%s%d", poolKeyPrefix, poolID)
}

// Get returns nil, nil on a cache miss.
func (c *RedisPoolAvailabilityCache) Get(ctx context.Context, poolID uint) (*PoolAvailability, error) {
	result, err := c.client.HGetAll(ctx, c.key(poolID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pool availability from cache: %w", err)
	}

	if len(result) == 0 {
		return nil, nil
	}

	if result[fieldNullMarker] == "1" {
		return &PoolAvailability{NotFound: true}, nil
	}

	a := &PoolAvailability{
		State:  result[fieldState],
		Status: result[fieldStatus],
	}
	a.Quantity, _ = strconv.ParseInt(result[fieldQuantity], 10, 64)
	a.Consumed, _ = strconv.ParseInt(result[fieldConsumed], 10, 64)

	return a, nil
}

// Set replaces the snapshot for poolID.
func (c *RedisPoolAvailabilityCache) Set(ctx context.Context, poolID uint, a *PoolAvailability) error {
	key := c.key(poolID)

	pipe := c.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]interface{}{
		fieldQuantity: a.Quantity,
		fieldConsumed: a.Consumed,
		fieldState:    a.State,
		fieldStatus:   a.Status,
	})
	pipe.Expire(ctx, key, poolTTLWithJitter())

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set pool availability in cache: %w", err)
	}

	c.logger.Debugw("pool availability cached",
		"pool_id", poolID,
		"quantity", a.Quantity,
		"consumed", a.Consumed,
	)

	return nil
}

// Invalidate drops the snapshot for poolID.
func (c *RedisPoolAvailabilityCache) Invalidate(ctx context.Context, poolID uint) error {
	if err := c.client.Del(ctx, c.key(poolID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate pool availability cache: %w", err)
	}

	c.logger.Debugw("pool availability cache invalidated", "pool_id", poolID)
	return nil
}

// SetNullMarker stores a short-lived not-found marker.
func (c *RedisPoolAvailabilityCache) SetNullMarker(ctx context.Context, poolID uint) error {
	key := c.key(poolID)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key, fieldNullMarker, "1")
	pipe.Expire(ctx, key, poolNullMarkerTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set pool null marker in cache: %w", err)
	}
	return nil
}

// poolTTLWithJitter spreads expiry over [basePoolTTL, basePoolTTL+poolTTLJitter).
func poolTTLWithJitter() time.Duration {
	return basePoolTTL + time.Duration(rand.Int64N(int64(poolTTLJitter)))
}

// NopPoolAvailabilityCache is used when Redis is disabled; every Get misses.
type NopPoolAvailabilityCache struct{}

func (NopPoolAvailabilityCache) Get(context.Context, uint) (*PoolAvailability, error) {
	return nil, nil
}

func (NopPoolAvailabilityCache) Set(context.Context, uint, *PoolAvailability) error { return nil }
func (NopPoolAvailabilityCache) Invalidate(context.Context, uint) error             { return nil }
func (NopPoolAvailabilityCache) SetNullMarker(context.Context, uint) error          { return nil }

var (
	_ PoolAvailabilityCache = (*RedisPoolAvailabilityCache)(nil)
	_ PoolAvailabilityCache = NopPoolAvailabilityCache{}
)
