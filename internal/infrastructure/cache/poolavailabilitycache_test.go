package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherboy/candlepin/internal/shared/logger"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisPoolAvailabilityCache_SetGet(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	ctx := context.Background()

	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got, "empty cache should miss")

	require.NoError(t, c.Set(ctx, 1, &PoolAvailability{Quantity: 10, Consumed: 4, State: "UNDER_CAPACITY", Status: "active"}))

	got, err = c.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(10), got.Quantity)
	assert.Equal(t, int64(4), got.Consumed)
	assert.Equal(t, int64(6), got.Available())
	assert.Equal(t, "UNDER_CAPACITY", got.State)
	assert.Equal(t, "active", got.Status)
	assert.False(t, got.NotFound)

	ttl := mr.TTL(c.key(1))
	assert.GreaterOrEqual(t, ttl, basePoolTTL)
	assert.Less(t, ttl, basePoolTTL+poolTTLJitter)
}

func TestRedisPoolAvailabilityCache_SetClearsNullMarker(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	ctx := context.Background()

	require.NoError(t, c.SetNullMarker(ctx, 5))
	got, err := c.Get(ctx, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.NotFound)

	require.NoError(t, c.Set(ctx, 5, &PoolAvailability{Quantity: 2}))
	got, err = c.Get(ctx, 5)
	require.NoError(t, err)
	assert.False(t, got.NotFound)
	assert.Equal(t, int64(2), got.Quantity)
}

func TestRedisPoolAvailabilityCache_Invalidate(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 3, &PoolAvailability{Quantity: 1, Consumed: 1}))
	require.NoError(t, c.Invalidate(ctx, 3))

	got, err := c.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisPoolAvailabilityCache_ServerDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	mr.Close()

	_, err := c.Get(context.Background(), 1)
	assert.Error(t, err)
}

func TestPoolAvailability_Available(t *testing.T) {
	tests := []struct {
		name string
		a    PoolAvailability
		want int64
	}{
		{"under", PoolAvailability{Quantity: 5, Consumed: 2}, 3},
		{"at", PoolAvailability{Quantity: 5, Consumed: 5}, 0},
		{"over", PoolAvailability{Quantity: 2, Consumed: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Available())
		})
	}
}

func TestNopPoolAvailabilityCache(t *testing.T) {
	var c PoolAvailabilityCache = NopPoolAvailabilityCache{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 1, &PoolAvailability{Quantity: 1}))
	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}
