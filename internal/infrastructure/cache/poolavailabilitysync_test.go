package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

type stubPoolRepo struct {
	pool.Repository
	pools map[uint]*pool.Pool
	reads int
}

func (r *stubPoolRepo) GetByID(_ context.Context, id uint) (*pool.Pool, error) {
	r.reads++
	return r.pools[id], nil
}

func testPool(t *testing.T, id uint, quantity, consumed int64) *pool.Pool {
	t.Helper()
	now := time.Now().UTC()
	p, err := pool.ReconstructPool(id, 1, "acme", "RH00001", quantity, consumed,
		now.Add(-time.Hour), now.Add(time.Hour), nil, pool.StatusActive, 1, now, now)
	require.NoError(t, err)
	return p
}

func TestLookupAvailability_ReadThrough(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	repo := &stubPoolRepo{pools: map[uint]*pool.Pool{7: testPool(t, 7, 4, 4)}}
	ctx := context.Background()

	got, err := LookupAvailability(ctx, c, repo, 7, logger.NewDiscardLogger())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, string(pool.AtCapacity), got.State)
	assert.Equal(t, int64(0), got.Available())

	_, err = LookupAvailability(ctx, c, repo, 7, logger.NewDiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, repo.reads, "second lookup should be served from cache")
}

func TestLookupAvailability_MissingPoolIsNullMarked(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	repo := &stubPoolRepo{pools: map[uint]*pool.Pool{}}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := LookupAvailability(ctx, c, repo, 9, logger.NewDiscardLogger())
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	assert.Equal(t, 1, repo.reads)
}

func TestRefreshPool(t *testing.T) {
	client, _ := setupTestRedis(t)
	c := NewRedisPoolAvailabilityCache(client, logger.NewDiscardLogger())
	repo := &stubPoolRepo{pools: map[uint]*pool.Pool{3: testPool(t, 3, 10, 2)}}
	ctx := context.Background()

	RefreshPool(ctx, c, repo, 3, logger.NewDiscardLogger())
	got, err := c.Get(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(8), got.Available())

	delete(repo.pools, 3)
	RefreshPool(ctx, c, repo, 3, logger.NewDiscardLogger())
	got, err = c.Get(ctx, 3)
	require.NoError(t, err)
	assert.Nil(t, got, "deleted pool should be dropped from the cache")
}
