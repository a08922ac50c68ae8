package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	start = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end   = start.AddDate(1, 0, 0)
)

func TestCapacityOf(t *testing.T) {
	tests := []struct {
		quantity, consumed int64
		want               CapacityState
	}{
		{4, 0, UnderCapacity},
		{4, 3, UnderCapacity},
		{4, 4, AtCapacity},
		{4, 5, OverConsumed},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CapacityOf(tt.quantity, tt.consumed), "%d/%d", tt.consumed, tt.quantity)
	}
}

func TestNewPool_RejectsNonPositiveQuantity(t *testing.T) {
	_, err := NewPool(1, "admin", "rhel", 0, start, end, nil, start)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewPool(0, "admin", "rhel", 1, start, end, nil, start)
	assert.Error(t, err)
}

func TestPool_CheckIssuable(t *testing.T) {
	mk := func(quantity, consumed int64, status Status) *Pool {
		p, err := ReconstructPool(7, 1, "admin", "rhel", quantity, consumed, start, end, nil, status, 1, start, start)
		require.NoError(t, err)
		return p
	}
	mid := start.AddDate(0, 6, 0)

	assert.NoError(t, mk(2, 1, StatusActive).CheckIssuable(mid))
	assert.ErrorIs(t, mk(2, 2, StatusActive).CheckIssuable(mid), ErrCapacityExceeded)
	assert.ErrorIs(t, mk(2, 3, StatusActive).CheckIssuable(mid), ErrCapacityExceeded)
	assert.ErrorIs(t, mk(2, 0, StatusDraining).CheckIssuable(mid), ErrPoolUnavailable)
	assert.ErrorIs(t, mk(2, 0, StatusActive).CheckIssuable(end.Add(time.Second)), ErrPoolExpired)
}

func TestPool_ResizeReportsOverConsumption(t *testing.T) {
	p, err := ReconstructPool(7, 1, "admin", "rhel", 4, 3, start, end, nil, StatusActive, 1, start, start)
	require.NoError(t, err)

	before, after, err := p.Resize(2, start)
	require.NoError(t, err)
	assert.Equal(t, UnderCapacity, before)
	assert.Equal(t, OverConsumed, after)
	assert.Equal(t, int64(3), p.Consumed(), "consumption is never truncated")
	assert.Equal(t, int64(0), p.Available())
	assert.Equal(t, 2, p.Version())

	_, _, err = p.Resize(0, start)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestPool_CertificateWindow(t *testing.T) {
	p, err := NewPool(1, "admin", "rhel", 1, start, end, nil, start)
	require.NoError(t, err)

	nb, na := p.CertificateWindow(start.Add(-48 * time.Hour))
	assert.Equal(t, start, nb, "future pool clips notBefore to its start")
	assert.Equal(t, end, na)

	now := start.AddDate(0, 1, 0)
	nb, _ = p.CertificateWindow(now)
	assert.Equal(t, now, nb)
}

func TestPool_Follow(t *testing.T) {
	p, err := NewPool(1, "admin", "rhel", 1, start, end, []string{"a"}, start)
	require.NoError(t, err)

	assert.False(t, p.Follow(start, end, []string{"a"}, start))
	assert.True(t, p.Follow(start, end.AddDate(1, 0, 0), []string{"a"}, start))
	assert.Equal(t, end.AddDate(1, 0, 0), p.EndDate())
}
