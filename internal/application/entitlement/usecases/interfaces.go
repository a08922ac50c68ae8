package usecases

import (
	"context"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/infrastructure/cache"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// IssuanceMetrics records certificate lifecycle counters.
type IssuanceMetrics interface {
	IncrementIssued(kind string)
	AddRevoked(n int)
	IncrementCapacityRejection()
}

type nopMetrics struct{}

func (nopMetrics) IncrementIssued(string)      {}
func (nopMetrics) AddRevoked(int)              {}
func (nopMetrics) IncrementCapacityRejection() {}

// Collaborators groups the optional side channels of the certificate use
// cases. Zero values disable the corresponding channel.
type Collaborators struct {
	Cache   cache.PoolAvailabilityCache
	Metrics IssuanceMetrics
}

func (c Collaborators) withDefaults() Collaborators {
	if c.Cache == nil {
		c.Cache = cache.NopPoolAvailabilityCache{}
	}
	if c.Metrics == nil {
		c.Metrics = nopMetrics{}
	}
	return c
}

func refreshAvailability(ctx context.Context, c Collaborators, pools pool.Repository, poolID uint, log logger.Interface) {
	if _, nop := c.Cache.(cache.NopPoolAvailabilityCache); nop {
		return
	}
	cache.RefreshPool(ctx, c.Cache, pools, poolID, log)
}
