package pool

import (
	"time"

	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
)

// Reconciliation reports what one pass did to one pool.
type Reconciliation struct {
	Pool    *pool.Pool
	Before  pool.CapacityState
	After   pool.CapacityState
	Created bool
	Resized bool
	Deleted bool
	// Revoked counts certificates revoked when the pool was deleted.
	Revoked int
	// Regenerated counts certificates re-signed for a changed window.
	Regenerated int
}

// OverConsumed reports whether the pool is left with more consumption than
// quantity. Issuance stays blocked until revocations bring it back.
func (r Reconciliation) OverConsumed() bool {
	return r.After == pool.OverConsumed
}

// BecameOverConsumed reports a transition into OVER_CONSUMED.
func (r Reconciliation) BecameOverConsumed() bool {
	return r.OverConsumed() && r.Before != pool.OverConsumed
}

// Created wraps freshly created pools as reconciliations.
func Created(pools []*pool.Pool) []Reconciliation {
	recs := make([]Reconciliation, 0, len(pools))
	for _, p := range pools {
		recs = append(recs, Reconciliation{
			Pool:    p,
			Before:  p.CapacityState(),
			After:   p.CapacityState(),
			Created: true,
		})
	}
	return recs
}

// Events describes recs as domain events.
func Events(recs []Reconciliation, at time.Time) []events.DomainEvent {
	var out []events.DomainEvent
	for _, r := range recs {
		switch {
		case r.Created:
			out = append(out, pool.NewPoolEvent(pool.EventPoolCreated, r.Pool, at))
		case r.Deleted:
			evt := pool.NewPoolEvent(pool.EventPoolDeleted, r.Pool, at)
			evt.Revoked = r.Revoked
			out = append(out, evt)
		case r.Resized:
			out = append(out, pool.NewPoolEvent(pool.EventPoolResized, r.Pool, at))
		}
		if !r.Deleted && r.BecameOverConsumed() {
			out = append(out, pool.NewPoolEvent(pool.EventPoolOverConsumed, r.Pool, at))
		}
	}
	return out
}
