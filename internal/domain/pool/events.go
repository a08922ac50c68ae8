package pool

import (
	"strconv"
	"time"

	"github.com/cipherboy/candlepin/internal/domain/shared/events"
)

const (
	EventPoolCreated      = "pool.created"
	EventPoolResized      = "pool.resized"
	EventPoolOverConsumed = "pool.over_consumed"
	EventPoolDeleted      = "pool.deleted"
)

// PoolEvent reports a change to a pool.
type PoolEvent struct {
	events.BaseEvent
	PoolID         uint          `json:"pool_id"`
	SubscriptionID uint          `json:"subscription_id"`
	OwnerKey       string        `json:"owner_key"`
	Quantity       int64         `json:"quantity"`
	Consumed       int64         `json:"consumed"`
	State          CapacityState `json:"state"`
	// Revoked counts certificates revoked during deletion.
	Revoked int `json:"revoked,omitempty"`
}

// NewPoolEvent snapshots p for the given event type.
func NewPoolEvent(eventType string, p *Pool, at time.Time) *PoolEvent {
	return &PoolEvent{
		BaseEvent:      events.NewBaseEvent(eventType, strconv.FormatUint(uint64(p.ID()), 10), at),
		PoolID:         p.ID(),
		SubscriptionID: p.SubscriptionID(),
		OwnerKey:       p.OwnerKey(),
		Quantity:       p.Quantity(),
		Consumed:       p.Consumed(),
		State:          p.CapacityState(),
	}
}
