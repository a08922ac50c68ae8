package subscription

import (
	"strconv"
	"time"

	"github.com/cipherboy/candlepin/internal/domain/shared/events"
)

const (
	EventSubscriptionCreated       = "subscription.created"
	EventSubscriptionUpdated       = "subscription.updated"
	EventSubscriptionStatusChanged = "subscription.status_changed"
	EventSubscriptionDeleted       = "subscription.deleted"
)

// LifecycleEvent reports a change to a subscription.
type LifecycleEvent struct {
	events.BaseEvent
	SubscriptionID uint   `json:"subscription_id"`
	OwnerKey       string `json:"owner_key"`
	ProductID      string `json:"product_id"`
	Quantity       int64  `json:"quantity"`
	From           Status `json:"from,omitempty"`
	To             Status `json:"to,omitempty"`
}

// NewLifecycleEvent snapshots sub for the given event type.
func NewLifecycleEvent(eventType string, sub *Subscription, from Status, at time.Time) *LifecycleEvent {
	return &LifecycleEvent{
		BaseEvent:      events.NewBaseEvent(eventType, strconv.FormatUint(uint64(sub.ID()), 10), at),
		SubscriptionID: sub.ID(),
		OwnerKey:       sub.OwnerKey(),
		ProductID:      sub.ProductID(),
		Quantity:       sub.Quantity(),
		From:           from,
		To:             sub.Status(),
	}
}
