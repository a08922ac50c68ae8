package container

import (
	"github.com/cipherboy/candlepin/internal/domain/entitlement"
	"github.com/cipherboy/candlepin/internal/domain/pool"
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/domain/subscription"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// AuditedEvents lists the event types written to the audit log.
var AuditedEvents = []string{
	subscription.EventSubscriptionCreated,
	subscription.EventSubscriptionUpdated,
	subscription.EventSubscriptionStatusChanged,
	subscription.EventSubscriptionDeleted,
	pool.EventPoolCreated,
	pool.EventPoolResized,
	pool.EventPoolOverConsumed,
	pool.EventPoolDeleted,
	entitlement.EventCertificateIssued,
	entitlement.EventCertificateRevoked,
}

// SubscribeAuditLog logs every audited event at info level, or warn for
// over-consumed pools.
func SubscribeAuditLog(d *events.InMemoryEventDispatcher, log logger.Interface) error {
	audit := log.Named("audit")
	for _, eventType := range AuditedEvents {
		handler := events.NewSimpleEventHandler(eventType, func(e events.DomainEvent) error {
			kv := []any{
				"event_type", e.GetEventType(),
				"aggregate_id", e.GetAggregateID(),
				"occurred_at", e.GetOccurredAt(),
				"event", e,
			}
			if e.GetEventType() == pool.EventPoolOverConsumed {
				audit.Warnw("domain event", kv...)
				return nil
			}
			audit.Infow("domain event", kv...)
			return nil
		})
		if err := d.Subscribe(eventType, handler); err != nil {
			return err
		}
	}
	return nil
}
