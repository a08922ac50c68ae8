// Package common holds helpers shared by the application services.
package common

import (
	"github.com/cipherboy/candlepin/internal/domain/shared/events"
	"github.com/cipherboy/candlepin/internal/shared/logger"
)

// Publish hands events to the dispatcher after the change they describe has
// committed. A full or stopped dispatcher loses the event but never fails the
// operation.
func Publish(publisher events.EventPublisher, log logger.Interface, evts ...events.DomainEvent) {
	if publisher == nil {
		return
	}
	for _, evt := range evts {
		if err := publisher.Publish(evt); err != nil {
			log.Warnw("failed to publish domain event",
				"event_type", evt.GetEventType(),
				"aggregate_id", evt.GetAggregateID(),
				"error", err,
			)
		}
	}
}
