package entitlement

import (
	"strconv"
	"time"

	"github.com/cipherboy/candlepin/internal/domain/shared/events"
)

const (
	EventCertificateIssued  = "certificate.issued"
	EventCertificateRevoked = "certificate.revoked"
)

// CertificateEvent reports issuance or revocation of a serial.
type CertificateEvent struct {
	events.BaseEvent
	Serial     int64  `json:"serial"`
	PoolID     uint   `json:"pool_id"`
	ConsumerID string `json:"consumer_id,omitempty"`
	Kind       Kind   `json:"kind"`
}

// NewCertificateEvent snapshots c for the given event type.
func NewCertificateEvent(eventType string, c *Certificate, at time.Time) *CertificateEvent {
	return &CertificateEvent{
		BaseEvent:  events.NewBaseEvent(eventType, strconv.FormatInt(c.Serial(), 10), at),
		Serial:     c.Serial(),
		PoolID:     c.PoolID(),
		ConsumerID: c.ConsumerID(),
		Kind:       c.Kind(),
	}
}
