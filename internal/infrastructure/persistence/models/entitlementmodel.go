package models

import (
	"time"

	"github.com/cipherboy/candlepin/internal/shared/constants"
)

// EntitlementCertificateModel is the persistence model for issued certificates.
// The unique request index makes issuance idempotent per (pool, consumer, token).
type EntitlementCertificateModel struct {
	ID             uint   `gorm:"primarykey"`
	Serial         int64  `gorm:"not null;uniqueIndex:idx_certificate_serial"`
	PoolID         uint   `gorm:"not null;uniqueIndex:idx_certificate_request,priority:1;index:idx_certificate_pool_revoked,priority:1"`
	ConsumerID     string `gorm:"not null;size:255;uniqueIndex:idx_certificate_request,priority:2"`
	RequestToken   string `gorm:"not null;size:64;uniqueIndex:idx_certificate_request,priority:3"`
	Kind           string `gorm:"not null;size:20"`
	IssuedAt       time.Time
	ExpiresAt      time.Time
	Revoked        bool `gorm:"not null;default:false;index:idx_certificate_pool_revoked,priority:2"`
	RevokedAt      *time.Time
	CertificatePEM string `gorm:"type:text"`
	PrivateKeyPEM  string `gorm:"type:text"`
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (EntitlementCertificateModel) TableName() string {
	return constants.TableCertificates
}

// RevocationModel keeps revoked serials after their certificate rows are gone.
type RevocationModel struct {
	Serial    int64 `gorm:"primaryKey;autoIncrement:false"`
	PoolID    uint  `gorm:"not null;index"`
	Reason    int   `gorm:"not null;default:0"`
	RevokedAt time.Time
}

// TableName specifies the table name for GORM
func (RevocationModel) TableName() string {
	return constants.TableRevocations
}

// All returns every model in migration order.
func All() []any {
	return []any{
		&OwnerModel{},
		&ProductModel{},
		&SubscriptionModel{},
		&PoolModel{},
		&EntitlementCertificateModel{},
		&RevocationModel{},
	}
}
