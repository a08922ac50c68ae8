package models

import (
	"time"

	"github.com/cipherboy/candlepin/internal/shared/constants"
)

// OwnerModel is the persistence model for owners. Owners are read-only to
// this module apart from seeding.
type OwnerModel struct {
	Key         string `gorm:"primaryKey;column:owner_key;size:255"`
	DisplayName string `gorm:"not null;size:255"`
	CreatedAt   time.Time
}

// TableName specifies the table name for GORM
func (OwnerModel) TableName() string {
	return constants.TableOwners
}
