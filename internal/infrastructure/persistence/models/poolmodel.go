package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/cipherboy/candlepin/internal/shared/constants"
)

// PoolModel is the persistence model for derived pools. Consumed is only
// changed through conditional updates in the repository.
type PoolModel struct {
	ID                 uint      `gorm:"primarykey;autoIncrement"`
	SubscriptionID     uint      `gorm:"not null;index:idx_pool_subscription"`
	OwnerKey           string    `gorm:"not null;size:255;index:idx_pool_owner"`
	ProductID          string    `gorm:"not null;size:64"`
	Quantity           int64     `gorm:"not null"`
	Consumed           int64     `gorm:"not null;default:0"`
	StartDate          time.Time `gorm:"not null"`
	EndDate            time.Time `gorm:"not null"`
	ProvidedProductIDs datatypes.JSONSlice[string]
	Status             string `gorm:"not null;size:20;default:active"`
	Version            int    `gorm:"not null;default:1"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName specifies the table name for GORM
func (PoolModel) TableName() string {
	return constants.TablePools
}
