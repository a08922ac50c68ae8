package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/cipherboy/candlepin/internal/shared/constants"
)

// SubscriptionModel is the persistence model for subscriptions.
type SubscriptionModel struct {
	ID                 uint      `gorm:"primarykey;autoIncrement"`
	OwnerKey           string    `gorm:"not null;size:255;index:idx_subscription_owner"`
	ProductID          string    `gorm:"not null;size:64;index:idx_subscription_product"`
	Quantity           int64     `gorm:"not null"`
	StartDate          time.Time `gorm:"not null"`
	EndDate            time.Time `gorm:"not null;index:idx_subscription_status_end,priority:2"`
	ContractNumber     string    `gorm:"size:255"`
	AccountNumber      string    `gorm:"size:255"`
	OrderNumber        string    `gorm:"size:255"`
	ProvidedProductIDs datatypes.JSONSlice[string]
	ActivationKey      *string `gorm:"size:255"`
	Status             string  `gorm:"not null;size:20;index:idx_subscription_status_end,priority:1"`
	Version            int     `gorm:"not null;default:1"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}
