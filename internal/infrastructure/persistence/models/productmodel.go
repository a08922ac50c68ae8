package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/cipherboy/candlepin/internal/shared/constants"
)

// ProductModel is the persistence model for catalog products.
type ProductModel struct {
	ID         string `gorm:"primaryKey;size:64"`
	Name       string `gorm:"not null;size:255"`
	Multiplier *int64
	Attributes datatypes.JSONMap
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName specifies the table name for GORM
func (ProductModel) TableName() string {
	return constants.TableProducts
}
