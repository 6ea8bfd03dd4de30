package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Table is an immutable catalog entry describing a bookable table.
type Table struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Type      string          `gorm:"column:type;not null;default:standard"`
	Capacity  int             `gorm:"column:capacity;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (t *Table) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
