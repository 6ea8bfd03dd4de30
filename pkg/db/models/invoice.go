package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// Invoice mirrors a payment request created at the gateway.
type Invoice struct {
	ID                uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	ExternalID        string              `gorm:"column:external_id;not null;uniqueIndex"`
	ProviderInvoiceID *string             `gorm:"column:provider_invoice_id"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Status            enums.InvoiceStatus `gorm:"column:status;type:text;not null;default:PENDING"`
	InvoiceURL        string              `gorm:"column:invoice_url;not null"`
	ExpiresAt         *time.Time          `gorm:"column:expires_at"`
	PaidAt            *time.Time          `gorm:"column:paid_at"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (i *Invoice) BeforeCreate(*gorm.DB) error {
	ensureID(&i.ID)
	return nil
}
