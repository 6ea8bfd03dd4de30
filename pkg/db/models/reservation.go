package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// Reservation books one EventTable for a user together with its add-on lines.
type Reservation struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	EventTableID  uuid.UUID               `gorm:"column:event_table_id;type:uuid;not null;index"`
	GuestCount    int                     `gorm:"column:guest_count;not null"`
	ArrivalTime   *string                 `gorm:"column:arrival_time;size:8"`
	TablePrice    decimal.Decimal         `gorm:"column:table_price;type:numeric(12,2);not null"`
	TotalAmount   decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus enums.ReservationStatus `gorm:"column:payment_status;type:text;not null;index"`
	PaymentMode   enums.PaymentMode       `gorm:"column:payment_mode;type:text;not null"`
	InvoiceID     *uuid.UUID              `gorm:"column:invoice_id;type:uuid;uniqueIndex"`
	PaidAt        *time.Time              `gorm:"column:paid_at"`
	ClosedAt      *time.Time              `gorm:"column:closed_at"`
	CancelReason  *string                 `gorm:"column:cancel_reason"`
	OrderItems    []OrderItem             `gorm:"foreignKey:ReservationID;constraint:OnDelete:CASCADE"`
	EventTable    *EventTable             `gorm:"foreignKey:EventTableID"`
	User          *User                   `gorm:"foreignKey:UserID"`
	Invoice       *Invoice                `gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt     time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *Reservation) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}

// OrderItem snapshots a product line at reservation time.
type OrderItem struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	ReservationID uuid.UUID       `gorm:"column:reservation_id;type:uuid;not null;index"`
	ProductID     uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity      int             `gorm:"column:quantity;not null"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Subtotal      decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null"`
	Product       *Product        `gorm:"foreignKey:ProductID"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (o *OrderItem) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
