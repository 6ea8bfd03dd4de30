package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Ticket is the admission credential issued for a paid reservation.
type Ticket struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	TicketCode    string     `gorm:"column:ticket_code;size:32;not null;uniqueIndex"`
	ReservationID uuid.UUID  `gorm:"column:reservation_id;type:uuid;not null;uniqueIndex"`
	InvoiceID     *uuid.UUID `gorm:"column:invoice_id;type:uuid"`
	UserID        uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	EventID       uuid.UUID  `gorm:"column:event_id;type:uuid;not null"`
	ExpiresAt     time.Time  `gorm:"column:expires_at;not null"`
	IsUsed        bool       `gorm:"column:is_used;not null;default:false"`
	UsedAt        *time.Time `gorm:"column:used_at"`
	RevokedAt     *time.Time `gorm:"column:revoked_at"`
	Event         *Event     `gorm:"foreignKey:EventID"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (t *Ticket) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
