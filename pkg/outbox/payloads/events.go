package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// ReservationLine is one product line carried by reservation events.
type ReservationLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// ReservationEvent describes a reservation lifecycle transition.
type ReservationEvent struct {
	ReservationID  uuid.UUID               `json:"reservation_id"`
	UserID         uuid.UUID               `json:"user_id"`
	EventID        uuid.UUID               `json:"event_id"`
	EventTableID   uuid.UUID               `json:"event_table_id"`
	GuestCount     int                     `json:"guest_count"`
	TotalAmount    decimal.Decimal         `json:"total_amount"`
	PaymentMode    enums.PaymentMode       `json:"payment_mode"`
	Status         enums.ReservationStatus `json:"status"`
	PreviousStatus enums.ReservationStatus `json:"previous_status,omitempty"`
	Source         string                  `json:"source"`
	Reason         *string                 `json:"reason,omitempty"`
	Lines          []ReservationLine       `json:"lines,omitempty"`
}

// TicketIssuedEvent carries everything the notification worker needs to
// deliver a ticket without reading the database.
type TicketIssuedEvent struct {
	TicketID      uuid.UUID `json:"ticket_id"`
	TicketCode    string    `json:"ticket_code"`
	ReservationID uuid.UUID `json:"reservation_id"`
	UserID        uuid.UUID `json:"user_id"`
	Email         string    `json:"email"`
	RecipientName string    `json:"recipient_name"`
	EventID       uuid.UUID `json:"event_id"`
	EventName     string    `json:"event_name"`
	EventStartsAt time.Time `json:"event_starts_at"`
	TableName     string    `json:"table_name"`
	GuestCount    int       `json:"guest_count"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// PasswordResetRequestedEvent asks the notification worker to mail a reset link.
type PasswordResetRequestedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	ResetURL  string    `json:"reset_url"`
	ExpiresAt time.Time `json:"expires_at"`
}
