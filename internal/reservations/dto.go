package reservations

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// LineItemInput is one requested product add-on.
type LineItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateInput is a booking request for one event table.
type CreateInput struct {
	UserID       uuid.UUID
	EventTableID uuid.UUID
	GuestCount   int
	ArrivalTime  *string
	Items        []LineItemInput
}

// Actor identifies who drives a transition.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// ItemView is a persisted order line.
type ItemView struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ReservationView is the API projection of a reservation.
type ReservationView struct {
	ID            uuid.UUID               `json:"id"`
	Status        enums.ReservationStatus `json:"payment_status"`
	PaymentMode   enums.PaymentMode       `json:"payment_mode"`
	EventTableID  uuid.UUID               `json:"event_table_id"`
	EventID       uuid.UUID               `json:"event_id,omitempty"`
	EventName     string                  `json:"event_name,omitempty"`
	EventStartsAt *time.Time              `json:"event_starts_at,omitempty"`
	TableName     string                  `json:"table_name,omitempty"`
	GuestCount    int                     `json:"guest_count"`
	ArrivalTime   *string                 `json:"arrival_time,omitempty"`
	TablePrice    decimal.Decimal         `json:"table_price"`
	TotalAmount   decimal.Decimal         `json:"total_amount"`
	Items         []ItemView              `json:"items"`
	InvoiceURL    *string                 `json:"invoice_url,omitempty"`
	PaidAt        *time.Time              `json:"paid_at,omitempty"`
	ClosedAt      *time.Time              `json:"closed_at,omitempty"`
	CancelReason  *string                 `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

// PaymentInstructions tell the buyer how to settle the reservation.
type PaymentInstructions struct {
	Mode            enums.PaymentMode `json:"mode"`
	Message         string            `json:"message"`
	InvoiceURL      string            `json:"invoice_url,omitempty"`
	ExternalID      string            `json:"external_id,omitempty"`
	OperatorMessage string            `json:"operator_message,omitempty"`
	OperatorURL     string            `json:"operator_url,omitempty"`
}

// CreateResult is returned after a reservation commits.
type CreateResult struct {
	Reservation ReservationView     `json:"reservation"`
	Payment     PaymentInstructions `json:"payment"`
}

// ReservationPage is one cursor page of a reservation listing.
type ReservationPage struct {
	Items      []ReservationView `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
}

// SettlementResult reports the ticket produced by a PAID transition.
type SettlementResult struct {
	Reservation ReservationView `json:"reservation"`
	TicketID    *uuid.UUID      `json:"ticket_id,omitempty"`
	TicketCode  string          `json:"ticket_code,omitempty"`
}

func toView(r *models.Reservation) ReservationView {
	view := ReservationView{
		ID:           r.ID,
		Status:       r.PaymentStatus,
		PaymentMode:  r.PaymentMode,
		EventTableID: r.EventTableID,
		GuestCount:   r.GuestCount,
		ArrivalTime:  r.ArrivalTime,
		TablePrice:   r.TablePrice,
		TotalAmount:  r.TotalAmount,
		Items:        make([]ItemView, 0, len(r.OrderItems)),
		PaidAt:       r.PaidAt,
		ClosedAt:     r.ClosedAt,
		CancelReason: r.CancelReason,
		CreatedAt:    r.CreatedAt,
	}
	if et := r.EventTable; et != nil {
		if et.Event != nil {
			view.EventID = et.Event.ID
			view.EventName = et.Event.Name
			starts := et.Event.StartsAt
			view.EventStartsAt = &starts
		}
		if et.Table != nil {
			view.TableName = et.Table.Name
		}
	}
	if r.Invoice != nil && r.Invoice.InvoiceURL != "" {
		url := r.Invoice.InvoiceURL
		view.InvoiceURL = &url
	}
	for _, item := range r.OrderItems {
		iv := ItemView{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Subtotal:  item.Subtotal,
		}
		if item.Product != nil {
			iv.ProductName = item.Product.Name
		}
		view.Items = append(view.Items, iv)
	}
	return view
}
