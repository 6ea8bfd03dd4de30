package types

import (
	"math/big"
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// ReservationEventRow mirrors the reservation_events BigQuery schema.
// One row is written per lifecycle transition.
type ReservationEventRow struct {
	EventID        string               `bigquery:"event_id"`
	EventType      string               `bigquery:"event_type"`
	OccurredAt     time.Time            `bigquery:"occurred_at"`
	ReservationID  string               `bigquery:"reservation_id"`
	UserID         string               `bigquery:"user_id"`
	VenueEventID   string               `bigquery:"venue_event_id"`
	EventTableID   string               `bigquery:"event_table_id"`
	Status         string               `bigquery:"status"`
	PreviousStatus *string              `bigquery:"previous_status"`
	Source         string               `bigquery:"source"`
	PaymentMode    string               `bigquery:"payment_mode"`
	Reason         *string              `bigquery:"reason"`
	GuestCount     int64                `bigquery:"guest_count"`
	TotalAmount    *big.Rat             `bigquery:"total_amount"`
	LineCount      int64                `bigquery:"line_count"`
	Lines          cbigquery.NullJSON   `bigquery:"lines"`
	ActorRole      cbigquery.NullString `bigquery:"actor_role"`
	Payload        cbigquery.NullJSON   `bigquery:"payload"`
}
