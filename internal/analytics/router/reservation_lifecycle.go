package router

import (
	"context"
	"fmt"

	cbigquery "cloud.google.com/go/bigquery"

	"github.com/angelmondragon/tablebook-backend/internal/analytics/types"
	"github.com/angelmondragon/tablebook-backend/internal/analytics/writer"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
)

var reservationEvents = []enums.OutboxEventType{
	enums.EventReservationCreated,
	enums.EventReservationPaid,
	enums.EventReservationExpired,
	enums.EventReservationFailed,
	enums.EventReservationCanceled,
}

type reservationLifecycle struct {
	writer Writer
	logg   *logger.Logger
}

func newReservationLifecycle(w Writer, logg *logger.Logger) *reservationLifecycle {
	return &reservationLifecycle{writer: w, logg: logg}
}

// project writes one reservation_events row per transition.
func (p *reservationLifecycle) project(ctx context.Context, envelope types.Envelope, event *payloads.ReservationEvent) error {
	row, err := reservationRow(envelope, event)
	if err != nil {
		return err
	}
	if err := p.writer.InsertReservationEvent(ctx, row); err != nil {
		return fmt.Errorf("insert %s row: %w", envelope.EventType, err)
	}
	p.logg.Debug(p.logg.WithField(ctx, "status", row.Status), "reservation event projected")
	return nil
}

func reservationRow(envelope types.Envelope, event *payloads.ReservationEvent) (types.ReservationEventRow, error) {
	var lines cbigquery.NullJSON
	if len(event.Lines) > 0 {
		encoded, err := writer.EncodeJSON(event.Lines)
		if err != nil {
			return types.ReservationEventRow{}, fmt.Errorf("encode lines: %w", err)
		}
		lines = encoded
	}
	raw, err := writer.EncodeJSON(envelope.Payload)
	if err != nil {
		return types.ReservationEventRow{}, fmt.Errorf("encode payload: %w", err)
	}

	row := types.ReservationEventRow{
		EventID:       envelope.EventID,
		EventType:     string(envelope.EventType),
		OccurredAt:    envelope.OccurredAt,
		ReservationID: event.ReservationID.String(),
		UserID:        event.UserID.String(),
		VenueEventID:  event.EventID.String(),
		EventTableID:  event.EventTableID.String(),
		Status:        string(event.Status),
		Source:        event.Source,
		PaymentMode:   string(event.PaymentMode),
		Reason:        event.Reason,
		GuestCount:    int64(event.GuestCount),
		TotalAmount:   event.TotalAmount.Rat(),
		LineCount:     int64(len(event.Lines)),
		Lines:         lines,
		Payload:       raw,
	}
	if envelope.ActorRole != "" {
		row.ActorRole = cbigquery.NullString{StringVal: envelope.ActorRole, Valid: true}
	}
	if event.PreviousStatus != "" {
		prev := string(event.PreviousStatus)
		row.PreviousStatus = &prev
	}
	return row, nil
}
