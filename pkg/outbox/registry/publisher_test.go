package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestEventRegistryResolveReservationEvent(t *testing.T) {
	reg := newTestEventRegistry(t)

	reservationID := uuid.New()
	payloadBytes := mustMarshal(t, payloads.ReservationEvent{
		ReservationID: reservationID,
		TotalAmount:   decimal.RequireFromString("120.00"),
		Status:        enums.ReservationStatusExpired,
		Source:        "sweep",
	})

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventReservationExpired,
		AggregateType: enums.AggregateReservation,
		AggregateID:   reservationID,
		Payload:       mustEnvelope(t, payloadBytes),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "reservations-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	payload, ok := resolved.Payload.(*payloads.ReservationEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
	if payload.ReservationID != reservationID || !payload.TotalAmount.Equal(decimal.NewFromInt(120)) {
		t.Fatalf("payload mismatch %+v", payload)
	}
	if resolved.Envelope.EventID == "" || resolved.Envelope.OccurredAt.IsZero() {
		t.Fatalf("envelope metadata missing")
	}
}

func TestEventRegistryRoutesTicketsToNotificationTopic(t *testing.T) {
	reg := newTestEventRegistry(t)

	resolved, err := reg.Resolve(models.OutboxEvent{
		EventType:     enums.EventTicketIssued,
		AggregateType: enums.AggregateTicket,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelope(t, mustMarshal(t, payloads.TicketIssuedEvent{TicketCode: "TKT-ABC"})),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resolved.Descriptor.Topic != "notification-topic" {
		t.Fatalf("unexpected topic %q", resolved.Descriptor.Topic)
	}
	if len(reg.Topics()) != 2 {
		t.Fatalf("expected two distinct topics, got %v", reg.Topics())
	}
}

func TestEventRegistryRejectsBadRows(t *testing.T) {
	reg := newTestEventRegistry(t)

	tests := map[string]models.OutboxEvent{
		"unknown event": {
			EventType:     "table_flipped",
			AggregateType: enums.AggregateReservation,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"aggregate mismatch": {
			EventType:     enums.EventReservationPaid,
			AggregateType: enums.AggregateTicket,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"missing aggregate id": {
			EventType:     enums.EventReservationPaid,
			AggregateType: enums.AggregateReservation,
			AggregateID:   uuid.Nil,
			Payload:       mustEnvelope(t, []byte(`{}`)),
		},
		"null payload": {
			EventType:     enums.EventReservationPaid,
			AggregateType: enums.AggregateReservation,
			AggregateID:   uuid.New(),
			Payload:       mustEnvelope(t, []byte("null")),
		},
		"broken envelope": {
			EventType:     enums.EventReservationPaid,
			AggregateType: enums.AggregateReservation,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{"data":`),
		},
	}

	for name, event := range tests {
		_, err := reg.Resolve(event)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		var nonRetry NonRetryableError
		if !errors.As(err, &nonRetry) {
			t.Fatalf("%s: expected non-retryable error, got %T", name, err)
		}
	}
}

func TestNewEventRegistryRequiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"}); err == nil {
		t.Fatal("expected missing reservations topic error")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{ReservationsTopic: "r"}); err == nil {
		t.Fatal("expected missing notification topic error")
	}
}

func newTestEventRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{
		ReservationsTopic: "reservations-topic",
		NotificationTopic: "notification-topic",
	})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	return reg
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func mustEnvelope(t *testing.T, payload []byte) json.RawMessage {
	t.Helper()
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return data
}
