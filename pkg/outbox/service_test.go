package outbox_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
)

func TestEmitWritesEnvelopeInsideTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)
	aggregateID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventReservationCreated,
			AggregateType: enums.AggregateReservation,
			AggregateID:   aggregateID,
			Actor:         &outbox.ActorRef{UserID: uuid.New(), Role: "user"},
			Data:          map[string]any{"reservation_id": aggregateID.String()},
		})
	})
	require.NoError(t, err)

	var rows []models.OutboxEvent
	require.NoError(t, conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, aggregateID, rows[0].AggregateID)
	require.Nil(t, rows[0].PublishedAt)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	require.Equal(t, 1, envelope.Version)
	require.Equal(t, rows[0].ID.String(), envelope.EventID)
	require.Equal(t, "user", envelope.Actor.Role)
	require.JSONEq(t, `{"reservation_id":"`+aggregateID.String()+`"}`, string(envelope.Data))
}

func TestEmitRolledBackWithTransaction(t *testing.T) {
	conn := dbtest.Open(t)
	svc := outbox.NewService(outbox.NewRepository(conn), nil)

	_ = conn.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventReservationPaid,
			AggregateType: enums.AggregateReservation,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		}))
		return gorm.ErrInvalidData
	})

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestEmitRejectsUnknownTypesAndMissingTx(t *testing.T) {
	svc := outbox.NewService(outbox.NewRepository(nil), nil)
	require.Error(t, svc.Emit(context.Background(), nil, outbox.DomainEvent{}))

	conn := dbtest.Open(t)
	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     "mystery",
			AggregateType: enums.AggregateReservation,
			AggregateID:   uuid.New(),
		})
	})
	require.Error(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventReservationPaid,
			AggregateType: enums.AggregateReservation,
		})
	})
	require.Error(t, err, "aggregate id is required")
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := outbox.DecodeEnvelope([]byte(`{"event_id":"e-1","data":{"a":1}}`))
	require.NoError(t, err)
	require.Equal(t, 1, env.Version)
	require.True(t, env.HasData())

	env, err = outbox.DecodeEnvelope([]byte(`{"version":1,"event_id":"e-2","data":null}`))
	require.NoError(t, err)
	require.False(t, env.HasData())

	_, err = outbox.DecodeEnvelope([]byte(`{"version":2,"event_id":"e-3","data":{}}`))
	require.Error(t, err)

	_, err = outbox.DecodeEnvelope([]byte(`not json`))
	require.Error(t, err)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewRepository(conn)

	old := models.OutboxEvent{
		EventType:     enums.EventReservationPaid,
		AggregateType: enums.AggregateReservation,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
	}
	exhausted := models.OutboxEvent{
		EventType:     enums.EventReservationExpired,
		AggregateType: enums.AggregateReservation,
		AggregateID:   uuid.New(),
		Payload:       json.RawMessage(`{}`),
		AttemptCount:  5,
	}
	require.NoError(t, repo.Insert(conn, old))
	require.NoError(t, repo.Insert(conn, exhausted))

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, enums.EventReservationPaid, rows[0].EventType)

	require.NoError(t, repo.MarkFailedTx(conn, rows[0].ID, context.DeadlineExceeded))
	var reloaded models.OutboxEvent
	require.NoError(t, conn.First(&reloaded, "id = ?", rows[0].ID).Error)
	require.Equal(t, 1, reloaded.AttemptCount)
	require.NotNil(t, reloaded.LastError)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	rows, err = repo.FetchUnpublishedForPublish(conn, 10, 5)
	require.NoError(t, err)
	require.Empty(t, rows)

	deleted, err := repo.DeletePublishedBefore(conn, time.Now().Add(time.Minute), 0)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)
}

func TestDLQInsertTruncatesLongErrors(t *testing.T) {
	conn := dbtest.Open(t)
	repo := outbox.NewDLQRepository(conn)
	longMsg := strings.Repeat("x", 5000)

	err := conn.Transaction(func(tx *gorm.DB) error {
		return repo.InsertTx(tx, models.OutboxDLQ{
			EventID:       uuid.New(),
			EventType:     enums.EventTicketIssued,
			AggregateType: enums.AggregateTicket,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`{}`),
			ErrorReason:   enums.OutboxDLQReasonNonRetryable,
			ErrorMessage:  &longMsg,
			FailedAt:      time.Now().UTC(),
		})
	})
	require.NoError(t, err)

	var row models.OutboxDLQ
	require.NoError(t, conn.First(&row).Error)
	require.NotNil(t, row.ErrorMessage)
	require.Len(t, *row.ErrorMessage, 1024)
	require.Error(t, repo.InsertTx(nil, models.OutboxDLQ{}))
}
