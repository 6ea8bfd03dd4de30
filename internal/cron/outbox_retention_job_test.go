package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
)

func TestOutboxRetentionJobDeletesOnlyOldPublishedRows(t *testing.T) {
	client, conn := dbtest.Client(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	old := now.Add(-40 * 24 * time.Hour)
	recent := now.Add(-2 * time.Hour)

	rows := []models.OutboxEvent{
		{EventType: enums.EventReservationCreated, AggregateType: enums.AggregateReservation, PublishedAt: &old},
		{EventType: enums.EventReservationPaid, AggregateType: enums.AggregateReservation, PublishedAt: &recent},
		{EventType: enums.EventTicketIssued, AggregateType: enums.AggregateTicket},
	}
	for i := range rows {
		rows[i].Payload = []byte(`{}`)
		require.NoError(t, conn.Create(&rows[i]).Error)
	}

	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     newTestLogger(),
		DB:         client,
		Repository: outbox.NewRepository(conn),
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }
	require.Equal(t, defaultOutboxRetention, job.retention)

	require.NoError(t, job.Run(context.Background()))

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&remaining).Error)
	require.Len(t, remaining, 2)
	for _, row := range remaining {
		require.NotEqual(t, rows[0].ID, row.ID)
	}
}

func TestOutboxRetentionJobDeletesInBatches(t *testing.T) {
	client, conn := dbtest.Client(t)
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	old := now.Add(-60 * 24 * time.Hour)
	for i := 0; i < 5; i++ {
		publishedAt := old.Add(time.Duration(i) * time.Minute)
		row := models.OutboxEvent{
			EventType:     enums.EventReservationCreated,
			AggregateType: enums.AggregateReservation,
			Payload:       []byte(`{}`),
			PublishedAt:   &publishedAt,
		}
		require.NoError(t, conn.Create(&row).Error)
	}

	repo := &countingRetentionRepo{inner: outbox.NewRepository(conn)}
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		Logger:     newTestLogger(),
		DB:         client,
		Repository: repo,
		BatchSize:  2,
	})
	require.NoError(t, err)
	job := jobIface.(*outboxRetentionJob)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	require.Equal(t, 3, repo.calls, "2 + 2 + 1 rows")

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.Zero(t, count)
}

type countingRetentionRepo struct {
	inner *outbox.Repository
	calls int
}

func (c *countingRetentionRepo) DeletePublishedBefore(tx *gorm.DB, cutoff time.Time, limit int) (int64, error) {
	c.calls++
	return c.inner.DeletePublishedBefore(tx, cutoff, limit)
}

func TestOutboxRetentionJobRequiresDependencies(t *testing.T) {
	_, err := NewOutboxRetentionJob(OutboxRetentionJobParams{})
	require.Error(t, err)
	_, err = NewOutboxRetentionJob(OutboxRetentionJobParams{Logger: newTestLogger()})
	require.Error(t, err)
}
