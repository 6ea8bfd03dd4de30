package tickets

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
)

type fixture struct {
	conn        *gorm.DB
	issuer      *Issuer
	user        models.User
	eventTable  models.EventTable
	reservation models.Reservation
}

func newFixture(t *testing.T, status enums.ReservationStatus) fixture {
	t.Helper()
	conn := dbtest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "tickets-test", Output: io.Discard})
	issuer, err := NewIssuer(NewRepository(conn), outbox.NewService(outbox.NewRepository(conn), logg), logg, nil, 24*time.Hour)
	require.NoError(t, err)

	user := dbtest.SeedUser(t, conn, enums.UserRoleUser)
	eventTable := dbtest.SeedEventTable(t, conn, 4, 100)
	reservation := models.Reservation{
		UserID:        user.ID,
		EventTableID:  eventTable.ID,
		GuestCount:    2,
		TablePrice:    decimal.NewFromInt(100),
		TotalAmount:   decimal.NewFromInt(100),
		PaymentStatus: status,
		PaymentMode:   enums.PaymentModeManual,
	}
	require.NoError(t, conn.Create(&reservation).Error)
	return fixture{conn: conn, issuer: issuer, user: user, eventTable: eventTable, reservation: reservation}
}

func (f fixture) issue(t *testing.T) (*models.Ticket, bool, error) {
	t.Helper()
	var (
		ticket  *models.Ticket
		created bool
	)
	err := f.conn.Transaction(func(tx *gorm.DB) error {
		var err error
		ticket, created, err = f.issuer.Issue(context.Background(), tx, IssueInput{
			Reservation: &f.reservation,
			Event:       f.eventTable.Event,
			Table:       f.eventTable.Table,
			User:        &f.user,
		})
		return err
	})
	return ticket, created, err
}

func TestIssueCreatesOneTicketAndQueuesNotification(t *testing.T) {
	f := newFixture(t, enums.ReservationStatusPaid)

	first, created, err := f.issue(t)
	require.NoError(t, err)
	require.True(t, created)
	require.True(t, strings.HasPrefix(first.TicketCode, "TB-"))

	second, created, err := f.issue(t)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)

	var tickets int64
	require.NoError(t, f.conn.Model(&models.Ticket{}).Count(&tickets).Error)
	require.EqualValues(t, 1, tickets)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", enums.EventTicketIssued).Find(&events).Error)
	require.Len(t, events, 1)
	require.Contains(t, string(events[0].Payload), f.user.Email)
}

func TestIssueRejectsUnpaidReservation(t *testing.T) {
	f := newFixture(t, enums.ReservationStatusPending)
	_, _, err := f.issue(t)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
}

func TestIssueRetriesCodeCollision(t *testing.T) {
	f := newFixture(t, enums.ReservationStatusPaid)
	taken := models.Ticket{
		TicketCode:    "TB-TAKEN00000",
		ReservationID: f.reservation.ID,
		UserID:        f.user.ID,
		EventID:       f.eventTable.EventID,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	// A second reservation owns the colliding code.
	other := f.reservation
	other.ID = uuid.Nil
	other.EventTableID = dbtest.SeedEventTable(t, f.conn, 2, 10).ID
	require.NoError(t, f.conn.Create(&other).Error)
	taken.ReservationID = other.ID
	require.NoError(t, f.conn.Create(&taken).Error)

	codes := []string{"TB-TAKEN00000", "TB-FRESH00000"}
	f.issuer.newCode = func() (string, error) {
		code := codes[0]
		codes = codes[1:]
		return code, nil
	}

	ticket, created, err := f.issue(t)
	require.NoError(t, err)
	require.True(t, created)
	require.Equal(t, "TB-FRESH00000", ticket.TicketCode)
}

func TestExpiryForUsesLaterOfEventEndAndBuffer(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	issuer := &Issuer{buffer: 24 * time.Hour, now: func() time.Time { return now }}

	soon := &models.Event{EndsAt: now.Add(2 * time.Hour)}
	require.Equal(t, now.Add(24*time.Hour), issuer.ExpiryFor(soon))

	later := &models.Event{EndsAt: now.Add(72 * time.Hour)}
	require.Equal(t, now.Add(72*time.Hour), issuer.ExpiryFor(later))
}

func TestListMineFiltersUsedRevokedAndExpired(t *testing.T) {
	f := newFixture(t, enums.ReservationStatusPaid)
	ticket, _, err := f.issue(t)
	require.NoError(t, err)

	svc := NewService(NewRepository(f.conn))
	views, err := svc.ListMine(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, ticket.TicketCode, views[0].TicketCode)
	require.Equal(t, f.eventTable.Event.Name, views[0].EventName)

	revoked, err := NewRepository(f.conn).RevokeForReservation(context.Background(), f.reservation.ID, time.Now())
	require.NoError(t, err)
	require.EqualValues(t, 1, revoked)

	views, err = svc.ListMine(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.Empty(t, views)
}

func TestNewCodeShape(t *testing.T) {
	code, err := NewCode()
	require.NoError(t, err)
	require.Len(t, code, len(codePrefix)+codeLength)
	for _, r := range strings.TrimPrefix(code, codePrefix) {
		require.Contains(t, codeAlphabet, string(r))
	}
}
