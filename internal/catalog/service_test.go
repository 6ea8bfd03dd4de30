package catalog

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tablebook-backend/internal/inventory"
	"github.com/angelmondragon/tablebook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *service) {
	t.Helper()
	client, conn := dbtest.Client(t)
	logg := logger.New(logger.Options{ServiceName: "catalog-test", Output: io.Discard})
	svc, err := NewService(NewRepository(conn), inventory.NewLedger(), client, logg)
	require.NoError(t, err)
	return svc, svc.(*service)
}

func TestCreateAndListTables(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateTable(ctx, CreateTableInput{Name: "VIP 1", Type: "vip", Capacity: 6, Price: decimal.NewFromInt(500)})
	require.NoError(t, err)
	require.Equal(t, "vip", created.Type)

	_, err = svc.CreateTable(ctx, CreateTableInput{Name: "Bar", Capacity: 2, Price: decimal.Zero})
	require.NoError(t, err)

	_, err = svc.CreateTable(ctx, CreateTableInput{Name: "Broken", Capacity: 2, Price: decimal.NewFromInt(-1)})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = svc.CreateTable(ctx, CreateTableInput{Name: "Empty", Capacity: 0, Price: decimal.NewFromInt(1)})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	tables, err := svc.ListTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	require.Equal(t, "Bar", tables[0].Name)
	require.Equal(t, "standard", tables[0].Type)
}

func TestProductsInStockListing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, CreateProductInput{Name: "Champagne", Price: decimal.NewFromInt(90), Stock: 3})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Sold Out Gin", Price: decimal.NewFromInt(40), Stock: 0})
	require.NoError(t, err)
	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Bad", Price: decimal.NewFromInt(1), Stock: -1})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	all, err := svc.ListProducts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)

	inStock, err := svc.ListProducts(ctx, true)
	require.NoError(t, err)
	require.Len(t, inStock, 1)
	require.Equal(t, "Champagne", inStock[0].Name)
}

func TestCreateEventBindsTablesOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	first, err := svc.CreateTable(ctx, CreateTableInput{Name: "A", Capacity: 4, Price: decimal.NewFromInt(100)})
	require.NoError(t, err)
	second, err := svc.CreateTable(ctx, CreateTableInput{Name: "B", Capacity: 8, Price: decimal.NewFromInt(200)})
	require.NoError(t, err)

	date := time.Now().UTC().AddDate(0, 0, 7).Format(dateLayout)
	event, err := svc.CreateEvent(ctx, CreateEventInput{
		Name:      "Saturday",
		EventDate: date,
		StartTime: "22:00:00",
		EndTime:   "03:00:00",
		TableIDs:  []uuid.UUID{first.ID, second.ID, first.ID},
	})
	require.NoError(t, err)
	require.Len(t, event.Tables, 2)
	require.Equal(t, 2, event.AvailableTables)
	require.True(t, event.EndsAt.After(event.StartsAt))
	require.Equal(t, 5*time.Hour, event.EndsAt.Sub(event.StartsAt))

	_, err = svc.CreateEvent(ctx, CreateEventInput{
		Name:      "Sunday",
		EventDate: date,
		StartTime: "18:00:00",
		EndTime:   "23:00:00",
		TableIDs:  []uuid.UUID{second.ID},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeConflict))

	_, err = svc.CreateEvent(ctx, CreateEventInput{
		Name:      "Ghost",
		EventDate: date,
		StartTime: "18:00:00",
		EndTime:   "23:00:00",
		TableIDs:  []uuid.UUID{uuid.New()},
	})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	_, err = svc.CreateEvent(ctx, CreateEventInput{Name: "Bad date", EventDate: "07/01/2026", StartTime: "18:00:00", EndTime: "23:00:00"})
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	events, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, 2, events[0].TotalTables)
}

func TestUpcomingListingSkipsPastAndInactive(t *testing.T) {
	svc, impl := newTestService(t)
	ctx := context.Background()
	conn := impl.repo.db

	past := time.Now().UTC().Add(-48 * time.Hour)
	dbtest.SeedEventTableAt(t, conn, 4, 100, past, past.Add(4*time.Hour))
	upcoming := dbtest.SeedEventTable(t, conn, 4, 100)
	inactive := dbtest.SeedEventTable(t, conn, 4, 100)
	require.NoError(t, conn.Exec("UPDATE events SET is_active = ? WHERE id = ?", false, inactive.EventID).Error)

	events, err := svc.ListEvents(ctx, true)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, upcoming.EventID, events[0].ID)

	all, err := svc.ListEvents(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)

	_, err = svc.GetEvent(ctx, inactive.EventID, false)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
	detail, err := svc.GetEvent(ctx, inactive.EventID, true)
	require.NoError(t, err)
	require.Len(t, detail.Tables, 1)
	require.Equal(t, inactive.Table.Name, detail.Tables[0].TableName)
}

func TestSetEventTableStatus(t *testing.T) {
	svc, impl := newTestService(t)
	ctx := context.Background()
	conn := impl.repo.db
	eventTable := dbtest.SeedEventTable(t, conn, 4, 100)

	out, err := svc.SetEventTableStatus(ctx, eventTable.ID, enums.EventTableStatusUnavailable)
	require.NoError(t, err)
	require.Equal(t, enums.EventTableStatusUnavailable, out.Status)

	out, err = svc.SetEventTableStatus(ctx, eventTable.ID, enums.EventTableStatusAvailable)
	require.NoError(t, err)
	require.Equal(t, enums.EventTableStatusAvailable, out.Status)

	require.NoError(t, conn.Exec("UPDATE event_tables SET status = ? WHERE id = ?", enums.EventTableStatusBooked, eventTable.ID).Error)
	_, err = svc.SetEventTableStatus(ctx, eventTable.ID, enums.EventTableStatusUnavailable)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeStateConflict))
	require.Equal(t, enums.EventTableStatusBooked, dbtest.ReloadEventTable(t, conn, eventTable.ID).Status)

	_, err = svc.SetEventTableStatus(ctx, uuid.New(), enums.EventTableStatusAvailable)
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
