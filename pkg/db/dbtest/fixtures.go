package dbtest

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// SeedUser inserts an active account with the given role.
func SeedUser(t testing.TB, conn *gorm.DB, role enums.UserRole) models.User {
	t.Helper()
	user := models.User{
		Name:         "Guest " + uuid.NewString()[:8],
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "not-a-real-hash",
		Role:         role,
		IsActive:     true,
	}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// SeedEventTable inserts an event starting tomorrow, a table and the binding between them.
func SeedEventTable(t testing.TB, conn *gorm.DB, capacity int, price int64) models.EventTable {
	t.Helper()
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	return SeedEventTableAt(t, conn, capacity, price, start, start.Add(6*time.Hour))
}

// SeedEventTableAt is SeedEventTable with an explicit event window.
func SeedEventTableAt(t testing.TB, conn *gorm.DB, capacity int, price int64, startsAt, endsAt time.Time) models.EventTable {
	t.Helper()
	event := models.Event{Name: "Friday Night", StartsAt: startsAt, EndsAt: endsAt, IsActive: true}
	if err := conn.Create(&event).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}
	table := models.Table{Name: "T-" + uuid.NewString()[:4], Type: "vip", Capacity: capacity, Price: decimal.NewFromInt(price)}
	if err := conn.Create(&table).Error; err != nil {
		t.Fatalf("seed table: %v", err)
	}
	eventTable := models.EventTable{EventID: event.ID, TableID: table.ID, Status: enums.EventTableStatusAvailable}
	if err := conn.Create(&eventTable).Error; err != nil {
		t.Fatalf("seed event table: %v", err)
	}
	eventTable.Event = &event
	eventTable.Table = &table
	return eventTable
}

// SeedProduct inserts a product with the given price and stock.
func SeedProduct(t testing.TB, conn *gorm.DB, price int64, stock int) models.Product {
	t.Helper()
	product := models.Product{Name: "Bottle " + uuid.NewString()[:4], Price: decimal.NewFromInt(price), Stock: stock}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return product
}

// ReloadEventTable reads the current row.
func ReloadEventTable(t testing.TB, conn *gorm.DB, id uuid.UUID) models.EventTable {
	t.Helper()
	var row models.EventTable
	if err := conn.First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("reload event table: %v", err)
	}
	return row
}

// ReloadProduct reads the current row.
func ReloadProduct(t testing.TB, conn *gorm.DB, id uuid.UUID) models.Product {
	t.Helper()
	var row models.Product
	if err := conn.First(&row, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return row
}
