// Package inventory owns table availability per event and product stock.
// Every mutation runs inside a caller-owned transaction after the row has
// been locked, so two writers can never observe the same AVAILABLE table or
// the same stock level.
package inventory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

// Ledger is stateless; all state lives in locked rows.
type Ledger struct {
	now func() time.Time
}

func NewLedger() *Ledger {
	return &Ledger{now: time.Now}
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// LockTable takes an exclusive lock on the event table row and loads its
// table and event for capacity, price and date checks.
func (l *Ledger) LockTable(ctx context.Context, tx *gorm.DB, eventTableID uuid.UUID) (*models.EventTable, error) {
	if eventTableID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event table id is required")
	}
	var row models.EventTable
	if err := forUpdate(tx.WithContext(ctx)).First(&row, "id = ?", eventTableID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event table not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock event table")
	}

	var table models.Table
	if err := tx.WithContext(ctx).First(&table, "id = ?", row.TableID).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load table")
	}
	var event models.Event
	if err := tx.WithContext(ctx).First(&event, "id = ?", row.EventID).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	row.Table = &table
	row.Event = &event
	return &row, nil
}

// LockProduct takes an exclusive lock on one product row.
func (l *Ledger) LockProduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := forUpdate(tx.WithContext(ctx)).First(&product, "id = ?", productID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": productID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock product")
	}
	return &product, nil
}

// LockProducts locks every distinct product in ascending id order so
// concurrent reservations acquire locks in the same sequence.
func (l *Ledger) LockProducts(ctx context.Context, tx *gorm.DB, productIDs []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	ids := uniqueSorted(productIDs)
	locked := make(map[uuid.UUID]*models.Product, len(ids))
	for _, id := range ids {
		product, err := l.LockProduct(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = product
	}
	return locked, nil
}

// ReserveTable moves a locked event table from AVAILABLE to BOOKED.
func (l *Ledger) ReserveTable(ctx context.Context, tx *gorm.DB, eventTable *models.EventTable) error {
	if eventTable.Status != enums.EventTableStatusAvailable {
		return pkgerrors.New(pkgerrors.CodeConflict, "table is not available").
			WithDetails(map[string]any{"event_table_id": eventTable.ID, "status": eventTable.Status})
	}
	res := tx.WithContext(ctx).
		Model(&models.EventTable{}).
		Where("id = ? AND status = ?", eventTable.ID, enums.EventTableStatusAvailable).
		Updates(map[string]any{
			"status":     enums.EventTableStatusBooked,
			"updated_at": l.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "book event table")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "table is not available")
	}
	eventTable.Status = enums.EventTableStatusBooked
	return nil
}

// DecrementStock subtracts qty from a locked product.
func (l *Ledger) DecrementStock(ctx context.Context, tx *gorm.DB, product *models.Product, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if product.Stock < qty {
		return insufficientStock(product, qty)
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", product.ID, qty).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": l.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}
	if res.RowsAffected == 0 {
		return insufficientStock(product, qty)
	}
	product.Stock -= qty
	return nil
}

// ReleaseTable returns a BOOKED event table to AVAILABLE. Tables of events
// that have already ended stay BOOKED, and non-BOOKED tables are left alone.
// It reports whether the row changed.
func (l *Ledger) ReleaseTable(ctx context.Context, tx *gorm.DB, eventTable *models.EventTable) (bool, error) {
	if eventTable.Status != enums.EventTableStatusBooked {
		return false, nil
	}
	if eventTable.Event != nil && eventTable.Event.HasEnded(l.now()) {
		return false, nil
	}
	res := tx.WithContext(ctx).
		Model(&models.EventTable{}).
		Where("id = ? AND status = ?", eventTable.ID, enums.EventTableStatusBooked).
		Updates(map[string]any{
			"status":     enums.EventTableStatusAvailable,
			"updated_at": l.now().UTC(),
		})
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "release event table")
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	eventTable.Status = enums.EventTableStatusAvailable
	return true, nil
}

// RestoreStock adds qty back to a product.
func (l *Ledger) RestoreStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", qty),
			"updated_at": l.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "restore stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// SetAvailability toggles a locked event table between AVAILABLE and
// UNAVAILABLE. BOOKED tables belong to a reservation and are rejected.
func (l *Ledger) SetAvailability(ctx context.Context, tx *gorm.DB, eventTable *models.EventTable, target enums.EventTableStatus) error {
	if target != enums.EventTableStatusAvailable && target != enums.EventTableStatusUnavailable {
		return pkgerrors.New(pkgerrors.CodeValidation, "status must be AVAILABLE or UNAVAILABLE")
	}
	if eventTable.Status == target {
		return nil
	}
	if eventTable.Status == enums.EventTableStatusBooked {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "booked tables are released through their reservation")
	}
	if !eventTable.Status.CanTransitionTo(target) {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "invalid table status transition")
	}
	res := tx.WithContext(ctx).
		Model(&models.EventTable{}).
		Where("id = ? AND status = ?", eventTable.ID, eventTable.Status).
		Updates(map[string]any{
			"status":     target,
			"updated_at": l.now().UTC(),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "update event table status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "event table changed concurrently")
	}
	eventTable.Status = target
	return nil
}

func insufficientStock(product *models.Product, qty int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id": product.ID,
			"requested":  qty,
			"available":  product.Stock,
		})
}

func uniqueSorted(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}
