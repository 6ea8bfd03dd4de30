package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/pagination"
)

// Repository persists reservations, their order items and gateway invoices.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts the reservation and its order items.
func (r *Repository) Create(ctx context.Context, reservation *models.Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

// FindByID loads a reservation with its items and catalog context.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	err := r.db.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("OrderItems.Product").
		Preload("EventTable.Event").
		Preload("EventTable.Table").
		Preload("Invoice").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LockByID takes an exclusive lock on the reservation row and loads its items.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("reservation_id = ?", id).
		Order("product_id ASC").
		Find(&row.OrderItems).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// LockByInvoiceID locks the reservation backed by the given invoice.
func (r *Repository) LockByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	err := r.db.WithContext(ctx).
		Select("id").
		Where("invoice_id = ?", invoiceID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return r.LockByID(ctx, row.ID)
}

// UpdateStatus moves a reservation from one status to another. It reports
// false when the row was no longer in the expected status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to enums.ReservationStatus, updates map[string]any) (bool, error) {
	values := map[string]any{"payment_status": to}
	for k, v := range updates {
		values[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND payment_status = ?", id, from).
		Updates(values)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// LinkInvoice attaches a created invoice to a reservation still awaiting payment.
func (r *Repository) LinkInvoice(ctx context.Context, reservationID, invoiceID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND invoice_id IS NULL AND payment_status = ?", reservationID, enums.ReservationStatusPending).
		Update("invoice_id", invoiceID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a reservation that never became visible to its buyer.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Where("reservation_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Reservation{}).Error
}

// ListForUser returns one page of the user's reservations newest first. The
// page holds up to limit rows; callers ask for one extra to detect a next page.
func (r *Repository) ListForUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	q := r.db.WithContext(ctx).
		Preload("OrderItems").
		Preload("EventTable.Event").
		Preload("EventTable.Table").
		Preload("Invoice").
		Where("user_id = ?", userID)
	if cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}
	err := q.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindStaleAwaitingPayment lists unpaid reservations created before cutoff.
func (r *Repository) FindStaleAwaitingPayment(ctx context.Context, cutoff time.Time, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	q := r.db.WithContext(ctx).
		Where("payment_status IN ?", []enums.ReservationStatus{
			enums.ReservationStatusPending,
			enums.ReservationStatusWaitingManualPayment,
		}).
		Where("created_at < ?", cutoff).
		Order("created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateInvoice stores a gateway invoice.
func (r *Repository) CreateInvoice(ctx context.Context, invoice *models.Invoice) error {
	return r.db.WithContext(ctx).Create(invoice).Error
}

// LockInvoiceByExternalID takes an exclusive lock on the invoice row.
func (r *Repository) LockInvoiceByExternalID(ctx context.Context, externalID string) (*models.Invoice, error) {
	var row models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "external_id = ?", externalID).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// LockInvoiceByID takes an exclusive lock on the invoice row.
func (r *Repository) LockInvoiceByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var row models.Invoice
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// UpdateInvoiceStatus sets the invoice status and optional paid timestamp.
func (r *Repository) UpdateInvoiceStatus(ctx context.Context, id uuid.UUID, status enums.InvoiceStatus, paidAt *time.Time) error {
	values := map[string]any{"status": status}
	if paidAt != nil {
		values["paid_at"] = *paidAt
	}
	return r.db.WithContext(ctx).
		Model(&models.Invoice{}).
		Where("id = ?", id).
		Updates(values).Error
}

// PeekInvoiceID reads the invoice link without locking so callers can lock
// the invoice before the reservation.
func (r *Repository) PeekInvoiceID(ctx context.Context, id uuid.UUID) (*uuid.UUID, error) {
	var row models.Reservation
	if err := r.db.WithContext(ctx).Select("id", "invoice_id").First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return row.InvoiceID, nil
}

// FindEventTable loads an event table with its event and table without locking.
func (r *Repository) FindEventTable(ctx context.Context, id uuid.UUID) (*models.EventTable, error) {
	var row models.EventTable
	err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("Table").
		First(&row, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}
