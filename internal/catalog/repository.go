package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
)

// Repository persists tables, products and events. Reads are plain
// snapshot queries; booking-time locks live in the inventory ledger.
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

func (r *Repository) CreateTable(ctx context.Context, table *models.Table) error {
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *Repository) ListTables(ctx context.Context) ([]models.Table, error) {
	var rows []models.Table
	err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	return rows, err
}

func (r *Repository) FindTables(ctx context.Context, ids []uuid.UUID) ([]models.Table, error) {
	var rows []models.Table
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error
	return rows, err
}

// BoundTableIDs returns which of ids already belong to an event.
func (r *Repository) BoundTableIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	var bound []uuid.UUID
	if len(ids) == 0 {
		return bound, nil
	}
	err := r.db.WithContext(ctx).
		Model(&models.EventTable{}).
		Where("table_id IN ?", ids).
		Pluck("table_id", &bound).Error
	return bound, err
}

func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *Repository) ListProducts(ctx context.Context, inStockOnly bool) ([]models.Product, error) {
	var rows []models.Product
	query := r.db.WithContext(ctx).Order("name ASC")
	if inStockOnly {
		query = query.Where("stock > 0")
	}
	err := query.Find(&rows).Error
	return rows, err
}

func (r *Repository) CreateEvent(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Omit("Tables").Create(event).Error
}

func (r *Repository) CreateEventTables(ctx context.Context, rows []models.EventTable) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Omit("Event", "Table").Create(&rows).Error
}

// ListEvents returns events newest first. With upcomingOnly set only
// active events that have not ended are returned.
func (r *Repository) ListEvents(ctx context.Context, upcomingOnly bool, now time.Time) ([]models.Event, error) {
	var rows []models.Event
	query := r.db.WithContext(ctx).Preload("Tables")
	if upcomingOnly {
		query = query.Where("is_active = ? AND ends_at > ?", true, now).Order("starts_at ASC")
	} else {
		query = query.Order("starts_at DESC")
	}
	err := query.Find(&rows).Error
	return rows, err
}

func (r *Repository) FindEvent(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	err := r.db.WithContext(ctx).
		Preload("Tables", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Preload("Tables.Table").
		First(&event, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}
