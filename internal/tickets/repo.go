package tickets

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
)

// Repository reads and writes ticket rows.
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

// FindByReservation returns the ticket for a reservation or gorm.ErrRecordNotFound.
func (r *Repository) FindByReservation(ctx context.Context, reservationID uuid.UUID) (*models.Ticket, error) {
	var ticket models.Ticket
	if err := r.db.WithContext(ctx).Where("reservation_id = ?", reservationID).First(&ticket).Error; err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *Repository) Create(ctx context.Context, ticket *models.Ticket) error {
	return r.db.WithContext(ctx).Create(ticket).Error
}

// ListActiveForUser returns unused, unrevoked, unexpired tickets ordered by event start.
func (r *Repository) ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Ticket, error) {
	var rows []models.Ticket
	err := r.db.WithContext(ctx).
		Joins("Event").
		Where("tickets.user_id = ?", userID).
		Where("tickets.is_used = ?", false).
		Where("tickets.revoked_at IS NULL").
		Where("tickets.expires_at > ?", now).
		Order(`"Event"."starts_at" ASC`).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// RevokeForReservation stamps revoked_at on any live ticket of the reservation.
func (r *Repository) RevokeForReservation(ctx context.Context, reservationID uuid.UUID, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("reservation_id = ? AND revoked_at IS NULL", reservationID).
		Update("revoked_at", now)
	return res.RowsAffected, res.Error
}
