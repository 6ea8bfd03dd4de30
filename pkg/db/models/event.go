package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Event is a dated occasion whose tables can be reserved.
type Event struct {
	ID          uuid.UUID    `gorm:"column:id;type:uuid;primaryKey"`
	Name        string       `gorm:"column:name;not null"`
	Description *string      `gorm:"column:description"`
	StartsAt    time.Time    `gorm:"column:starts_at;not null;index"`
	EndsAt      time.Time    `gorm:"column:ends_at;not null"`
	IsActive    bool         `gorm:"column:is_active;not null;default:true"`
	Tables      []EventTable `gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *Event) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}

// HasEnded reports whether the event is over at the given instant.
func (e Event) HasEnded(now time.Time) bool {
	return !e.EndsAt.After(now)
}
