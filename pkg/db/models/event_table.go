package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// EventTable binds a Table to exactly one Event and carries its booking status.
type EventTable struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EventID   uuid.UUID              `gorm:"column:event_id;type:uuid;not null;uniqueIndex:ux_event_tables_event_table,priority:1"`
	TableID   uuid.UUID              `gorm:"column:table_id;type:uuid;not null;uniqueIndex:ux_event_tables_event_table,priority:2;uniqueIndex:ux_event_tables_table"`
	Status    enums.EventTableStatus `gorm:"column:status;type:text;not null;default:AVAILABLE"`
	Event     *Event                 `gorm:"foreignKey:EventID"`
	Table     *Table                 `gorm:"foreignKey:TableID"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (e *EventTable) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
