package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// CreateTableInput holds the validated payload to create a table.
type CreateTableInput struct {
	Name     string
	Type     string
	Capacity int
	Price    decimal.Decimal
}

// CreateProductInput holds the validated payload to create a product.
type CreateProductInput struct {
	Name        string
	Description *string
	Price       decimal.Decimal
	Stock       int
	ImageURL    *string
}

// CreateEventInput describes a new event and the tables offered for it.
// EventDate is YYYY-MM-DD; StartTime and EndTime are HH:MM:SS. An end time
// at or before the start time means the event runs past midnight.
type CreateEventInput struct {
	Name        string
	Description *string
	EventDate   string
	StartTime   string
	EndTime     string
	TableIDs    []uuid.UUID
}

type TableDTO struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type"`
	Capacity int             `json:"capacity"`
	Price    decimal.Decimal `json:"price"`
}

type ProductDTO struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	ImageURL    *string         `json:"image_url,omitempty"`
}

// EventTableDTO is one bookable slot of an event.
type EventTableDTO struct {
	EventTableID uuid.UUID              `json:"event_table_id"`
	TableID      uuid.UUID              `json:"table_id"`
	TableName    string                 `json:"table_name"`
	TableType    string                 `json:"table_type"`
	Capacity     int                    `json:"capacity"`
	Price        decimal.Decimal        `json:"price"`
	Status       enums.EventTableStatus `json:"status"`
}

// EventDTO summarizes an event for listings.
type EventDTO struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     *string   `json:"description,omitempty"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	IsActive        bool      `json:"is_active"`
	TotalTables     int       `json:"total_tables"`
	AvailableTables int       `json:"available_tables"`
}

// EventDetailDTO adds the per-table availability.
type EventDetailDTO struct {
	EventDTO
	Tables []EventTableDTO `json:"tables"`
}

func tableDTO(t models.Table) TableDTO {
	return TableDTO{ID: t.ID, Name: t.Name, Type: t.Type, Capacity: t.Capacity, Price: t.Price}
}

func productDTO(p models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		ImageURL:    p.ImageURL,
	}
}

func eventDTO(e models.Event) EventDTO {
	dto := EventDTO{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		StartsAt:    e.StartsAt,
		EndsAt:      e.EndsAt,
		IsActive:    e.IsActive,
		TotalTables: len(e.Tables),
	}
	for _, et := range e.Tables {
		if et.Status == enums.EventTableStatusAvailable {
			dto.AvailableTables++
		}
	}
	return dto
}

func eventDetailDTO(e models.Event) EventDetailDTO {
	detail := EventDetailDTO{EventDTO: eventDTO(e), Tables: make([]EventTableDTO, 0, len(e.Tables))}
	for _, et := range e.Tables {
		row := EventTableDTO{EventTableID: et.ID, TableID: et.TableID, Status: et.Status}
		if et.Table != nil {
			row.TableName = et.Table.Name
			row.TableType = et.Table.Type
			row.Capacity = et.Table.Capacity
			row.Price = et.Table.Price
		}
		detail.Tables = append(detail.Tables, row)
	}
	return detail
}
