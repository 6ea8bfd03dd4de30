// Package catalog manages the venue catalog: tables, add-on products and
// events with their per-event table bindings.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/inventory"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// Service exposes catalog provisioning and the public listings.
type Service interface {
	CreateTable(ctx context.Context, input CreateTableInput) (*TableDTO, error)
	ListTables(ctx context.Context) ([]TableDTO, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	ListProducts(ctx context.Context, inStockOnly bool) ([]ProductDTO, error)
	CreateEvent(ctx context.Context, input CreateEventInput) (*EventDetailDTO, error)
	ListEvents(ctx context.Context, upcomingOnly bool) ([]EventDTO, error)
	GetEvent(ctx context.Context, id uuid.UUID, includeInactive bool) (*EventDetailDTO, error)
	SetEventTableStatus(ctx context.Context, eventTableID uuid.UUID, status enums.EventTableStatus) (*EventTableDTO, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo     *Repository
	ledger   *inventory.Ledger
	txRunner txRunner
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the catalog service.
func NewService(repo *Repository, ledger *inventory.Ledger, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, errors.New("catalog repository required")
	}
	if ledger == nil {
		return nil, errors.New("inventory ledger required")
	}
	if tx == nil {
		return nil, errors.New("transaction runner required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{repo: repo, ledger: ledger, txRunner: tx, logg: logg, now: time.Now}, nil
}

func (s *service) CreateTable(ctx context.Context, input CreateTableInput) (*TableDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	tableType := strings.TrimSpace(input.Type)
	if tableType == "" {
		tableType = "standard"
	}
	table := models.Table{Name: name, Type: tableType, Capacity: input.Capacity, Price: input.Price.Round(2)}
	if err := s.repo.CreateTable(ctx, &table); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create table")
	}
	dto := tableDTO(table)
	return &dto, nil
}

func (s *service) ListTables(ctx context.Context) ([]TableDTO, error) {
	rows, err := s.repo.ListTables(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tables")
	}
	out := make([]TableDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, tableDTO(row))
	}
	return out, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must not be negative")
	}
	if input.Stock < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	product := models.Product{
		Name:        name,
		Description: input.Description,
		Price:       input.Price.Round(2),
		Stock:       input.Stock,
		ImageURL:    input.ImageURL,
	}
	if err := s.repo.CreateProduct(ctx, &product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create product")
	}
	dto := productDTO(product)
	return &dto, nil
}

func (s *service) ListProducts(ctx context.Context, inStockOnly bool) ([]ProductDTO, error) {
	rows, err := s.repo.ListProducts(ctx, inStockOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, productDTO(row))
	}
	return out, nil
}

func (s *service) CreateEvent(ctx context.Context, input CreateEventInput) (*EventDetailDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	startsAt, endsAt, err := eventWindow(input.EventDate, input.StartTime, input.EndTime)
	if err != nil {
		return nil, err
	}
	tableIDs := dedupe(input.TableIDs)

	var eventID uuid.UUID
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		tables, err := repo.FindTables(ctx, tableIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load tables")
		}
		if len(tables) != len(tableIDs) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "one or more tables not found")
		}
		bound, err := repo.BoundTableIDs(ctx, tableIDs)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check table bindings")
		}
		if len(bound) > 0 {
			return pkgerrors.New(pkgerrors.CodeConflict, "tables already assigned to another event").
				WithDetails(map[string]any{"table_ids": bound})
		}

		event := models.Event{
			Name:        name,
			Description: input.Description,
			StartsAt:    startsAt,
			EndsAt:      endsAt,
			IsActive:    true,
		}
		if err := repo.CreateEvent(ctx, &event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
		}
		rows := make([]models.EventTable, 0, len(tableIDs))
		for _, id := range tableIDs {
			rows = append(rows, models.EventTable{EventID: event.ID, TableID: id, Status: enums.EventTableStatusAvailable})
		}
		if err := repo.CreateEventTables(ctx, rows); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "tables already assigned to another event")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "bind tables")
		}
		eventID = event.ID
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"event_id": eventID.String(), "tables": len(tableIDs)}), "event created")
	return s.GetEvent(ctx, eventID, true)
}

func (s *service) ListEvents(ctx context.Context, upcomingOnly bool) ([]EventDTO, error) {
	rows, err := s.repo.ListEvents(ctx, upcomingOnly, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list events")
	}
	out := make([]EventDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventDTO(row))
	}
	return out, nil
}

func (s *service) GetEvent(ctx context.Context, id uuid.UUID, includeInactive bool) (*EventDetailDTO, error) {
	event, err := s.repo.FindEvent(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load event")
	}
	if !includeInactive && !event.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	detail := eventDetailDTO(*event)
	return &detail, nil
}

// SetEventTableStatus toggles an event table between AVAILABLE and
// UNAVAILABLE. Booked tables are only released by their reservation.
func (s *service) SetEventTableStatus(ctx context.Context, eventTableID uuid.UUID, status enums.EventTableStatus) (*EventTableDTO, error) {
	var out EventTableDTO
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		eventTable, err := s.ledger.LockTable(ctx, tx, eventTableID)
		if err != nil {
			return err
		}
		if err := s.ledger.SetAvailability(ctx, tx, eventTable, status); err != nil {
			return err
		}
		out = EventTableDTO{
			EventTableID: eventTable.ID,
			TableID:      eventTable.TableID,
			TableName:    eventTable.Table.Name,
			TableType:    eventTable.Table.Type,
			Capacity:     eventTable.Table.Capacity,
			Price:        eventTable.Table.Price,
			Status:       eventTable.Status,
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event table status")
	}
	return &out, nil
}

func eventWindow(date, start, end string) (time.Time, time.Time, error) {
	day, err := time.Parse(dateLayout, strings.TrimSpace(date))
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "event_date must use YYYY-MM-DD")
	}
	startClock, err := time.Parse(timeLayout, strings.TrimSpace(start))
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "start_time must use HH:MM:SS")
	}
	endClock, err := time.Parse(timeLayout, strings.TrimSpace(end))
	if err != nil {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "end_time must use HH:MM:SS")
	}
	startsAt := time.Date(day.Year(), day.Month(), day.Day(), startClock.Hour(), startClock.Minute(), startClock.Second(), 0, time.UTC)
	endsAt := time.Date(day.Year(), day.Month(), day.Day(), endClock.Hour(), endClock.Minute(), endClock.Second(), 0, time.UTC)
	if !endsAt.After(startsAt) {
		endsAt = endsAt.AddDate(0, 0, 1)
	}
	return startsAt, endsAt, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
