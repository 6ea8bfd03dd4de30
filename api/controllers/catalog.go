package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/catalog"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

type createTableRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Type     string          `json:"type" validate:"required,max=50"`
	Capacity int             `json:"capacity" validate:"required,gt=0"`
	Price    decimal.Decimal `json:"price" validate:"money"`
}

type createProductRequest struct {
	Name        string          `json:"name" validate:"required,max=150"`
	Description *string         `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price" validate:"money"`
	Stock       int             `json:"stock" validate:"gte=0"`
	ImageURL    *string         `json:"image_url,omitempty" validate:"omitempty,url"`
}

type createEventRequest struct {
	Name        string      `json:"name" validate:"required,max=200"`
	Description *string     `json:"description,omitempty"`
	EventDate   string      `json:"event_date" validate:"required"`
	StartTime   string      `json:"start_time" validate:"required"`
	EndTime     string      `json:"end_time" validate:"required"`
	TableIDs    []uuid.UUID `json:"table_ids" validate:"omitempty,dive,required"`
}

type eventTableStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=AVAILABLE UNAVAILABLE"`
}

// ListEvents serves the public event listing. ?upcoming=false includes past
// events.
func ListEvents(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		upcoming, err := validators.ParseQueryBool(r, "upcoming", true)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.ListEvents(r.Context(), upcoming)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

// GetEvent returns the event with per-table availability. Inactive events
// are hidden unless includeInactive is set (admin surface).
func GetEvent(svc catalog.Service, includeInactive bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := svc.GetEvent(r.Context(), id, includeInactive)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, event)
	}
}

// ListProducts shows add-ons. Guests only see products with stock left.
func ListProducts(svc catalog.Service, inStockOnly bool, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		products, err := svc.ListProducts(r.Context(), inStockOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func AdminListEvents(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		upcoming, err := validators.ParseQueryBool(r, "upcoming", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.ListEvents(r.Context(), upcoming)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}

func AdminCreateTable(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body createTableRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		table, err := svc.CreateTable(r.Context(), catalog.CreateTableInput{
			Name:     validators.SanitizeString(body.Name, 100),
			Type:     validators.SanitizeString(body.Type, 50),
			Capacity: body.Capacity,
			Price:    body.Price,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, table)
	}
}

func AdminListTables(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		tables, err := svc.ListTables(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tables)
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), catalog.CreateProductInput{
			Name:        validators.SanitizeString(body.Name, 150),
			Description: body.Description,
			Price:       body.Price,
			Stock:       body.Stock,
			ImageURL:    body.ImageURL,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, product)
	}
}

// AdminCreateEvent creates an event and binds the listed tables to it.
func AdminCreateEvent(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		var body createEventRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, err := svc.CreateEvent(r.Context(), catalog.CreateEventInput{
			Name:        validators.SanitizeString(body.Name, 200),
			Description: body.Description,
			EventDate:   body.EventDate,
			StartTime:   body.StartTime,
			EndTime:     body.EndTime,
			TableIDs:    body.TableIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, event)
	}
}

// AdminSetEventTableStatus toggles a slot between AVAILABLE and UNAVAILABLE.
// BOOKED is owned by the reservation engine and cannot be set by hand.
func AdminSetEventTableStatus(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "eventTableId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body eventTableStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseEventTableStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}
		row, err := svc.SetEventTableStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}
