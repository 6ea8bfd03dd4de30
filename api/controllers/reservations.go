package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/reservations"
	"github.com/angelmondragon/tablebook-backend/internal/tickets"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/pagination"
)

// ReservationService is the subset of the reservation engine used over HTTP.
type ReservationService interface {
	Create(ctx context.Context, input reservations.CreateInput) (*reservations.CreateResult, error)
	Get(ctx context.Context, reservationID uuid.UUID, actor reservations.Actor) (*reservations.ReservationView, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*reservations.ReservationPage, error)
	ConfirmManualPayment(ctx context.Context, reservationID uuid.UUID, actor reservations.Actor) (*reservations.SettlementResult, error)
	Cancel(ctx context.Context, reservationID uuid.UUID, actor reservations.Actor, reason string) (*reservations.ReservationView, error)
}

// TicketService lists the caller's tickets.
type TicketService interface {
	ListMine(ctx context.Context, userID uuid.UUID) ([]tickets.TicketView, error)
}

type orderItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type createReservationRequest struct {
	EventTableID uuid.UUID          `json:"event_table_id" validate:"required"`
	GuestCount   int                `json:"guest_count" validate:"required,gt=0"`
	ArrivalTime  *string            `json:"arrival_time,omitempty"`
	OrderItems   []orderItemRequest `json:"order_items" validate:"omitempty,max=50,dive"`
}

type cancelReservationRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// CreateReservation books an event table with optional product add-ons.
func CreateReservation(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}

		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createReservationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := reservations.CreateInput{
			UserID:       userID,
			EventTableID: body.EventTableID,
			GuestCount:   body.GuestCount,
			ArrivalTime:  body.ArrivalTime,
			Items:        make([]reservations.LineItemInput, 0, len(body.OrderItems)),
		}
		for _, item := range body.OrderItems {
			input.Items = append(input.Items, reservations.LineItemInput{ProductID: item.ProductID, Quantity: item.Quantity})
		}

		result, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteCreated(w, result)
	}
}

func MyReservations(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePage(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// GetReservation returns one reservation; guests only see their own.
func GetReservation(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view, err := svc.Get(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

func MyTickets(svc TicketService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ticket service unavailable"))
			return
		}
		userID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ListMine(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminConfirmPayment settles a manual-mode reservation after the operator
// has verified the transfer.
func AdminConfirmPayment(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ConfirmManualPayment(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminCancelReservation(svc ReservationService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reservation service unavailable"))
			return
		}
		actor, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelReservationRequest
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		view, err := svc.Cancel(r.Context(), id, actor, validators.SanitizeString(body.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}
