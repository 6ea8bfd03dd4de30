// Package tickets issues admission tickets for paid reservations.
package tickets

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
)

const maxCodeAttempts = 5

// IssueInput is everything needed to issue and announce a ticket. The
// reservation row must already be locked by the caller.
type IssueInput struct {
	Reservation *models.Reservation
	Event       *models.Event
	Table       *models.Table
	User        *models.User
	Actor       *outbox.ActorRef
}

type ticketMetrics interface {
	IncTicketIssued()
}

// Issuer creates exactly one ticket per reservation.
type Issuer struct {
	repo    *Repository
	outbox  outbox.Emitter
	logg    *logger.Logger
	metrics ticketMetrics
	buffer  time.Duration
	now     func() time.Time
	newCode func() (string, error)
}

func NewIssuer(repo *Repository, emitter outbox.Emitter, logg *logger.Logger, metrics ticketMetrics, buffer time.Duration) (*Issuer, error) {
	if repo == nil {
		return nil, fmt.Errorf("ticket repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Issuer{
		repo:    repo,
		outbox:  emitter,
		logg:    logg,
		metrics: metrics,
		buffer:  buffer,
		now:     time.Now,
		newCode: NewCode,
	}, nil
}

// ExpiryFor returns the later of the event end and now plus the buffer.
func (i *Issuer) ExpiryFor(event *models.Event) time.Time {
	floor := i.now().UTC().Add(i.buffer)
	if event != nil && event.EndsAt.After(floor) {
		return event.EndsAt.UTC()
	}
	return floor
}

// Issue returns the reservation's ticket, creating it and queueing the
// ticket_issued notification on first call. created is false when a ticket
// already existed.
func (i *Issuer) Issue(ctx context.Context, tx *gorm.DB, input IssueInput) (ticket *models.Ticket, created bool, err error) {
	if input.Reservation == nil || input.Event == nil || input.User == nil {
		return nil, false, pkgerrors.New(pkgerrors.CodeInternal, "ticket issue input incomplete")
	}
	if input.Reservation.PaymentStatus != enums.ReservationStatusPaid {
		return nil, false, pkgerrors.New(pkgerrors.CodeStateConflict, "tickets are only issued for paid reservations")
	}

	repo := i.repo.WithTx(tx)
	existing, err := repo.FindByReservation(ctx, input.Reservation.ID)
	switch {
	case err == nil:
		return existing, false, nil
	case !db.IsNotFound(err):
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check existing ticket")
	}

	ticket = &models.Ticket{
		ReservationID: input.Reservation.ID,
		InvoiceID:     input.Reservation.InvoiceID,
		UserID:        input.Reservation.UserID,
		EventID:       input.Event.ID,
		ExpiresAt:     i.ExpiryFor(input.Event),
	}
	for attempt := 1; ; attempt++ {
		code, err := i.newCode()
		if err != nil {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate ticket code")
		}
		ticket.ID = uuid.Nil
		ticket.TicketCode = code
		err = tx.Transaction(func(sp *gorm.DB) error {
			return repo.WithTx(sp).Create(ctx, ticket)
		})
		if err == nil {
			break
		}
		if db.IsUniqueViolation(err, "reservation") {
			existing, ferr := repo.FindByReservation(ctx, input.Reservation.ID)
			if ferr != nil {
				return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, ferr, "load concurrently issued ticket")
			}
			return existing, false, nil
		}
		if !db.IsUniqueViolation(err, "") || attempt >= maxCodeAttempts {
			return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create ticket")
		}
	}

	event := payloads.TicketIssuedEvent{
		TicketID:      ticket.ID,
		TicketCode:    ticket.TicketCode,
		ReservationID: input.Reservation.ID,
		UserID:        input.User.ID,
		Email:         input.User.Email,
		RecipientName: input.User.Name,
		EventID:       input.Event.ID,
		EventName:     input.Event.Name,
		EventStartsAt: input.Event.StartsAt,
		GuestCount:    input.Reservation.GuestCount,
		ExpiresAt:     ticket.ExpiresAt,
	}
	if input.Table != nil {
		event.TableName = input.Table.Name
	}
	if err := i.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventTicketIssued,
		AggregateType: enums.AggregateTicket,
		AggregateID:   ticket.ID,
		Actor:         input.Actor,
		Data:          event,
	}); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue ticket notification")
	}

	if i.metrics != nil {
		i.metrics.IncTicketIssued()
	}
	logCtx := i.logg.WithFields(ctx, map[string]any{
		"reservation_id": input.Reservation.ID.String(),
		"ticket_id":      ticket.ID.String(),
	})
	i.logg.Info(logCtx, "ticket issued")
	return ticket, true, nil
}
