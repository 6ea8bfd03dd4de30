package reservations

import (
	"context"

	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/tickets"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
)

// Transition sources recorded on events and metrics.
const (
	SourceCheckout        = "checkout"
	SourceGatewayCallback = "gateway_callback"
	SourceAdmin           = "admin"
	SourceExpirySweep     = "expiry_sweep"
)

// SettleTx marks a locked reservation PAID and issues its ticket. A
// reservation that is already PAID only has its ticket ensured.
func (s *Service) SettleTx(ctx context.Context, tx *gorm.DB, res *models.Reservation, source string, actor *outbox.ActorRef) (*models.Ticket, error) {
	repo := s.repo.WithTx(tx)
	eventTable, err := repo.FindEventTable(ctx, res.EventTableID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event table")
	}
	buyer, err := s.users.WithTx(tx).FindByID(ctx, res.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load buyer")
	}

	if res.PaymentStatus != enums.ReservationStatusPaid {
		if !res.PaymentStatus.CanTransitionTo(enums.ReservationStatusPaid) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "reservation can no longer be paid").
				WithDetails(map[string]any{"status": res.PaymentStatus})
		}
		now := s.now().UTC()
		prev := res.PaymentStatus
		ok, err := repo.UpdateStatus(ctx, res.ID, prev, enums.ReservationStatusPaid, map[string]any{
			"paid_at":    now,
			"updated_at": now,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark reservation paid")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "reservation changed concurrently")
		}
		res.PaymentStatus = enums.ReservationStatusPaid
		res.PaidAt = &now

		if err := s.emit(ctx, tx, enums.EventReservationPaid, res, eventTable, prev, source, nil, actor); err != nil {
			return nil, err
		}
		s.metrics.IncTransition(string(enums.ReservationStatusPaid), source)
	}

	ticket, _, err := s.issuer.Issue(ctx, tx, tickets.IssueInput{
		Reservation: res,
		Event:       eventTable.Event,
		Table:       eventTable.Table,
		User:        buyer,
		Actor:       actor,
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// RevertTx closes a locked, unpaid reservation as EXPIRED or FAILED and
// returns its table and stock. It reports false without touching anything
// when the reservation has already left the awaiting-payment states.
func (s *Service) RevertTx(ctx context.Context, tx *gorm.DB, res *models.Reservation, target enums.ReservationStatus, source string, reason *string, actor *outbox.ActorRef) (bool, error) {
	if target != enums.ReservationStatusExpired && target != enums.ReservationStatusFailed {
		return false, pkgerrors.New(pkgerrors.CodeInternal, "revert target must be EXPIRED or FAILED")
	}
	if !res.PaymentStatus.CanTransitionTo(target) {
		return false, nil
	}

	eventTable, err := s.releaseInventoryTx(ctx, tx, res)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	prev := res.PaymentStatus
	ok, err := s.repo.WithTx(tx).UpdateStatus(ctx, res.ID, prev, target, map[string]any{
		"closed_at":     now,
		"cancel_reason": reason,
		"updated_at":    now,
	})
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "close reservation")
	}
	if !ok {
		return false, pkgerrors.New(pkgerrors.CodeConflict, "reservation changed concurrently")
	}
	res.PaymentStatus = target
	res.ClosedAt = &now
	res.CancelReason = reason

	eventType := enums.EventReservationExpired
	if target == enums.ReservationStatusFailed {
		eventType = enums.EventReservationFailed
	}
	if err := s.emit(ctx, tx, eventType, res, eventTable, prev, source, reason, actor); err != nil {
		return false, err
	}
	s.metrics.IncTransition(string(target), source)

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"reservation_id": res.ID.String(),
		"status":         target,
		"source":         source,
	})
	s.logg.Info(logCtx, "reservation reverted")
	return true, nil
}

// releaseInventoryTx is the exact reversal of the booking step: the event
// table goes back to AVAILABLE and every order line's stock is restored.
func (s *Service) releaseInventoryTx(ctx context.Context, tx *gorm.DB, res *models.Reservation) (*models.EventTable, error) {
	eventTable, err := s.ledger.LockTable(ctx, tx, res.EventTableID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ledger.ReleaseTable(ctx, tx, eventTable); err != nil {
		return nil, err
	}
	for _, item := range res.OrderItems {
		if err := s.ledger.RestoreStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
	}
	return eventTable, nil
}

func (s *Service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, res *models.Reservation, eventTable *models.EventTable, prev enums.ReservationStatus, source string, reason *string, actor *outbox.ActorRef) error {
	data := payloads.ReservationEvent{
		ReservationID:  res.ID,
		UserID:         res.UserID,
		EventTableID:   res.EventTableID,
		GuestCount:     res.GuestCount,
		TotalAmount:    res.TotalAmount,
		PaymentMode:    res.PaymentMode,
		Status:         res.PaymentStatus,
		PreviousStatus: prev,
		Source:         source,
		Reason:         reason,
		Lines:          make([]payloads.ReservationLine, 0, len(res.OrderItems)),
	}
	if eventTable != nil {
		data.EventID = eventTable.EventID
	}
	for _, item := range res.OrderItems {
		data.Lines = append(data.Lines, payloads.ReservationLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Subtotal:  item.Subtotal,
		})
	}
	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateReservation,
		AggregateID:   res.ID,
		Actor:         actor,
		Data:          data,
	}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue reservation event")
	}
	return nil
}
