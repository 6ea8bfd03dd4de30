package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/reservations"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
)

const (
	defaultPendingTTL      = 24 * time.Hour
	defaultExpiryBatchSize = 200
	expiryReason           = "payment window elapsed"
)

type reservationReverter interface {
	RevertTx(ctx context.Context, tx *gorm.DB, res *models.Reservation, target enums.ReservationStatus, source string, reason *string, actor *outbox.ActorRef) (bool, error)
}

// ReservationExpiryJobParams configure the unpaid reservation sweep.
type ReservationExpiryJobParams struct {
	Logger       *logger.Logger
	DB           txRunner
	Reservations *reservations.Repository
	Transitions  reservationReverter
	PendingTTL   time.Duration
	BatchSize    int
}

// NewReservationExpiryJob expires reservations still awaiting payment after
// the pending TTL, releasing their table and stock.
func NewReservationExpiryJob(params ReservationExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if params.Transitions == nil {
		return nil, fmt.Errorf("reservation transitions required")
	}
	ttl := params.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatchSize
	}
	return &reservationExpiryJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Reservations,
		transitions: params.Transitions,
		ttl:         ttl,
		batch:       batch,
		now:         time.Now,
	}, nil
}

type reservationExpiryJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        *reservations.Repository
	transitions reservationReverter
	ttl         time.Duration
	batch       int
	now         func() time.Time
}

func (j *reservationExpiryJob) Name() string { return "reservation-expiry" }

// Run keeps going past individual failures and reports them combined.
func (j *reservationExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.repo.FindStaleAwaitingPayment(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("query stale reservations: %w", err)
	}

	var (
		errs    error
		expired int
	)
	for _, row := range stale {
		ok, err := j.expire(ctx, row.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire reservation %s: %w", row.ID, err))
			continue
		}
		if ok {
			expired++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"candidates": len(stale),
		"expired":    expired,
	})
	j.logg.Info(logCtx, "reservation expiry sweep complete")
	return errs
}

// expire re-checks state under lock so a payment that landed after the
// query wins over the sweep.
func (j *reservationExpiryJob) expire(ctx context.Context, id uuid.UUID) (bool, error) {
	var expired bool
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.repo.WithTx(tx)
		invoiceID, err := repo.PeekInvoiceID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		var invoice *models.Invoice
		if invoiceID != nil {
			if invoice, err = repo.LockInvoiceByID(ctx, *invoiceID); err != nil {
				return err
			}
		}
		res, err := repo.LockByID(ctx, id)
		if err != nil {
			return err
		}
		if !res.PaymentStatus.AwaitingPayment() {
			return nil
		}

		reason := expiryReason
		expired, err = j.transitions.RevertTx(ctx, tx, res, enums.ReservationStatusExpired, reservations.SourceExpirySweep, &reason, nil)
		if err != nil || !expired {
			return err
		}
		if invoice != nil && !invoice.Status.IsTerminal() {
			return repo.UpdateInvoiceStatus(ctx, invoice.ID, enums.InvoiceStatusExpired, nil)
		}
		return nil
	})
	return expired, err
}
