// Package payments applies gateway payment notifications to invoices and
// their reservations.
package payments

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/reservations"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

// Outcome describes what a notification did.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeAlreadyApplied Outcome = "already_applied"
	OutcomeUnknownInvoice Outcome = "unknown_invoice"
	OutcomeReplayed       Outcome = "replayed"
	OutcomeLatePayment    Outcome = "late_payment"
)

// Notification is the gateway callback body plus its authenticity token.
type Notification struct {
	ExternalID string
	Status     string
	Token      string
}

// Result is returned to the webhook controller.
type Result struct {
	Outcome           Outcome                 `json:"outcome"`
	ExternalID        string                  `json:"external_id"`
	InvoiceStatus     enums.InvoiceStatus     `json:"invoice_status,omitempty"`
	ReservationID     string                  `json:"reservation_id,omitempty"`
	ReservationStatus enums.ReservationStatus `json:"payment_status,omitempty"`
	TicketCode        string                  `json:"ticket_code,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitioner interface {
	SettleTx(ctx context.Context, tx *gorm.DB, res *models.Reservation, source string, actor *outbox.ActorRef) (*models.Ticket, error)
	RevertTx(ctx context.Context, tx *gorm.DB, res *models.Reservation, target enums.ReservationStatus, source string, reason *string, actor *outbox.ActorRef) (bool, error)
}

type ServiceParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Repo          *reservations.Repository
	Transitions   transitioner
	CallbackToken string
	Guard         *ReplayGuard
	Metrics       *metrics.ReservationMetrics
}

// Service is the payment notification handler.
type Service struct {
	logg          *logger.Logger
	db            txRunner
	repo          *reservations.Repository
	transitions   transitioner
	callbackToken string
	guard         *ReplayGuard
	metrics       *metrics.ReservationMetrics
	now           func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("reservations repository required")
	case params.Transitions == nil:
		return nil, fmt.Errorf("reservation transitions required")
	case strings.TrimSpace(params.CallbackToken) == "":
		return nil, fmt.Errorf("callback token required")
	}
	return &Service{
		logg:          params.Logger,
		db:            params.DB,
		repo:          params.Repo,
		transitions:   params.Transitions,
		callbackToken: params.CallbackToken,
		guard:         params.Guard,
		metrics:       params.Metrics,
		now:           time.Now,
	}, nil
}

// ParseStatus maps a gateway status onto the invoice lifecycle. SETTLED is
// treated as PAID.
func ParseStatus(raw string) (enums.InvoiceStatus, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SETTLED":
		return enums.InvoiceStatusPaid, nil
	case "EXPIRED":
		return enums.InvoiceStatusExpired, nil
	case "FAILED":
		return enums.InvoiceStatusFailed, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment status").
			WithDetails(map[string]any{"status": raw})
	}
}

// Authenticate checks a callback token against the configured secret.
func (s *Service) Authenticate(token string) error {
	if !security.SecretsEqual(s.callbackToken, token) {
		s.metrics.IncCallback("unknown", "rejected")
		return pkgerrors.New(pkgerrors.CodeForbidden, "invalid callback token")
	}
	return nil
}

// HandleNotification applies one callback. It is safe under at-least-once
// delivery: a repeated notification finds the invoice already terminal and
// changes nothing.
func (s *Service) HandleNotification(ctx context.Context, n Notification) (*Result, error) {
	if err := s.Authenticate(n.Token); err != nil {
		return nil, err
	}
	externalID := strings.TrimSpace(n.ExternalID)
	if externalID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external_id is required")
	}
	status, err := ParseStatus(n.Status)
	if err != nil {
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"external_id":    externalID,
		"invoice_status": status,
	})

	replayKey := externalID + ":" + string(status)
	if s.guard != nil {
		seen, err := s.guard.CheckAndMark(ctx, replayKey)
		if err != nil {
			s.logg.Warn(ctx, "webhook replay guard unavailable; relying on invoice state")
		} else if seen {
			s.metrics.IncCallback(string(status), string(OutcomeReplayed))
			return &Result{Outcome: OutcomeReplayed, ExternalID: externalID, InvoiceStatus: status}, nil
		}
	}

	result, err := s.apply(ctx, externalID, status)
	if err != nil {
		if s.guard != nil {
			if forgetErr := s.guard.Forget(ctx, replayKey); forgetErr != nil {
				s.logg.Error(ctx, "failed to clear webhook replay key", forgetErr)
			}
		}
		s.metrics.IncCallback(string(status), "error")
		return nil, err
	}

	s.metrics.IncCallback(string(status), string(result.Outcome))
	s.logg.Info(s.logg.WithField(ctx, "outcome", result.Outcome), "payment notification handled")
	return result, nil
}

func (s *Service) apply(ctx context.Context, externalID string, status enums.InvoiceStatus) (*Result, error) {
	result := &Result{ExternalID: externalID, InvoiceStatus: status}
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := repo.LockInvoiceByExternalID(ctx, externalID)
		if err != nil {
			if db.IsNotFound(err) {
				result.Outcome = OutcomeUnknownInvoice
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock invoice")
		}
		if invoice.Status.IsTerminal() {
			result.Outcome = OutcomeAlreadyApplied
			result.InvoiceStatus = invoice.Status
			return nil
		}

		res, err := repo.LockByInvoiceID(ctx, invoice.ID)
		if err != nil && !db.IsNotFound(err) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock reservation")
		}

		var paidAt *time.Time
		if status == enums.InvoiceStatusPaid {
			now := s.now().UTC()
			paidAt = &now
		}
		if err := repo.UpdateInvoiceStatus(ctx, invoice.ID, status, paidAt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update invoice status")
		}
		result.Outcome = OutcomeApplied
		if res == nil {
			return nil
		}
		result.ReservationID = res.ID.String()

		switch status {
		case enums.InvoiceStatusPaid:
			if !res.PaymentStatus.AwaitingPayment() && res.PaymentStatus != enums.ReservationStatusPaid {
				result.Outcome = OutcomeLatePayment
				result.ReservationStatus = res.PaymentStatus
				s.logg.Warn(s.logg.WithReservationID(ctx, res.ID.String()), "payment received for a closed reservation; manual refund required")
				return nil
			}
			ticket, err := s.transitions.SettleTx(ctx, tx, res, reservations.SourceGatewayCallback, nil)
			if err != nil {
				return err
			}
			if ticket != nil {
				result.TicketCode = ticket.TicketCode
			}
		default:
			target := enums.ReservationStatusExpired
			if status == enums.InvoiceStatusFailed {
				target = enums.ReservationStatusFailed
			}
			if _, err := s.transitions.RevertTx(ctx, tx, res, target, reservations.SourceGatewayCallback, nil, nil); err != nil {
				return err
			}
		}
		result.ReservationStatus = res.PaymentStatus
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "apply payment notification")
	}
	return result, nil
}
