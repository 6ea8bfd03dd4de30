// Package reservations is the reservation transaction engine: it books an
// event table and its add-ons in one locked transaction and drives the
// payment lifecycle to PAID, EXPIRED or FAILED.
package reservations

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/inventory"
	"github.com/angelmondragon/tablebook-backend/internal/pricing"
	"github.com/angelmondragon/tablebook-backend/internal/tickets"
	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/gateway"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/pagination"
)

const maxLineItems = 50

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
	WithTxRetry(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Settings carries the payment-mode configuration.
type Settings struct {
	Mode          enums.PaymentMode
	Currency      string
	OperatorPhone string
	ChatBaseURL   string
}

// ServiceParams wires the reservation engine.
type ServiceParams struct {
	Logger   *logger.Logger
	DB       txRunner
	Repo     *Repository
	Users    *users.Repository
	Tickets  *tickets.Repository
	Ledger   *inventory.Ledger
	Issuer   *tickets.Issuer
	Outbox   outbox.Emitter
	Gateway  gateway.InvoiceCreator
	Metrics  *metrics.ReservationMetrics
	Settings Settings
}

// Service implements reservation creation and its lifecycle transitions.
type Service struct {
	logg     *logger.Logger
	db       txRunner
	repo     *Repository
	users    *users.Repository
	tickets  *tickets.Repository
	ledger   *inventory.Ledger
	issuer   *tickets.Issuer
	outbox   outbox.Emitter
	gateway  gateway.InvoiceCreator
	metrics  *metrics.ReservationMetrics
	settings Settings
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner required")
	case params.Repo == nil:
		return nil, fmt.Errorf("reservations repository required")
	case params.Users == nil:
		return nil, fmt.Errorf("users repository required")
	case params.Tickets == nil:
		return nil, fmt.Errorf("tickets repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Issuer == nil:
		return nil, fmt.Errorf("ticket issuer required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	settings := params.Settings
	if !settings.Mode.IsValid() {
		return nil, fmt.Errorf("unknown payment mode %q", settings.Mode)
	}
	if settings.Mode == enums.PaymentModeGateway && params.Gateway == nil {
		return nil, fmt.Errorf("gateway client required in gateway mode")
	}
	if settings.Mode == enums.PaymentModeManual && strings.TrimSpace(settings.OperatorPhone) == "" {
		return nil, fmt.Errorf("operator phone required in manual mode")
	}
	if settings.ChatBaseURL == "" {
		settings.ChatBaseURL = "https://wa.me"
	}
	return &Service{
		logg:     params.Logger,
		db:       params.DB,
		repo:     params.Repo,
		users:    params.Users,
		tickets:  params.Tickets,
		ledger:   params.Ledger,
		issuer:   params.Issuer,
		outbox:   params.Outbox,
		gateway:  params.Gateway,
		metrics:  params.Metrics,
		settings: settings,
		now:      time.Now,
	}, nil
}

// Mode returns the configured payment mode.
func (s *Service) Mode() enums.PaymentMode {
	return s.settings.Mode
}

// Create books the event table and add-ons atomically. In gateway mode the
// invoice is requested after the booking commits; if that fails the booking
// is compensated and no reservation survives.
func (s *Service) Create(ctx context.Context, input CreateInput) (*CreateResult, error) {
	if err := validateCreate(input); err != nil {
		s.reject(err)
		return nil, err
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id":        input.UserID.String(),
		"event_table_id": input.EventTableID.String(),
	})

	var (
		reservation  *models.Reservation
		eventTable   *models.EventTable
		buyer        *models.User
		productNames = map[string]string{}
	)
	mode := s.settings.Mode
	actor := &outbox.ActorRef{UserID: input.UserID, Role: string(enums.UserRoleUser)}

	err := s.db.WithTxRetry(ctx, func(tx *gorm.DB) error {
		user, err := s.users.WithTx(tx).FindByID(ctx, input.UserID)
		if err != nil {
			if db.IsNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
		}

		et, err := s.ledger.LockTable(ctx, tx, input.EventTableID)
		if err != nil {
			return err
		}
		if et.Status != enums.EventTableStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeConflict, "table is no longer available")
		}
		if !et.Event.IsActive {
			return pkgerrors.New(pkgerrors.CodeConflict, "event is not open for booking")
		}
		if input.GuestCount > et.Table.Capacity {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "guest count exceeds table capacity").
				WithDetails(map[string]any{"capacity": et.Table.Capacity, "requested": input.GuestCount})
		}

		productIDs := make([]uuid.UUID, 0, len(input.Items))
		for _, item := range input.Items {
			productIDs = append(productIDs, item.ProductID)
		}
		products, err := s.ledger.LockProducts(ctx, tx, productIDs)
		if err != nil {
			return err
		}

		lines := make([]pricing.Line, 0, len(input.Items))
		for _, item := range input.Items {
			lines = append(lines, pricing.Line{
				ProductID: item.ProductID,
				UnitPrice: products[item.ProductID].Price,
				Quantity:  item.Quantity,
			})
		}
		quote, err := pricing.ComputeTotal(et.Table.Price, lines)
		if err != nil {
			return err
		}

		if err := s.ledger.ReserveTable(ctx, tx, et); err != nil {
			return err
		}
		items := make([]models.OrderItem, 0, len(quote.Lines))
		for _, line := range quote.Lines {
			product := products[line.ProductID]
			if err := s.ledger.DecrementStock(ctx, tx, product, line.Quantity); err != nil {
				return err
			}
			productNames[line.ProductID.String()] = product.Name
			items = append(items, models.OrderItem{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Subtotal:  line.Subtotal,
			})
		}

		res := &models.Reservation{
			UserID:        input.UserID,
			EventTableID:  et.ID,
			GuestCount:    input.GuestCount,
			ArrivalTime:   input.ArrivalTime,
			TablePrice:    quote.TablePrice,
			TotalAmount:   quote.Total,
			PaymentStatus: mode.InitialStatus(),
			PaymentMode:   mode,
			OrderItems:    items,
		}
		if err := s.repo.WithTx(tx).Create(ctx, res); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist reservation")
		}

		if mode == enums.PaymentModeManual {
			if err := s.emit(ctx, tx, enums.EventReservationCreated, res, et, "", SourceCheckout, nil, actor); err != nil {
				return err
			}
		}

		reservation, eventTable, buyer = res, et, user
		return nil
	})
	if err != nil {
		s.reject(err)
		return nil, typed(err, "create reservation")
	}

	result := &CreateResult{Payment: PaymentInstructions{Mode: mode}}
	if mode == enums.PaymentModeGateway {
		invoice, err := s.openInvoice(ctx, reservation, eventTable, buyer, actor)
		if err != nil {
			s.compensate(ctx, reservation.ID)
			s.reject(err)
			return nil, err
		}
		reservation.InvoiceID = &invoice.ID
		reservation.Invoice = invoice
		result.Payment.InvoiceURL = invoice.InvoiceURL
		result.Payment.ExternalID = invoice.ExternalID
		result.Payment.Message = "Reservation recorded. Complete payment at the invoice link."
	} else {
		message, link := OperatorRequest(s.settings.ChatBaseURL, s.settings.OperatorPhone, s.settings.Currency, buyer, reservation, eventTable, productNames)
		result.Payment.OperatorMessage = message
		result.Payment.OperatorURL = link
		result.Payment.Message = "Reservation recorded. Contact the venue to complete payment."
	}

	reservation.EventTable = eventTable
	for i := range reservation.OrderItems {
		name := productNames[reservation.OrderItems[i].ProductID.String()]
		reservation.OrderItems[i].Product = &models.Product{ID: reservation.OrderItems[i].ProductID, Name: name}
	}
	result.Reservation = toView(reservation)

	s.metrics.IncCreated(string(mode))
	s.logg.Info(s.logg.WithReservationID(ctx, reservation.ID.String()), "reservation created")
	return result, nil
}

func (s *Service) openInvoice(ctx context.Context, res *models.Reservation, eventTable *models.EventTable, buyer *models.User, actor *outbox.ActorRef) (*models.Invoice, error) {
	externalID := uuid.NewString()
	description := fmt.Sprintf("Reservation %s", res.ID)
	if eventTable.Event != nil && eventTable.Table != nil {
		description = fmt.Sprintf("%s, table %s, %d guests", eventTable.Event.Name, eventTable.Table.Name, res.GuestCount)
	}
	created, err := s.gateway.CreateInvoice(ctx, gateway.InvoiceRequest{
		ExternalID:  externalID,
		Amount:      res.TotalAmount,
		Currency:    s.settings.Currency,
		Description: description,
		PayerEmail:  buyer.Email,
	})
	if err != nil {
		return nil, typedAs(err, pkgerrors.CodeExternalService, "create gateway invoice")
	}

	invoice := &models.Invoice{
		ExternalID: externalID,
		UserID:     res.UserID,
		Amount:     res.TotalAmount,
		Status:     enums.InvoiceStatusPending,
		InvoiceURL: created.InvoiceURL,
		ExpiresAt:  created.ExpiresAt,
	}
	if created.ProviderID != "" {
		providerID := created.ProviderID
		invoice.ProviderInvoiceID = &providerID
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateInvoice(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "persist invoice")
		}
		locked, err := repo.LockByID(ctx, res.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock reservation")
		}
		linked, err := repo.LinkInvoice(ctx, locked.ID, invoice.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "link invoice")
		}
		if !linked {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation closed before invoice was linked")
		}
		locked.InvoiceID = &invoice.ID
		return s.emit(ctx, tx, enums.EventReservationCreated, locked, eventTable, "", SourceCheckout, nil, actor)
	})
	if err != nil {
		return nil, typed(err, "record invoice")
	}
	return invoice, nil
}

// compensate undoes a gateway-mode booking whose invoice could not be opened.
func (s *Service) compensate(ctx context.Context, reservationID uuid.UUID) {
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		res, err := repo.LockByID(ctx, reservationID)
		if err != nil {
			if db.IsNotFound(err) {
				return nil
			}
			return err
		}
		if res.PaymentStatus != enums.ReservationStatusPending || res.InvoiceID != nil {
			return nil
		}
		if _, err := s.releaseInventoryTx(ctx, tx, res); err != nil {
			return err
		}
		return repo.Delete(ctx, res.ID)
	})
	if err != nil {
		s.logg.Error(s.logg.WithReservationID(ctx, reservationID.String()), "failed to compensate reservation after gateway error; expiry sweep will release it", err)
	}
}

// ConfirmManualPayment lets an admin settle an unpaid reservation. Repeating
// the call on a PAID reservation returns the existing ticket.
func (s *Service) ConfirmManualPayment(ctx context.Context, reservationID uuid.UUID, actor Actor) (*SettlementResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}

	var (
		res    *models.Reservation
		ticket *models.Ticket
	)
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := s.lockInvoiceFor(ctx, repo, reservationID)
		if err != nil {
			return err
		}
		locked, err := repo.LockByID(ctx, reservationID)
		if err != nil {
			return notFoundOr(err, "reservation not found")
		}
		if !locked.PaymentStatus.AwaitingPayment() && locked.PaymentStatus != enums.ReservationStatusPaid {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is closed").
				WithDetails(map[string]any{"status": locked.PaymentStatus})
		}
		ticket, err = s.SettleTx(ctx, tx, locked, SourceAdmin, ref)
		if err != nil {
			return err
		}
		if invoice != nil && !invoice.Status.IsTerminal() {
			paidAt := s.now().UTC()
			if err := repo.UpdateInvoiceStatus(ctx, invoice.ID, enums.InvoiceStatusPaid, &paidAt); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark invoice paid")
			}
		}
		res = locked
		return nil
	})
	if err != nil {
		return nil, typed(err, "confirm payment")
	}

	full, err := s.repo.FindByID(ctx, res.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload reservation")
	}
	result := &SettlementResult{Reservation: toView(full)}
	if ticket != nil {
		id := ticket.ID
		result.TicketID = &id
		result.TicketCode = ticket.TicketCode
	}
	return result, nil
}

// Cancel is the admin override: it releases whatever the reservation still
// holds, closes it as FAILED with a reason and revokes any ticket.
func (s *Service) Cancel(ctx context.Context, reservationID uuid.UUID, actor Actor, reason string) (*ReservationView, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "canceled by admin"
	}
	ref := &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)}

	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		invoice, err := s.lockInvoiceFor(ctx, repo, reservationID)
		if err != nil {
			return err
		}
		res, err := repo.LockByID(ctx, reservationID)
		if err != nil {
			return notFoundOr(err, "reservation not found")
		}
		if !res.PaymentStatus.HoldsInventory() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reservation is already closed").
				WithDetails(map[string]any{"status": res.PaymentStatus})
		}

		eventTable, err := s.releaseInventoryTx(ctx, tx, res)
		if err != nil {
			return err
		}
		now := s.now().UTC()
		prev := res.PaymentStatus
		ok, err := repo.UpdateStatus(ctx, res.ID, prev, enums.ReservationStatusFailed, map[string]any{
			"closed_at":     now,
			"cancel_reason": reason,
			"updated_at":    now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "cancel reservation")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "reservation changed concurrently")
		}
		if _, err := s.tickets.WithTx(tx).RevokeForReservation(ctx, res.ID, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "revoke tickets")
		}
		if invoice != nil && !invoice.Status.IsTerminal() {
			if err := repo.UpdateInvoiceStatus(ctx, invoice.ID, enums.InvoiceStatusFailed, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "fail invoice")
			}
		}
		res.PaymentStatus = enums.ReservationStatusFailed
		res.ClosedAt = &now
		res.CancelReason = &reason
		if err := s.emit(ctx, tx, enums.EventReservationCanceled, res, eventTable, prev, SourceAdmin, &reason, ref); err != nil {
			return err
		}
		s.metrics.IncTransition(string(enums.ReservationStatusFailed), SourceAdmin)
		return nil
	})
	if err != nil {
		return nil, typed(err, "cancel reservation")
	}

	s.logg.Info(s.logg.WithReservationID(ctx, reservationID.String()), "reservation canceled by admin")
	full, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "reload reservation")
	}
	view := toView(full)
	return &view, nil
}

// Get returns one reservation. Non-admins only see their own.
func (s *Service) Get(ctx context.Context, reservationID uuid.UUID, actor Actor) (*ReservationView, error) {
	res, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		return nil, notFoundOr(err, "reservation not found")
	}
	if !actor.IsAdmin() && res.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
	}
	view := toView(res)
	return &view, nil
}

// ListMine returns one page of the caller's reservations newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ReservationPage, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForUser(ctx, userID, cursor, pagination.LimitWithBuffer(limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reservations")
	}

	rows, next := pagination.Trim(rows, limit, func(r models.Reservation) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	page := &ReservationPage{Items: make([]ReservationView, 0, len(rows)), NextCursor: next}
	for i := range rows {
		page.Items = append(page.Items, toView(&rows[i]))
	}
	return page, nil
}

func (s *Service) lockInvoiceFor(ctx context.Context, repo *Repository, reservationID uuid.UUID) (*models.Invoice, error) {
	invoiceID, err := repo.PeekInvoiceID(ctx, reservationID)
	if err != nil {
		return nil, notFoundOr(err, "reservation not found")
	}
	if invoiceID == nil {
		return nil, nil
	}
	invoice, err := repo.LockInvoiceByID(ctx, *invoiceID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lock invoice")
	}
	return invoice, nil
}

func (s *Service) reject(err error) {
	code := pkgerrors.CodeInternal
	if typedErr := pkgerrors.As(err); typedErr != nil {
		code = typedErr.Code()
	}
	s.metrics.IncRejected(string(code))
}

func validateCreate(input CreateInput) error {
	if input.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if input.EventTableID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "event_table_id is required")
	}
	if input.GuestCount <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest_count must be a positive integer")
	}
	if input.ArrivalTime != nil {
		if _, err := time.Parse("15:04:05", *input.ArrivalTime); err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "arrival_time must use HH:MM:SS")
		}
	}
	if len(input.Items) > maxLineItems {
		return pkgerrors.New(pkgerrors.CodeValidation, "too many order items")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "order item product_id is required").
				WithDetails(map[string]any{"index": i})
		}
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "order item quantity must be positive").
				WithDetails(map[string]any{"index": i})
		}
	}
	return nil
}

func typed(err error, msg string) error {
	return typedAs(err, pkgerrors.CodeInternal, msg)
}

func typedAs(err error, code pkgerrors.Code, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(code, err, msg)
}

func notFoundOr(err error, msg string) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return typed(err, msg)
}
