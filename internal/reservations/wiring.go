package reservations

import (
	"fmt"

	"github.com/angelmondragon/tablebook-backend/internal/inventory"
	"github.com/angelmondragon/tablebook-backend/internal/tickets"
	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/gateway"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/metrics"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
)

// Engine bundles the reservation service with the collaborators other
// processes share with it.
type Engine struct {
	Service *Service
	Repo    *Repository
	Tickets *tickets.Repository
	Ledger  *inventory.Ledger
	Outbox  *outbox.Service
}

// NewEngine assembles the reservation engine from configuration. The gateway
// client is only built in gateway mode.
func NewEngine(cfg *config.Config, client *db.Client, logg *logger.Logger, m *metrics.ReservationMetrics) (*Engine, error) {
	conn := client.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	ticketRepo := tickets.NewRepository(conn)
	issuer, err := tickets.NewIssuer(ticketRepo, emitter, logg, m, cfg.Reservation.TicketExpiryBuffer)
	if err != nil {
		return nil, fmt.Errorf("ticket issuer: %w", err)
	}

	mode := enums.PaymentMode(cfg.Reservation.Mode())
	var invoices gateway.InvoiceCreator
	if mode == enums.PaymentModeGateway {
		gw, err := gateway.NewClient(cfg.Gateway, logg, nil)
		if err != nil {
			return nil, fmt.Errorf("payment gateway: %w", err)
		}
		invoices = gw
	}

	repo := NewRepository(conn)
	ledger := inventory.NewLedger()
	svc, err := NewService(ServiceParams{
		Logger:  logg,
		DB:      client,
		Repo:    repo,
		Users:   users.NewRepository(conn),
		Tickets: ticketRepo,
		Ledger:  ledger,
		Issuer:  issuer,
		Outbox:  emitter,
		Gateway: invoices,
		Metrics: m,
		Settings: Settings{
			Mode:          mode,
			Currency:      cfg.Reservation.Currency,
			OperatorPhone: cfg.Manual.OperatorPhone,
			ChatBaseURL:   cfg.Manual.ChatBaseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &Engine{
		Service: svc,
		Repo:    repo,
		Tickets: ticketRepo,
		Ledger:  ledger,
		Outbox:  emitter,
	}, nil
}
