package tickets

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

// TicketView is the customer-facing ticket projection.
type TicketView struct {
	ID            uuid.UUID `json:"id"`
	TicketCode    string    `json:"ticket_code"`
	ReservationID uuid.UUID `json:"reservation_id"`
	EventID       uuid.UUID `json:"event_id"`
	EventName     string    `json:"event_name"`
	EventStartsAt time.Time `json:"event_starts_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Service serves ticket reads for the API.
type Service struct {
	repo *Repository
	now  func() time.Time
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// ListMine returns the caller's usable tickets.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID) ([]TicketView, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.repo.ListActiveForUser(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tickets")
	}
	out := make([]TicketView, 0, len(rows))
	for _, row := range rows {
		out = append(out, toView(row))
	}
	return out, nil
}

func toView(row models.Ticket) TicketView {
	view := TicketView{
		ID:            row.ID,
		TicketCode:    row.TicketCode,
		ReservationID: row.ReservationID,
		EventID:       row.EventID,
		ExpiresAt:     row.ExpiresAt,
	}
	if row.Event != nil {
		view.EventName = row.Event.Name
		view.EventStartsAt = row.Event.StartsAt
	}
	return view
}
