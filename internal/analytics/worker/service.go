package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/internal/analytics/router"
	"github.com/angelmondragon/tablebook-backend/internal/analytics/types"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
)

// ConsumerName scopes idempotency claims for the analytics worker.
const ConsumerName = "analytics"

// Handler receives decoded envelopes.
type Handler interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type HandlerFunc func(ctx context.Context, envelope types.Envelope) error

func (fn HandlerFunc) Handle(ctx context.Context, envelope types.Envelope) error {
	if fn == nil {
		return nil
	}
	return fn(ctx, envelope)
}

type messageSource interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type eventClaimer interface {
	Claim(ctx context.Context, eventID uuid.UUID) (bool, error)
	Release(ctx context.Context, eventID uuid.UUID) error
}

// disposition tells Pub/Sub whether to drop or redeliver a message.
type disposition int

const (
	ack disposition = iota
	redeliver
)

// Service feeds reservation events from the analytics subscription into the
// handler, claiming each event id in Redis so redeliveries are written once.
type Service struct {
	subscription messageSource
	handler      Handler
	claims       eventClaimer
	logg         *logger.Logger
}

func NewService(subscription messageSource, handler Handler, claims eventClaimer, logg *logger.Logger) (*Service, error) {
	switch {
	case subscription == nil:
		return nil, errors.New("analytics subscription is required")
	case handler == nil:
		return nil, errors.New("analytics handler is required")
	case claims == nil:
		return nil, errors.New("idempotency guard is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Service{subscription: subscription, handler: handler, claims: claims, logg: logg}, nil
}

// Run blocks on the subscription until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	return s.subscription.Receive(ctx, func(msgCtx context.Context, msg *gcppubsub.Message) {
		switch s.process(msgCtx, msg) {
		case redeliver:
			msg.Nack()
		default:
			msg.Ack()
		}
	})
}

// process never asks for redelivery of a message it cannot parse; only
// transient failures (Redis, the sink) are retried.
func (s *Service) process(ctx context.Context, msg *gcppubsub.Message) disposition {
	ctx = s.logg.WithField(ctx, "message_id", msg.ID)

	envelope, eventID, err := decodeMessage(msg)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping malformed analytics message")
		return ack
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"event_id":     envelope.EventID,
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
		"occurred_at":  envelope.OccurredAt.Format(time.RFC3339Nano),
	})

	claimed, err := s.claims.Claim(ctx, eventID)
	if err != nil {
		s.logg.Error(ctx, "claim analytics event", err)
		return redeliver
	}
	if !claimed {
		s.logg.Debug(ctx, "analytics event already recorded")
		return ack
	}

	err = s.handler.Handle(ctx, envelope)
	switch {
	case err == nil:
		s.logg.Info(ctx, "analytics event recorded")
		return ack
	case errors.Is(err, router.ErrUnsupportedEventType):
		s.logg.Debug(ctx, "event type has no analytics projection")
		return ack
	}

	s.logg.Error(ctx, "record analytics event", err)
	if relErr := s.claims.Release(ctx, eventID); relErr != nil {
		s.logg.Error(ctx, "release analytics claim", relErr)
	}
	return redeliver
}

// decodeMessage resolves routing from message attributes and identity from
// the stored envelope, falling back to the publisher's attributes for events
// written before the envelope carried them.
func decodeMessage(msg *gcppubsub.Message) (types.Envelope, uuid.UUID, error) {
	stored, err := outbox.DecodeEnvelope(msg.Data)
	if err != nil {
		return types.Envelope{}, uuid.Nil, err
	}

	eventType, err := enums.ParseOutboxEventType(attribute(msg, "event_type"))
	if err != nil {
		return types.Envelope{}, uuid.Nil, fmt.Errorf("event_type: %w", err)
	}
	aggregateType, err := enums.ParseOutboxAggregateType(attribute(msg, "aggregate_type"))
	if err != nil {
		return types.Envelope{}, uuid.Nil, fmt.Errorf("aggregate_type: %w", err)
	}
	aggregateID := attribute(msg, "aggregate_id")
	if aggregateID == "" {
		return types.Envelope{}, uuid.Nil, errors.New("aggregate_id missing")
	}

	rawID := strings.TrimSpace(stored.EventID)
	if rawID == "" {
		rawID = attribute(msg, "event_id")
	}
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		return types.Envelope{}, uuid.Nil, fmt.Errorf("event_id %q: %w", rawID, err)
	}

	occurredAt := stored.OccurredAt
	if occurredAt.IsZero() {
		if parsed, err := time.Parse(time.RFC3339Nano, attribute(msg, "created_at")); err == nil {
			occurredAt = parsed
		}
	}

	envelope := types.Envelope{
		EventID:       eventID.String(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt.UTC(),
		Payload:       stored.Data,
	}
	if stored.Actor != nil {
		envelope.ActorID = stored.Actor.UserID
		envelope.ActorRole = stored.Actor.Role
	}
	return envelope, eventID, nil
}

func attribute(msg *gcppubsub.Message, key string) string {
	return strings.TrimSpace(msg.Attributes[key])
}
