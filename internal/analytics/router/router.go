package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/angelmondragon/tablebook-backend/internal/analytics/types"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

var ErrUnsupportedEventType = errors.New("unsupported analytics event type")

// Writer delivers BigQuery rows produced by analytics projections.
type Writer interface {
	InsertReservationEvent(ctx context.Context, row types.ReservationEventRow) error
}

// Route projects one event type.
type Route interface {
	Handle(ctx context.Context, envelope types.Envelope) error
}

type typedRoute[T any] func(ctx context.Context, envelope types.Envelope, payload *T) error

func (fn typedRoute[T]) Handle(ctx context.Context, envelope types.Envelope) error {
	raw := bytes.TrimSpace(envelope.Payload)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return fmt.Errorf("empty payload for %s", envelope.EventType)
	}
	payload := new(T)
	if err := json.Unmarshal(raw, payload); err != nil {
		return fmt.Errorf("decode %s payload: %w", envelope.EventType, err)
	}
	return fn(ctx, envelope, payload)
}

// Typed builds a Route that decodes the payload into T before calling fn.
func Typed[T any](fn func(ctx context.Context, envelope types.Envelope, payload *T) error) Route {
	return typedRoute[T](fn)
}

// Router dispatches envelopes by event type.
type Router struct {
	routes map[enums.OutboxEventType]Route
}

// NewRouter registers the reservation lifecycle projection for every
// reservation event. Entries in overrides replace or extend the defaults.
func NewRouter(writer Writer, logg *logger.Logger, overrides map[enums.OutboxEventType]Route) (*Router, error) {
	if writer == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}

	lifecycle := Typed(newReservationLifecycle(writer, logg).project)
	routes := make(map[enums.OutboxEventType]Route, len(reservationEvents)+len(overrides))
	for _, event := range reservationEvents {
		routes[event] = lifecycle
	}
	for event, route := range overrides {
		if route == nil {
			return nil, fmt.Errorf("nil route for %s", event)
		}
		routes[event] = route
	}
	return &Router{routes: routes}, nil
}

func (r *Router) Handle(ctx context.Context, envelope types.Envelope) error {
	route, ok := r.routes[envelope.EventType]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedEventType, envelope.EventType)
	}
	return route.Handle(ctx, envelope)
}
