package idempotency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/pkg/redis"
)

// Guard claims event IDs for a single consumer so redelivered Pub/Sub
// messages are handled at most once per TTL window.
//
// Claims live under `tb:idempotency:evt:<consumer>:<event_id>`.
type Guard struct {
	store    redis.IdempotencyStore
	consumer string
	ttl      time.Duration
	now      func() time.Time
}

// NewGuard binds a claim store to one consumer name.
func NewGuard(store redis.IdempotencyStore, consumer string, ttl time.Duration) (*Guard, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, consumer: consumer, ttl: ttl, now: time.Now}, nil
}

// Consumer reports the name claims are scoped to.
func (g *Guard) Consumer() string {
	return g.consumer
}

// Claim reports whether the caller now owns the event. A false result means
// another delivery already claimed it.
func (g *Guard) Claim(ctx context.Context, eventID uuid.UUID) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	return g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339Nano), g.ttl)
}

// Release drops a claim so the next redelivery can retry the event.
func (g *Guard) Release(ctx context.Context, eventID uuid.UUID) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *Guard) key(eventID uuid.UUID) (string, error) {
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+g.consumer, eventID.String()), nil
}
