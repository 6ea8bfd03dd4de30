package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/tablebook-backend/pkg/redis"
)

// ReplayGuard remembers callbacks that were already applied so gateway
// redeliveries short-circuit before touching the database.
type ReplayGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewReplayGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*ReplayGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if scope == "" {
		return nil, errors.New("scope is required")
	}
	return &ReplayGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports true when the key was seen before.
func (g *ReplayGuard) CheckAndMark(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("replay key is required")
	}
	set, err := g.store.SetNX(ctx, g.store.IdempotencyKey(g.scope, key), "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set replay key: %w", err)
	}
	return !set, nil
}

// Forget clears a key so a failed callback can be retried.
func (g *ReplayGuard) Forget(ctx context.Context, key string) error {
	if key == "" {
		return errors.New("replay key is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.scope, key))
}
