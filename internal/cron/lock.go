package cron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 5 * time.Minute

// ErrLeaseLost means the lease expired, or was taken over, before Release.
var ErrLeaseLost = errors.New("cron lock lease lost before release")

// Lock gives one cron worker exclusive ownership of a cycle.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	DelIfValue(ctx context.Context, key, expected string) (bool, error)
}

// RedisLock is a SETNX lease tagged with a random owner token. The lease
// expires on its own if the holder dies mid-cycle.
type RedisLock struct {
	store lockStore
	key   string
	ttl   time.Duration

	mu    sync.Mutex
	token string
}

func NewRedisLock(store lockStore, key string, ttl time.Duration) (*RedisLock, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if key == "" {
		return nil, errors.New("lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{store: store, key: key, ttl: ttl}, nil
}

// Acquire reports true when this instance now holds the lease. Calling it
// again while holding the lease is a no-op.
func (l *RedisLock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.token != "" {
		return true, nil
	}
	token := uuid.NewString()
	ok, err := l.store.SetNX(ctx, l.key, token, l.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release drops the lease only while the stored token is still ours.
func (l *RedisLock) Release(ctx context.Context) error {
	l.mu.Lock()
	token := l.token
	l.token = ""
	l.mu.Unlock()
	if token == "" {
		return nil
	}

	deleted, err := l.store.DelIfValue(ctx, l.key, token)
	if err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrLeaseLost, l.key)
	}
	return nil
}
