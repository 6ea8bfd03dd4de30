package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/redis"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errAccessIDRequired    = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	DelIfValue(ctx context.Context, key, expected string) (bool, error)
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is the read-only surface the auth middleware needs.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// entry is stored under the access token's jti. Only a digest of the
// refresh token is kept.
type entry struct {
	UserID   uuid.UUID `json:"user_id"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
}

// Manager keeps one Redis entry per live session, keyed by access id. The
// entry outlives the access token so an expired token can still be refreshed.
type Manager struct {
	store store
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(client *redis.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}
	return newManager(client, ttl), nil
}

func newManager(s store, ttl time.Duration) *Manager {
	return &Manager{store: s, ttl: ttl, now: time.Now}
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for userID under accessID and returns its
// refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", errAccessIDRequired
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.open(ctx, accessID, userID)
}

// Rotate swaps the session under oldAccessID for a new one. The old entry
// is removed with a compare-and-delete so a refresh token is redeemed at
// most once even under concurrent calls.
func (m *Manager) Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, refreshToken string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(refreshToken) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	key := m.store.AccessSessionKey(oldAccessID)
	raw, err := m.store.Get(ctx, key)
	if errors.Is(err, goredis.Nil) {
		return "", "", ErrInvalidRefreshToken
	}
	if err != nil {
		return "", "", err
	}
	var current entry
	if json.Unmarshal([]byte(raw), &current) != nil ||
		current.UserID != userID ||
		!security.SecretsEqual(current.Digest, security.DigestToken(refreshToken)) {
		return "", "", ErrInvalidRefreshToken
	}

	redeemed, err := m.store.DelIfValue(ctx, key, raw)
	if err != nil {
		return "", "", err
	}
	if !redeemed {
		return "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.open(ctx, accessID, userID)
	if err != nil {
		return "", "", err
	}
	return accessID, token, nil
}

// Revoke ends the session under accessID. Unknown ids are not an error.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errAccessIDRequired
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errAccessIDRequired
	}
	_, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, goredis.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	token, err := security.NewOpaqueToken(refreshTokenBytes)
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(entry{UserID: userID, Digest: security.DigestToken(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}
