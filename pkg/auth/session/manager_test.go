package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
)

type mockStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMockStore() *mockStore {
	return &mockStore{data: make(map[string]string)}
}

func (m *mockStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mockStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return val, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *mockStore) DelIfValue(ctx context.Context, key, expected string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data[key] != expected {
		return false, nil
	}
	delete(m.data, key)
	return true, nil
}

func (m *mockStore) AccessSessionKey(accessID string) string {
	return fmt.Sprintf("sess:%s", accessID)
}

func TestManagerGenerateAndRotate(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)

	ctx := context.Background()
	accessID := "access-123"
	userID := uuid.New()
	token, err := manager.Generate(ctx, accessID, userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if ok, err := manager.HasSession(ctx, accessID); err != nil || !ok {
		t.Fatalf("expected active session, ok=%v err=%v", ok, err)
	}

	if _, _, err := manager.Rotate(ctx, accessID, userID, "wrong"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected invalid refresh token error, got %v", err)
	}
	if _, _, err := manager.Rotate(ctx, accessID, uuid.New(), token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected foreign user to be rejected, got %v", err)
	}

	newAccessID, newToken, err := manager.Rotate(ctx, accessID, userID, token)
	if err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if _, exists := store.data[store.AccessSessionKey(accessID)]; exists {
		t.Fatalf("old access key left behind")
	}
	if ok, _ := manager.HasSession(ctx, newAccessID); !ok {
		t.Fatalf("expected rotated session to exist")
	}
	if newToken == token {
		t.Fatalf("expected a fresh refresh token")
	}
	if _, _, err := manager.Rotate(ctx, accessID, userID, token); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected redeemed token to be rejected, got %v", err)
	}
}

func TestManagerStoresOnlyDigest(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)
	token, err := manager.Generate(context.Background(), "access-9", uuid.New())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if raw := store.data[store.AccessSessionKey("access-9")]; strings.Contains(raw, token) {
		t.Fatalf("refresh token stored in clear: %s", raw)
	}
}

func TestManagerRotateRedeemsOnceUnderConcurrency(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()
	userID := uuid.New()
	token, err := manager.Generate(ctx, "access-c", userID)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := manager.Rotate(ctx, "access-c", userID, token); err == nil {
				mu.Lock()
				success++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if success != 1 {
		t.Fatalf("expected exactly one rotation, got %d", success)
	}
}

func TestManagerRevoke(t *testing.T) {
	store := newMockStore()
	manager := newManager(store, time.Hour)
	ctx := context.Background()

	if _, err := manager.Generate(ctx, "access-1", uuid.New()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := manager.Revoke(ctx, "access-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if ok, err := manager.HasSession(ctx, "access-1"); err != nil || ok {
		t.Fatalf("expected revoked session, ok=%v err=%v", ok, err)
	}
	if _, _, err := manager.Rotate(ctx, "access-1", uuid.New(), "anything"); !errors.Is(err, ErrInvalidRefreshToken) {
		t.Fatalf("expected revoked session to reject rotation, got %v", err)
	}
}
