package auth

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tablebook-backend/pkg/db/models"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

type memoryResetStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryResetStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	return nil
}

func (m *memoryResetStore) GetDel(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	delete(m.data, key)
	return value, nil
}

func (m *memoryResetStore) PasswordResetKey(digest string) string {
	return "pwreset:" + digest
}

func TestPasswordResetFlow(t *testing.T) {
	client, conn := dbtest.Client(t)
	logg := logger.New(logger.Options{ServiceName: "auth-test", Output: io.Discard})
	store := &memoryResetStore{data: map[string]string{}}
	userRepo := users.NewRepository(conn)

	hash, err := security.HashPassword("old-password", fastArgon)
	require.NoError(t, err)
	user, err := userRepo.Create(context.Background(), users.CreateUserDTO{Name: "Ana", Email: "ana@example.com", PasswordHash: hash})
	require.NoError(t, err)

	svc, err := NewPasswordResetService(PasswordResetParams{
		DB:             client,
		Users:          userRepo,
		Store:          store,
		Outbox:         outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:         logg,
		PasswordConfig: fastArgon,
		TokenTTL:       time.Hour,
		PublicURL:      "https://tablebook.example.com/",
	})
	require.NoError(t, err)

	require.NoError(t, svc.RequestReset(context.Background(), "nobody@example.com"))
	require.Empty(t, store.data)

	require.NoError(t, svc.RequestReset(context.Background(), "ANA@example.com"))
	require.Len(t, store.data, 1)

	var event models.OutboxEvent
	require.NoError(t, conn.Where("event_type = ?", enums.EventPasswordResetRequested).First(&event).Error)
	require.Equal(t, user.ID, event.AggregateID)

	var env outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(event.Payload, &env))
	var payload payloads.PasswordResetRequestedEvent
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "ana@example.com", payload.Email)
	const prefix = "https://tablebook.example.com/reset-password/"
	require.True(t, strings.HasPrefix(payload.ResetURL, prefix))
	token := strings.TrimPrefix(payload.ResetURL, prefix)

	require.True(t, pkgerrors.Is(svc.ResetPassword(context.Background(), token, "short"), pkgerrors.CodeValidation))
	require.NoError(t, svc.ResetPassword(context.Background(), token, "brand-new-password"))

	reloaded, err := userRepo.FindByID(context.Background(), user.ID)
	require.NoError(t, err)
	ok, err := security.VerifyPassword("brand-new-password", reloaded.PasswordHash)
	require.NoError(t, err)
	require.True(t, ok)

	err = svc.ResetPassword(context.Background(), token, "another-password")
	require.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}
