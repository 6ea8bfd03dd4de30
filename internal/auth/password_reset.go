package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox"
	"github.com/angelmondragon/tablebook-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

const resetTokenBytes = 32

// PasswordResetService issues single-use reset links and applies them.
type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
}

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	PasswordResetKey(digest string) string
}

// PasswordResetParams wires the reset flow.
type PasswordResetParams struct {
	DB             txRunner
	Users          *users.Repository
	Store          resetStore
	Outbox         outbox.Emitter
	Logger         *logger.Logger
	PasswordConfig config.PasswordConfig
	TokenTTL       time.Duration
	PublicURL      string
}

type passwordResetService struct {
	db          txRunner
	users       *users.Repository
	store       resetStore
	outbox      outbox.Emitter
	logg        *logger.Logger
	passwordCfg config.PasswordConfig
	ttl         time.Duration
	publicURL   string
	now         func() time.Time
}

func NewPasswordResetService(params PasswordResetParams) (PasswordResetService, error) {
	switch {
	case params.DB == nil:
		return nil, fmt.Errorf("transaction runner is required")
	case params.Users == nil:
		return nil, fmt.Errorf("user repository is required")
	case params.Store == nil:
		return nil, fmt.Errorf("reset token store is required")
	case params.Outbox == nil:
		return nil, fmt.Errorf("outbox emitter is required")
	case params.Logger == nil:
		return nil, fmt.Errorf("logger is required")
	}
	ttl := params.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &passwordResetService{
		db:          params.DB,
		users:       params.Users,
		store:       params.Store,
		outbox:      params.Outbox,
		logg:        params.Logger,
		passwordCfg: params.PasswordConfig,
		ttl:         ttl,
		publicURL:   strings.TrimRight(params.PublicURL, "/"),
		now:         time.Now,
	}, nil
}

// RequestReset never reveals whether the address is registered.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	normalized := users.NormalizeEmail(email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	user, err := s.users.FindByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logg.Info(ctx, "password reset requested for unknown email")
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		return nil
	}

	token, err := security.NewOpaqueToken(resetTokenBytes)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := s.store.Set(ctx, s.store.PasswordResetKey(security.DigestToken(token)), user.ID.String(), s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reset token")
	}

	expiresAt := s.now().UTC().Add(s.ttl)
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPasswordResetRequested,
			AggregateType: enums.AggregateUser,
			AggregateID:   user.ID,
			Data: payloads.PasswordResetRequestedEvent{
				UserID:    user.ID,
				Email:     user.Email,
				Name:      user.Name,
				ResetURL:  s.publicURL + "/reset-password/" + token,
				ExpiresAt: expiresAt,
			},
		})
	})
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if len(newPassword) < minPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	raw, err := s.store.GetDel(ctx, s.store.PasswordResetKey(security.DigestToken(token)))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return pkgerrors.New(pkgerrors.CodeValidation, "reset link is invalid or has expired")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset link is invalid or has expired")
	}

	hash, err := security.HashPassword(newPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update password")
	}
	s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "password reset completed")
	return nil
}
