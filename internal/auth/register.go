package auth

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/db"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

const minPasswordLength = 8

// RegisterRequest contains the payload required to open a guest account.
type RegisterRequest struct {
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone,omitempty"`
}

// AdminRegisterRequest adds the shared registration code required for staff accounts.
type AdminRegisterRequest struct {
	RegisterRequest
	RegistrationCode string `json:"registration_code" validate:"required"`
}

// RegisterService handles account creation.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
	RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	DB                    txRunner
	PasswordConfig        config.PasswordConfig
	AdminRegistrationCode string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type registerService struct {
	db          txRunner
	passwordCfg config.PasswordConfig
	adminCode   string
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "database client required")
	}
	return &registerService{
		db:          params.DB,
		passwordCfg: params.PasswordConfig,
		adminCode:   params.AdminRegistrationCode,
	}, nil
}

func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	return s.create(ctx, req, enums.UserRoleUser)
}

// RegisterAdmin is rejected outright when no registration code is configured.
func (s *registerService) RegisterAdmin(ctx context.Context, req AdminRegisterRequest) (*users.UserDTO, error) {
	if !security.SecretsEqual(s.adminCode, strings.TrimSpace(req.RegistrationCode)) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invalid admin registration code")
	}
	return s.create(ctx, req.RegisterRequest, enums.UserRoleAdmin)
}

func (s *registerService) create(ctx context.Context, req RegisterRequest, role enums.UserRole) (*users.UserDTO, error) {
	email := users.NormalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *users.UserDTO
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := users.NewRepository(tx)

		taken, err := userRepo.EmailTaken(ctx, email)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}
		if taken {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Name:         name,
			Email:        email,
			PasswordHash: passwordHash,
			Phone:        req.Phone,
			Role:         role,
		})
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		created = users.FromModel(user)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}
