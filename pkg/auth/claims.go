package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

// AccessTokenPayload is what the auth service knows when minting a token.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the JWT body. The jti doubles as the Redis session key.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered-claim checks in jwt.Parser.
func (c AccessTokenClaims) Validate() error {
	if c.UserID == uuid.Nil {
		return errors.New("token has no user id")
	}
	if !c.Role.IsValid() {
		return fmt.Errorf("token has invalid role %q", c.Role)
	}
	if c.ID == "" {
		return errors.New("token has no jti")
	}
	return nil
}
