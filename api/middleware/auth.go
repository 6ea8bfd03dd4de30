package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	pkgAuth "github.com/angelmondragon/tablebook-backend/pkg/auth"
	"github.com/angelmondragon/tablebook-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

// Auth requires a bearer access token whose jti still has a live session in
// Redis, then attaches the Principal to the request context. A nil checker
// skips the session lookup.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if sessions != nil {
				live, err := sessions.HasSession(ctx, claims.ID)
				switch {
				case err != nil:
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				case !live:
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			userID := claims.UserID.String()
			ctx = WithPrincipal(ctx, Principal{UserID: userID, Role: string(claims.Role), AccessID: claims.ID})
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an Authorization header, accepting
// "Bearer <token>" in any case or a bare token.
func BearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if strings.EqualFold(header, "bearer") {
		return "", false
	}
	if scheme, rest, found := strings.Cut(header, " "); found && strings.EqualFold(scheme, "bearer") {
		header = strings.TrimSpace(rest)
	}
	return header, header != ""
}
