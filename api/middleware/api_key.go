package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
	"github.com/angelmondragon/tablebook-backend/pkg/security"
)

const apiKeyHeader = "X-API-KEY"

// APIKey requires the shared service key on every request.
func APIKey(expected string, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if provided == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "api key required"))
				return
			}
			if !security.SecretsEqual(expected, provided) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "invalid api key"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
