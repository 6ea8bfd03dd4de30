package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

// RequireRole must run after Auth. Requests without a principal get 401,
// principals outside allowed get 403.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	permitted := make(map[enums.UserRole]struct{}, len(allowed))
	names := make([]string, 0, len(allowed))
	for _, role := range allowed {
		permitted[role] = struct{}{}
		names = append(names, string(role))
	}
	denied := pkgerrors.New(pkgerrors.CodeForbidden, "requires role "+strings.Join(names, " or "))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFromContext(r.Context())
			if !ok || principal.UserID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
				return
			}
			if _, ok := permitted[enums.UserRole(principal.Role)]; !ok {
				responses.WriteError(r.Context(), logg, w, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
