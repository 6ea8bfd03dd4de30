package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tablebook-backend/api/middleware"
	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/tablebook-backend/pkg/auth"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

var errMissingCredentials = pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")

type refreshRequest struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthLogout drops the session behind the presented access token. Expired
// tokens are accepted so a stale client can still sign out.
func AuthLogout(svc auth.Service, cfg config.JWTConfig, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := middleware.BearerToken(r.Header.Get("Authorization"))
		if !ok {
			responses.WriteError(r.Context(), logg, w, errMissingCredentials)
			return
		}
		claims, err := pkgAuth.ParseAccessTokenAllowExpired(cfg, token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
			return
		}
		if err := svc.Logout(r.Context(), claims.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// AuthRefresh rotates the refresh token and mints a new access token. The
// old access token is read from the body, falling back to the header.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		access := strings.TrimSpace(body.AccessToken)
		if access == "" {
			var ok bool
			if access, ok = middleware.BearerToken(r.Header.Get("Authorization")); !ok {
				responses.WriteError(r.Context(), logg, w, errMissingCredentials)
				return
			}
		}

		result, err := svc.Refresh(r.Context(), auth.RefreshRequest{AccessToken: access, RefreshToken: body.RefreshToken})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, http.StatusOK, result)
	}
}
