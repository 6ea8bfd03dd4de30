package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

// accessTokenHeader mirrors the access token of every issued session.
const accessTokenHeader = "X-TB-Token"

var errAuthUnavailable = pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")

type loginFunc func(context.Context, auth.LoginRequest) (*auth.TokenResponse, error)

// AuthLogin signs in any active account.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return login(svc.Login, logg)
}

// AdminAuthLogin signs in admin accounts only.
func AdminAuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return unavailable(logg)
	}
	return login(svc.AdminLogin, logg)
}

func login(fn loginFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, http.StatusOK, result)
	}
}

func writeSession(w http.ResponseWriter, status int, result *auth.TokenResponse) {
	w.Header().Set(accessTokenHeader, result.AccessToken)
	w.Header().Set("Cache-Control", "no-store")
	if status == http.StatusCreated {
		responses.WriteCreated(w, result)
		return
	}
	responses.WriteSuccess(w, result)
}

func unavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, errAuthUnavailable)
	}
}
