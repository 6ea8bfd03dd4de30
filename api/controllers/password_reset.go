package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

type passwordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type passwordResetApply struct {
	NewPassword string `json:"new_password" validate:"required,min=8"`
}

// AuthRequestPasswordReset always answers 202 so the endpoint cannot be used
// to probe for registered addresses.
func AuthRequestPasswordReset(svc auth.PasswordResetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "password reset unavailable"))
			return
		}

		var body passwordResetRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RequestReset(r.Context(), body.Email); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, map[string]string{
			"message": "if the address is registered a reset link has been sent",
		})
	}
}

// AuthResetPassword consumes a single-use reset token.
func AuthResetPassword(svc auth.PasswordResetService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "password reset unavailable"))
			return
		}

		var body passwordResetApply
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), body.NewPassword); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "password_updated"})
	}
}
