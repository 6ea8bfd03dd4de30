package controllers

import (
	"net/http"

	"github.com/angelmondragon/tablebook-backend/api/responses"
	"github.com/angelmondragon/tablebook-backend/api/validators"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	"github.com/angelmondragon/tablebook-backend/pkg/logger"
)

// AuthRegister opens a guest account and returns a session for it.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	if reg == nil || svc == nil {
		return unavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := reg.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeSession(w, http.StatusCreated, result)
	}
}

// AuthRegisterAdmin creates a staff account when the caller presents the
// shared registration code. No session is issued.
func AuthRegisterAdmin(reg auth.RegisterService, logg *logger.Logger) http.HandlerFunc {
	if reg == nil {
		return unavailable(logg)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.AdminRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		user, err := reg.RegisterAdmin(r.Context(), body)
		if err != nil {
			if logg != nil {
				logg.Warn(r.Context(), "admin registration rejected")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, map[string]any{"user": user})
	}
}
