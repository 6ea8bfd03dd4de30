package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/api/middleware"
	"github.com/angelmondragon/tablebook-backend/internal/reservations"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

func requestUserID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid user identity")
	}
	return id, nil
}

func requestActor(r *http.Request) (reservations.Actor, error) {
	userID, err := requestUserID(r)
	if err != nil {
		return reservations.Actor{}, err
	}
	return reservations.Actor{
		UserID: userID,
		Role:   enums.UserRole(middleware.RoleFromContext(r.Context())),
	}, nil
}
