package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/api/middleware"
	"github.com/angelmondragon/tablebook-backend/internal/auth"
	"github.com/angelmondragon/tablebook-backend/internal/users"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

type stubAuthService struct {
	resp        *auth.TokenResponse
	err         error
	lastLogin   auth.LoginRequest
	lastRefresh auth.RefreshRequest
	loggedOut   string
	adminCalls  int
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	s.lastLogin = req
	return s.resp, s.err
}

func (s *stubAuthService) AdminLogin(ctx context.Context, req auth.LoginRequest) (*auth.TokenResponse, error) {
	s.adminCalls++
	s.lastLogin = req
	return s.resp, s.err
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenResponse, error) {
	s.lastRefresh = req
	return s.resp, s.err
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	s.loggedOut = accessID
	return s.err
}

type stubRegisterService struct {
	user      *users.UserDTO
	err       error
	lastAdmin auth.AdminRegisterRequest
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return s.user, s.err
}

func (s *stubRegisterService) RegisterAdmin(ctx context.Context, req auth.AdminRegisterRequest) (*users.UserDTO, error) {
	s.lastAdmin = req
	return s.user, s.err
}

func withIdentity(r *http.Request, userID uuid.UUID, role enums.UserRole) *http.Request {
	ctx := middleware.WithUserID(r.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	return r.WithContext(ctx)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return env
}
