package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/tablebook-backend/internal/auth"
	pkgAuth "github.com/angelmondragon/tablebook-backend/pkg/auth"
	"github.com/angelmondragon/tablebook-backend/pkg/auth/session"
	"github.com/angelmondragon/tablebook-backend/pkg/config"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

func mintTestToken(t *testing.T, cfg config.JWTConfig, issuedAt time.Time) (string, string) {
	t.Helper()
	accessID := session.NewAccessID()
	token, err := pkgAuth.MintAccessToken(cfg, issuedAt, pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleUser,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token, accessID
}

func TestAuthLogout(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
	svc := &stubAuthService{}
	handler := AuthLogout(svc, cfg, nil)

	token, jti := mintTestToken(t, cfg, time.Now())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.loggedOut != jti {
		t.Fatalf("expected revoked %s got %s", jti, svc.loggedOut)
	}
}

func TestAuthLogoutAcceptsExpiredToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 1}
	svc := &stubAuthService{}
	handler := AuthLogout(svc, cfg, nil)

	token, jti := mintTestToken(t, cfg, time.Now().Add(-time.Hour))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.loggedOut != jti {
		t.Fatal("expected expired token session to be revoked")
	}
}

func TestAuthLogoutMissingToken(t *testing.T) {
	handler := AuthLogout(&stubAuthService{}, config.JWTConfig{Secret: "secret", Issuer: "issuer"}, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rec.Code)
	}
}

func TestAuthRefreshUsesBearerWhenBodyOmitsAccessToken(t *testing.T) {
	svc := &stubAuthService{resp: &auth.TokenResponse{AccessToken: "next-access", RefreshToken: "next-refresh"}}
	handler := AuthRefresh(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"refresh_token":"old-refresh"}`))
	req.Header.Set("Authorization", "Bearer old-access")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastRefresh.AccessToken != "old-access" || svc.lastRefresh.RefreshToken != "old-refresh" {
		t.Fatalf("unexpected refresh request %+v", svc.lastRefresh)
	}
	if rec.Header().Get(accessTokenHeader) != "next-access" {
		t.Fatal("expected rotated token header")
	}
}

func TestAuthRefreshRequiresRefreshToken(t *testing.T) {
	handler := AuthRefresh(&stubAuthService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/refresh", strings.NewReader(`{"access_token":"a"}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
