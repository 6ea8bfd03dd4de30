package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
)

type fakeStore struct {
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	f.data[key] = str
	return true, nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	str, _ := value.(string)
	f.data[key] = str
	return nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("fake:%s:%s", scope, id)
}

func reservationRequest(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reservations", strings.NewReader(body))
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	return req
}

func TestMatchRuleSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
		ok     bool
	}{
		{"create reservation", http.MethodPost, "/api/v1/reservations", criticalIdempotencyTTL, true},
		{"trailing slash", http.MethodPost, "/api/v1/reservations/", criticalIdempotencyTTL, true},
		{"confirm payment", http.MethodPost, "/api/v1/admin/reservations/abc/confirm-payment", defaultIdempotencyTTL, true},
		{"cancel", http.MethodPost, "/api/v1/admin/reservations/abc/cancel", defaultIdempotencyTTL, true},
		{"list reservations", http.MethodGet, "/api/v1/reservations/mine", 0, false},
		{"non idempotent", http.MethodPost, "/api/v1/auth/login", 0, false},
	}

	for _, tt := range tests {
		rule, ok := matchRule(tt.method, tt.path)
		if ok != tt.ok {
			t.Fatalf("%s: expected ok=%v got %v", tt.name, tt.ok, ok)
		}
		if ok && rule.ttl != tt.want {
			t.Fatalf("%s: expected ttl=%v got %v", tt.name, tt.want, rule.ttl)
		}
	}
}

func TestIdempotencyMiddlewarePassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, reservationRequest(`{"event_table_id":"x"}`, ""))
		if resp.Code != http.StatusCreated {
			t.Fatalf("expected 201 got %d", resp.Code)
		}
	}
	if calls != 2 {
		t.Fatalf("expected handler to run for each keyless request, got %d", calls)
	}
	if len(store.data) != 0 {
		t.Fatal("keyless requests must not be recorded")
	}
}

func TestIdempotencyMiddlewareReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, reservationRequest(`{"foo":"bar"}`, "abc"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected first response 201 got %d", resp.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, reservationRequest(`{"foo":"bar"}`, "abc"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected replay status 201 got %d", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyMiddlewareDoesNotStoreServerErrors(t *testing.T) {
	store := newFakeStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), reservationRequest(`{}`, "retry-me"))
	handler.ServeHTTP(httptest.NewRecorder(), reservationRequest(`{}`, "retry-me"))
	if calls != 2 {
		t.Fatalf("expected retry after 5xx to reach the handler, got %d calls", calls)
	}
}

func TestIdempotencyMiddlewareDetectsBodyChange(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), reservationRequest(`{"foo":"bar"}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, reservationRequest(`{"foo":"diff"}`, "xyz"))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeIdempotency, payload.Error.Code)
	}
}

func TestIdempotencyScopeIsPerUser(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), reservationRequest(`{}`, "shared"))
	other := reservationRequest(`{}`, "shared")
	other = other.WithContext(WithUserID(other.Context(), "user-2"))
	handler.ServeHTTP(httptest.NewRecorder(), other)
	if calls != 2 {
		t.Fatalf("expected keys to be scoped per user, got %d handler calls", calls)
	}
}

func TestIdempotencyMiddlewareRejectsConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	var inner http.Handler
	outer := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := httptest.NewRecorder()
		inner.ServeHTTP(resp, reservationRequest(`{"foo":"bar"}`, "dup"))
		if resp.Code != http.StatusConflict {
			t.Fatalf("expected in-flight duplicate to get 409, got %d", resp.Code)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	inner = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("duplicate must not reach the handler")
	}))

	resp := httptest.NewRecorder()
	outer.ServeHTTP(resp, reservationRequest(`{"foo":"bar"}`, "dup"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected original request to finish with 201, got %d", resp.Code)
	}

	replayed := httptest.NewRecorder()
	inner.ServeHTTP(replayed, reservationRequest(`{"foo":"bar"}`, "dup"))
	if replayed.Code != http.StatusCreated || replayed.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay of 201, got %d", replayed.Code)
	}
}
