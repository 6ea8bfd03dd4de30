package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKey(t *testing.T) {
	handler := APIKey("service-key", nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"mismatch", "other-key", http.StatusForbidden},
		{"match", "service-key", http.StatusNoContent},
		{"padded", "  service-key ", http.StatusNoContent},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		if tt.header != "" {
			req.Header.Set(apiKeyHeader, tt.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Fatalf("%s: expected %d got %d", tt.name, tt.want, rec.Code)
		}
	}
}
