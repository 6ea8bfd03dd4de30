package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/tablebook-backend/pkg/errors"
	"github.com/angelmondragon/tablebook-backend/pkg/pagination"
)

type sampleBody struct {
	Email string `json:"email" validate:"required,email"`
	Count int    `json:"count" validate:"gte=1"`
}

func TestDecodeJSONBodyValidates(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"nope","count":0}`))
	var body sampleBody
	err := DecodeJSONBody(req, &body)
	if err == nil {
		t.Fatal("expected validation error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation code, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["email"] != "must be a valid email" {
		t.Fatalf("unexpected email detail %q", details["email"])
	}
	if details["count"] != "must be greater than or equal to 1" {
		t.Fatalf("unexpected count detail %q", details["count"])
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","count":1,"extra":true}`))
	var body sampleBody
	if err := DecodeJSONBody(req, &body); err == nil {
		t.Fatal("expected unknown field to fail")
	}
}

func TestParseQueryBool(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?upcoming=true&bad=maybe", nil)
	if v, err := ParseQueryBool(req, "upcoming", false); err != nil || !v {
		t.Fatalf("expected true, got %v %v", v, err)
	}
	if v, err := ParseQueryBool(req, "missing", true); err != nil || !v {
		t.Fatalf("expected default, got %v %v", v, err)
	}
	if _, err := ParseQueryBool(req, "bad", false); err == nil {
		t.Fatal("expected error for invalid bool")
	}
}

func TestParseQueryIntRejectsRepeatsAndRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&limit=6&page=0&n=12", nil)
	if _, err := ParseQueryInt(req, "limit", 20, 1, 100); err == nil {
		t.Fatal("expected repeated parameter to fail")
	}
	if _, err := ParseQueryInt(req, "page", 1, 1, 10); err == nil {
		t.Fatal("expected out of range to fail")
	}
	if v, err := ParseQueryInt(req, "n", 1, 1, 20); err != nil || v != 12 {
		t.Fatalf("expected 12, got %d %v", v, err)
	}
}

func TestParsePage(t *testing.T) {
	cursor := pagination.EncodeCursor(pagination.Cursor{CreatedAt: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), ID: uuid.New()})
	req := httptest.NewRequest(http.MethodGet, "/?limit=10&cursor="+cursor, nil)
	params, err := ParsePage(req)
	if err != nil {
		t.Fatalf("ParsePage: %v", err)
	}
	if params.Limit != 10 || params.Cursor != cursor {
		t.Fatalf("unexpected params %+v", params)
	}

	params, err = ParsePage(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || params.Limit != pagination.DefaultLimit || params.Cursor != "" {
		t.Fatalf("expected defaults, got %+v %v", params, err)
	}

	_, err = ParsePage(httptest.NewRequest(http.MethodGet, "/?cursor=not-a-cursor", nil))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for bad cursor, got %v", err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	rctx.URLParams.Add("broken", "not-a-uuid")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(req, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(req, "broken"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := ParseUUIDParam(req, "absent"); err == nil {
		t.Fatal("expected missing param error")
	}
}

type priceBody struct {
	Price decimal.Decimal `json:"price" validate:"money"`
	Items []struct {
		Qty int `json:"quantity" validate:"gt=0"`
	} `json:"items" validate:"dive"`
}

func TestDecodeJSONBodyMoneyAndNestedPaths(t *testing.T) {
	cases := map[string]bool{
		`{"price":"12.50"}`:  true,
		`{"price":0}`:        true,
		`{"price":"-1"}`:     false,
		`{"price":"1.005"}`:  false,
		`{"price":"150000"}`: true,
	}
	for raw, ok := range cases {
		var body priceBody
		err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(raw)), &body)
		if (err == nil) != ok {
			t.Fatalf("%s: expected ok=%v, got %v", raw, ok, err)
		}
	}

	var body priceBody
	err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"price":"1","items":[{"quantity":1},{"quantity":0}]}`)), &body)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, _ := typed.Details().(map[string]string)
	if details["items[1].quantity"] != "must be greater than 0" {
		t.Fatalf("unexpected details %v", details)
	}
}

func TestDecodeJSONBodyLimitsAndShape(t *testing.T) {
	var body sampleBody
	huge := `{"email":"` + strings.Repeat("a", MaxBodyBytes) + `@b.co","count":1}`
	if err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(huge)), &body); err == nil {
		t.Fatal("expected oversized body to fail")
	}
	if err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader("")), &body); err == nil {
		t.Fatal("expected empty body to fail")
	}
	twice := `{"email":"a@b.co","count":1}{"email":"a@b.co","count":1}`
	if err := DecodeJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(twice)), &body); err == nil {
		t.Fatal("expected trailing JSON value to fail")
	}
	if err := DecodeExternalJSONBody(httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"email":"a@b.co","count":1,"extra":1}`)), &body); err != nil {
		t.Fatalf("expected external decode to accept unknown fields: %v", err)
	}
}
