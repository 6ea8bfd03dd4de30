package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tablebook-backend/internal/catalog"
	"github.com/angelmondragon/tablebook-backend/pkg/enums"
)

type stubCatalogService struct {
	upcoming        *bool
	inStockOnly     *bool
	includeInactive *bool
	tableInput      catalog.CreateTableInput
	productInput    catalog.CreateProductInput
	eventInput      catalog.CreateEventInput
	statusSet       enums.EventTableStatus
}

func (s *stubCatalogService) CreateTable(ctx context.Context, input catalog.CreateTableInput) (*catalog.TableDTO, error) {
	s.tableInput = input
	return &catalog.TableDTO{ID: uuid.New(), Name: input.Name, Capacity: input.Capacity, Price: input.Price}, nil
}

func (s *stubCatalogService) ListTables(ctx context.Context) ([]catalog.TableDTO, error) {
	return []catalog.TableDTO{}, nil
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	s.productInput = input
	return &catalog.ProductDTO{ID: uuid.New(), Name: input.Name}, nil
}

func (s *stubCatalogService) ListProducts(ctx context.Context, inStockOnly bool) ([]catalog.ProductDTO, error) {
	s.inStockOnly = &inStockOnly
	return []catalog.ProductDTO{}, nil
}

func (s *stubCatalogService) CreateEvent(ctx context.Context, input catalog.CreateEventInput) (*catalog.EventDetailDTO, error) {
	s.eventInput = input
	return &catalog.EventDetailDTO{EventDTO: catalog.EventDTO{ID: uuid.New(), Name: input.Name}}, nil
}

func (s *stubCatalogService) ListEvents(ctx context.Context, upcomingOnly bool) ([]catalog.EventDTO, error) {
	s.upcoming = &upcomingOnly
	return []catalog.EventDTO{}, nil
}

func (s *stubCatalogService) GetEvent(ctx context.Context, id uuid.UUID, includeInactive bool) (*catalog.EventDetailDTO, error) {
	s.includeInactive = &includeInactive
	return &catalog.EventDetailDTO{EventDTO: catalog.EventDTO{ID: id}}, nil
}

func (s *stubCatalogService) SetEventTableStatus(ctx context.Context, eventTableID uuid.UUID, status enums.EventTableStatus) (*catalog.EventTableDTO, error) {
	s.statusSet = status
	return &catalog.EventTableDTO{EventTableID: eventTableID, Status: status}, nil
}

func TestListEventsDefaultsToUpcoming(t *testing.T) {
	svc := &stubCatalogService{}
	rec := httptest.NewRecorder()
	ListEvents(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.upcoming)
	require.True(t, *svc.upcoming)

	rec = httptest.NewRecorder()
	AdminListEvents(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/admin/events", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, *svc.upcoming)
}

func TestGetEventVisibility(t *testing.T) {
	svc := &stubCatalogService{}
	id := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/events/"+id.String(), nil), "eventId", id.String())
	rec := httptest.NewRecorder()
	GetEvent(svc, false, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.False(t, *svc.includeInactive)

	req = withURLParam(httptest.NewRequest(http.MethodGet, "/api/v1/admin/events/"+id.String(), nil), "eventId", id.String())
	rec = httptest.NewRecorder()
	GetEvent(svc, true, nil).ServeHTTP(rec, req)
	require.True(t, *svc.includeInactive)
}

func TestListProductsInStockFlag(t *testing.T) {
	svc := &stubCatalogService{}
	rec := httptest.NewRecorder()
	ListProducts(svc, true, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, *svc.inStockOnly)
}

func TestAdminCreateTable(t *testing.T) {
	svc := &stubCatalogService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/tables", strings.NewReader(`{"name":" VIP 1 ","type":"vip","capacity":6,"price":"250.50"}`))
	rec := httptest.NewRecorder()
	AdminCreateTable(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, "VIP 1", svc.tableInput.Name)
	require.True(t, svc.tableInput.Price.Equal(decimal.RequireFromString("250.50")))

	var env struct {
		Data catalog.TableDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	require.Equal(t, 6, env.Data.Capacity)
}

func TestAdminCreateProductRejectsNegativeStock(t *testing.T) {
	svc := &stubCatalogService{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", strings.NewReader(`{"name":"Champagne","price":90,"stock":-1}`))
	rec := httptest.NewRecorder()
	AdminCreateProduct(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, svc.productInput.Name)
}

func TestAdminCreateEventForwardsTables(t *testing.T) {
	svc := &stubCatalogService{}
	tableID := uuid.New()
	body := `{"name":"Friday Live","event_date":"2026-11-20","start_time":"21:00:00","end_time":"02:00:00","table_ids":["` + tableID.String() + `"]}`
	rec := httptest.NewRecorder()
	AdminCreateEvent(svc, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/admin/events", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Equal(t, []uuid.UUID{tableID}, svc.eventInput.TableIDs)
	require.Equal(t, "02:00:00", svc.eventInput.EndTime)
}

func TestAdminSetEventTableStatusRejectsBooked(t *testing.T) {
	svc := &stubCatalogService{}
	id := uuid.New()

	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"BOOKED"}`)), "eventTableId", id.String())
	rec := httptest.NewRecorder()
	AdminSetEventTableStatus(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = withURLParam(httptest.NewRequest(http.MethodPatch, "/", strings.NewReader(`{"status":"UNAVAILABLE"}`)), "eventTableId", id.String())
	rec = httptest.NewRecorder()
	AdminSetEventTableStatus(svc, nil).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, enums.EventTableStatusUnavailable, svc.statusSet)
}
