package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// --- mock ComparisonService ---

type mockComparisons struct {
	appendFn func(agentID, cotizacionID uuid.UUID, plans []*models.ComparedPlan) (int, error)
	byDealFn func(dealID string) (*models.Cotizacion, []*models.ComparedPlan, error)
}

func (m *mockComparisons) AppendComparison(_ context.Context, agentID, cotizacionID uuid.UUID, plans []*models.ComparedPlan) (int, error) {
	return m.appendFn(agentID, cotizacionID, plans)
}
func (m *mockComparisons) LatestComparisonByDeal(_ context.Context, dealID string) (*models.Cotizacion, []*models.ComparedPlan, error) {
	return m.byDealFn(dealID)
}

// --- tests ---

func TestAppendComparisonHandler_Success(t *testing.T) {
	cotID := uuid.New()
	var gotPlans []*models.ComparedPlan
	mock := &mockComparisons{appendFn: func(_, id uuid.UUID, plans []*models.ComparedPlan) (int, error) {
		if id != cotID {
			t.Errorf("wrong cotizacion id")
		}
		gotPlans = plans
		return 3, nil
	}}

	h := NewAppendComparisonHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]any{
		"plans": []map[string]any{
			{"aseguradora": "zurich", "plan": "Full", "prima_neta": 500, "prima_total": 612.5, "tasa": 3.2},
			{"aseguradora": "chubb", "plan": "Premium", "prima_neta": 540, "prima_total": 660.1, "tasa": 3.4},
		},
	}
	r := agentReq(t, http.MethodPost, "/api/v1/cotizaciones/"+cotID.String()+"/comparisons", body, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "cotizacionID", cotID.String()))

	data := parseData(t, rec, http.StatusCreated)
	if data["version"] != float64(3) {
		t.Errorf("expected version 3, got %v", data["version"])
	}
	if len(gotPlans) != 2 || gotPlans[0].Aseguradora != "zurich" {
		t.Errorf("plans not forwarded: %+v", gotPlans)
	}
}

func TestAppendComparisonHandler_EmptyBatch(t *testing.T) {
	h := NewAppendComparisonHandler(&mockComparisons{})
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	r := agentReq(t, http.MethodPost, "/api/v1/cotizaciones/"+id+"/comparisons",
		map[string]any{"plans": []any{}}, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "cotizacionID", id))

	status, code := parseErrCode(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}

func TestAppendComparisonHandler_PlanMissingInsurer(t *testing.T) {
	h := NewAppendComparisonHandler(&mockComparisons{})
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	body := map[string]any{
		"plans": []map[string]any{{"plan": "Full", "prima_total": 612.5}},
	}
	r := agentReq(t, http.MethodPost, "/api/v1/cotizaciones/"+id+"/comparisons", body, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "cotizacionID", id))

	status, _ := parseErrCode(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestDealComparisonHandler_Success(t *testing.T) {
	agentID := uuid.New()
	c := sampleCotizacion(agentID)
	deal := "40712"
	c.DealID = &deal
	mock := &mockComparisons{byDealFn: func(dealID string) (*models.Cotizacion, []*models.ComparedPlan, error) {
		if dealID != deal {
			t.Errorf("wrong deal id: %s", dealID)
		}
		return c, []*models.ComparedPlan{
			{ID: uuid.New(), CotizacionID: c.ID, Aseguradora: "zurich", Plan: "Full", Version: 2},
			{ID: uuid.New(), CotizacionID: c.ID, Aseguradora: "chubb", Plan: "Premium", Version: 1},
		}, nil
	}}

	h := NewDealComparisonHandler(mock)
	rec := httptest.NewRecorder()
	r := agentReq(t, http.MethodGet, "/api/v1/deals/"+deal+"/comparison", nil, agentID)
	h.ServeHTTP(rec, withURLParam(r, "dealID", deal))

	data := parseData(t, rec, http.StatusOK)
	plans := data["plans"].([]any)
	if len(plans) != 2 {
		t.Errorf("expected 2 plans, got %d", len(plans))
	}
	first := plans[0].(map[string]any)
	if first["version"] != float64(2) {
		t.Errorf("expected newest version first, got %v", first["version"])
	}
}

func TestDealComparisonHandler_NoLinkedCotizacion(t *testing.T) {
	mock := &mockComparisons{byDealFn: func(string) (*models.Cotizacion, []*models.ComparedPlan, error) {
		return nil, nil, store.ErrNotFound
	}}

	h := NewDealComparisonHandler(mock)
	rec := httptest.NewRecorder()
	r := agentReq(t, http.MethodGet, "/api/v1/deals/99999/comparison", nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "dealID", "99999"))

	status, code := parseErrCode(t, rec)
	if status != http.StatusNotFound || code != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", status, code)
	}
}
