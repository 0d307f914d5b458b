package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/crm"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// --- mock PlanSelector ---

type mockSelector struct {
	selectFn func(agentID, planID uuid.UUID, overrides store.SelectionOverrides) (*models.ComparedPlan, error)
	getFn    func(agentID, cotizacionID uuid.UUID) (*models.Cotizacion, error)
}

func (m *mockSelector) SelectPlan(_ context.Context, agentID, planID uuid.UUID, overrides store.SelectionOverrides) (*models.ComparedPlan, error) {
	return m.selectFn(agentID, planID, overrides)
}
func (m *mockSelector) GetQuotation(_ context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, error) {
	return m.getFn(agentID, cotizacionID)
}

// --- mock DealUpdater ---

type mockDealUpdater struct {
	err    error
	pushed []crm.PlanSelection
}

func (m *mockDealUpdater) PushPlanSelection(_ context.Context, _ crm.Session, _ int64, sel crm.PlanSelection) error {
	if m.err != nil {
		return m.err
	}
	m.pushed = append(m.pushed, sel)
	return nil
}

func selectedPlan(cotizacionID uuid.UUID) *models.ComparedPlan {
	return &models.ComparedPlan{
		ID:           uuid.New(),
		CotizacionID: cotizacionID,
		Aseguradora:  "zurich",
		Plan:         "Full",
		PrimaNeta:    500,
		PrimaTotal:   612.5,
		Tasa:         3.2,
		Selected:     true,
		Version:      1,
	}
}

// --- tests ---

func TestSelectPlanHandler_SyncsLinkedDeal(t *testing.T) {
	agentID := uuid.New()
	c := sampleCotizacion(agentID)
	deal := "40712"
	c.DealID = &deal
	plan := selectedPlan(c.ID)

	mock := &mockSelector{
		selectFn: func(_, _ uuid.UUID, _ store.SelectionOverrides) (*models.ComparedPlan, error) {
			return plan, nil
		},
		getFn: func(_, _ uuid.UUID) (*models.Cotizacion, error) { return c, nil },
	}
	updater := &mockDealUpdater{}

	h := NewSelectPlanHandler(mock, updater, crm.Session{Domain: "example.bitrix24.es"})
	rec := httptest.NewRecorder()
	r := agentReq(t, http.MethodPost, "/api/v1/plans/"+plan.ID.String()+"/select", nil, agentID)
	h.ServeHTTP(rec, withURLParam(r, "planID", plan.ID.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["crm_synced"] != true {
		t.Errorf("expected crm_synced=true, got %v", data["crm_synced"])
	}
	if len(updater.pushed) != 1 || updater.pushed[0].Aseguradora != "zurich" {
		t.Errorf("selection not pushed: %+v", updater.pushed)
	}
}

func TestSelectPlanHandler_CRMFailureKeepsSelection(t *testing.T) {
	agentID := uuid.New()
	c := sampleCotizacion(agentID)
	deal := "40712"
	c.DealID = &deal
	plan := selectedPlan(c.ID)

	mock := &mockSelector{
		selectFn: func(_, _ uuid.UUID, _ store.SelectionOverrides) (*models.ComparedPlan, error) {
			return plan, nil
		},
		getFn: func(_, _ uuid.UUID) (*models.Cotizacion, error) { return c, nil },
	}
	updater := &mockDealUpdater{err: errors.New("crm down")}

	h := NewSelectPlanHandler(mock, updater, crm.Session{})
	rec := httptest.NewRecorder()
	r := agentReq(t, http.MethodPost, "/api/v1/plans/"+plan.ID.String()+"/select", nil, agentID)
	h.ServeHTTP(rec, withURLParam(r, "planID", plan.ID.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["crm_synced"] != false {
		t.Errorf("expected crm_synced=false on CRM failure, got %v", data["crm_synced"])
	}
	planBody := data["plan"].(map[string]any)
	if planBody["selected"] != true {
		t.Errorf("local selection must survive CRM failure: %v", planBody)
	}
}

func TestSelectPlanHandler_NoLinkedDeal(t *testing.T) {
	agentID := uuid.New()
	c := sampleCotizacion(agentID) // no DealID
	plan := selectedPlan(c.ID)

	mock := &mockSelector{
		selectFn: func(_, _ uuid.UUID, _ store.SelectionOverrides) (*models.ComparedPlan, error) {
			return plan, nil
		},
		getFn: func(_, _ uuid.UUID) (*models.Cotizacion, error) { return c, nil },
	}
	updater := &mockDealUpdater{}

	h := NewSelectPlanHandler(mock, updater, crm.Session{})
	rec := httptest.NewRecorder()
	r := agentReq(t, http.MethodPost, "/api/v1/plans/"+plan.ID.String()+"/select", nil, agentID)
	h.ServeHTTP(rec, withURLParam(r, "planID", plan.ID.String()))

	data := parseData(t, rec, http.StatusOK)
	if data["crm_synced"] != false {
		t.Errorf("expected crm_synced=false without linked deal, got %v", data["crm_synced"])
	}
	if len(updater.pushed) != 0 {
		t.Errorf("no push expected without a deal")
	}
}

func TestSelectPlanHandler_OverridesForwarded(t *testing.T) {
	agentID := uuid.New()
	c := sampleCotizacion(agentID)
	plan := selectedPlan(c.ID)
	var gotOverrides store.SelectionOverrides

	mock := &mockSelector{
		selectFn: func(_, _ uuid.UUID, overrides store.SelectionOverrides) (*models.ComparedPlan, error) {
			gotOverrides = overrides
			return plan, nil
		},
		getFn: func(_, _ uuid.UUID) (*models.Cotizacion, error) { return c, nil },
	}

	h := NewSelectPlanHandler(mock, nil, crm.Session{})
	rec := httptest.NewRecorder()
	body := map[string]any{"prima_neta": 480.0, "tasa": 2.9}
	r := agentReq(t, http.MethodPost, "/api/v1/plans/"+plan.ID.String()+"/select", body, agentID)
	h.ServeHTTP(rec, withURLParam(r, "planID", plan.ID.String()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotOverrides.PrimaNeta == nil || *gotOverrides.PrimaNeta != 480.0 {
		t.Errorf("prima_neta override not forwarded: %+v", gotOverrides)
	}
	if gotOverrides.Tasa == nil || *gotOverrides.Tasa != 2.9 {
		t.Errorf("tasa override not forwarded: %+v", gotOverrides)
	}
}

func TestSelectPlanHandler_PlanNotFound(t *testing.T) {
	mock := &mockSelector{
		selectFn: func(_, _ uuid.UUID, _ store.SelectionOverrides) (*models.ComparedPlan, error) {
			return nil, store.ErrNotFound
		},
	}

	h := NewSelectPlanHandler(mock, nil, crm.Session{})
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	r := agentReq(t, http.MethodPost, "/api/v1/plans/"+id+"/select", nil, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "planID", id))

	status, code := parseErrCode(t, rec)
	if status != http.StatusNotFound || code != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", status, code)
	}
}

func TestSelectPlanHandler_NegativeOverride(t *testing.T) {
	h := NewSelectPlanHandler(&mockSelector{}, nil, crm.Session{})
	rec := httptest.NewRecorder()
	id := uuid.NewString()
	body := map[string]any{"prima_neta": -10.0}
	r := agentReq(t, http.MethodPost, "/api/v1/plans/"+id+"/select", body, uuid.New())
	h.ServeHTTP(rec, withURLParam(r, "planID", id))

	status, _ := parseErrCode(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}
