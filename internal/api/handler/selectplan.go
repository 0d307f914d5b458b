package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/crm"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// PlanSelector defines the interface the select handler depends on.
type PlanSelector interface {
	SelectPlan(ctx context.Context, agentID, planID uuid.UUID, overrides store.SelectionOverrides) (*models.ComparedPlan, error)
	GetQuotation(ctx context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, error)
}

// DealUpdater is the CRM surface the select handler uses to mirror a
// selection onto the linked deal.
type DealUpdater interface {
	PushPlanSelection(ctx context.Context, s crm.Session, dealID int64, sel crm.PlanSelection) error
}

// NewSelectPlanHandler returns an http.HandlerFunc for
// POST /api/v1/plans/{planID}/select.
//
// The local selection is committed first; the CRM push is best effort and its
// failure is reported via crm_synced without undoing the selection.
func NewSelectPlanHandler(svc PlanSelector, deals DealUpdater, session crm.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := mw.GetAgentID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing agent", nil)
			return
		}

		planID, err := uuid.Parse(chi.URLParam(r, "planID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "planID must be a valid UUID", nil)
			return
		}

		var req struct {
			PrimaNeta *float64 `json:"prima_neta"`
			Tasa      *float64 `json:"tasa"`
		}
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
				return
			}
		}
		if req.PrimaNeta != nil && *req.PrimaNeta <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "prima_neta must be positive", nil)
			return
		}
		if req.Tasa != nil && *req.Tasa <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "tasa must be positive", nil)
			return
		}

		plan, err := svc.SelectPlan(r.Context(), agentID, planID, store.SelectionOverrides{
			PrimaNeta: req.PrimaNeta,
			Tasa:      req.Tasa,
		})
		if err != nil {
			writePlanError(w, err)
			return
		}

		synced := false
		if deals != nil {
			synced = pushSelectionToCRM(r.Context(), svc, deals, session, agentID, plan)
		}

		response.JSON(w, selectPlanResponse{Plan: plan, CRMSynced: synced})
	}
}

// pushSelectionToCRM mirrors the selection onto the linked deal, if any.
// Returns whether the CRM now reflects the selection.
func pushSelectionToCRM(ctx context.Context, svc PlanSelector, deals DealUpdater, session crm.Session, agentID uuid.UUID, plan *models.ComparedPlan) bool {
	c, err := svc.GetQuotation(ctx, agentID, plan.CotizacionID)
	if err != nil || c.DealID == nil {
		return false
	}

	dealID, err := strconv.ParseInt(*c.DealID, 10, 64)
	if err != nil {
		slog.Warn("linked deal id is not numeric", "deal_id", *c.DealID, "cotizacion_id", c.ID)
		return false
	}

	err = deals.PushPlanSelection(ctx, session, dealID, crm.PlanSelection{
		Aseguradora: plan.Aseguradora,
		Plan:        plan.Plan,
		PrimaNeta:   plan.PrimaNeta,
		PrimaTotal:  plan.PrimaTotal,
		Tasa:        plan.Tasa,
	})
	if err != nil {
		slog.Warn("crm selection push failed",
			"error", err,
			"deal_id", dealID,
			"plan_id", plan.ID,
		)
		return false
	}
	return true
}

type selectPlanResponse struct {
	Plan      *models.ComparedPlan `json:"plan"`
	CRMSynced bool                 `json:"crm_synced"`
}

func writePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Plan not found", nil)
	default:
		writeQuotationError(w, err)
	}
}
