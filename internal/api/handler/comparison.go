package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// ComparisonService defines the interface the comparison handlers depend on.
type ComparisonService interface {
	AppendComparison(ctx context.Context, agentID, cotizacionID uuid.UUID, plans []*models.ComparedPlan) (int, error)
	LatestComparisonByDeal(ctx context.Context, dealID string) (*models.Cotizacion, []*models.ComparedPlan, error)
}

type comparisonPlanInput struct {
	Aseguradora string   `json:"aseguradora"`
	Plan        string   `json:"plan"`
	PrimaNeta   float64  `json:"prima_neta"`
	PrimaTotal  float64  `json:"prima_total"`
	Tasa        float64  `json:"tasa"`
	Coberturas  []string `json:"coberturas"`
	Beneficios  []string `json:"beneficios"`
	Deducibles  []string `json:"deducibles"`
	DocumentURL *string  `json:"document_url"`
}

// NewAppendComparisonHandler returns an http.HandlerFunc for
// POST /api/v1/cotizaciones/{cotizacionID}/comparisons.
func NewAppendComparisonHandler(svc ComparisonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := mw.GetAgentID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing agent", nil)
			return
		}

		id, err := uuid.Parse(chi.URLParam(r, "cotizacionID"))
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "cotizacionID must be a valid UUID", nil)
			return
		}

		var req struct {
			Plans []comparisonPlanInput `json:"plans"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if len(req.Plans) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "plans must not be empty", nil)
			return
		}
		for i, p := range req.Plans {
			if p.Aseguradora == "" || p.Plan == "" {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST",
					"Each plan needs aseguradora and plan", map[string]any{"index": i})
				return
			}
		}

		plans := make([]*models.ComparedPlan, len(req.Plans))
		for i, p := range req.Plans {
			plans[i] = &models.ComparedPlan{
				Aseguradora: p.Aseguradora,
				Plan:        p.Plan,
				PrimaNeta:   p.PrimaNeta,
				PrimaTotal:  p.PrimaTotal,
				Tasa:        p.Tasa,
				Coberturas:  p.Coberturas,
				Beneficios:  p.Beneficios,
				Deducibles:  p.Deducibles,
				DocumentURL: p.DocumentURL,
			}
		}

		version, err := svc.AppendComparison(r.Context(), agentID, id, plans)
		if err != nil {
			if errors.Is(err, store.ErrEmptyBatch) {
				response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "plans must not be empty", nil)
				return
			}
			writeQuotationError(w, err)
			return
		}

		response.Created(w, appendComparisonResponse{Version: version, Plans: plans})
	}
}

type appendComparisonResponse struct {
	Version int                   `json:"version"`
	Plans   []*models.ComparedPlan `json:"plans"`
}

// NewDealComparisonHandler returns an http.HandlerFunc for
// GET /api/v1/deals/{dealID}/comparison.
//
// The deal id comes from the CRM, so lookup is by linkage rather than
// ownership; any authenticated agent of the portal may resolve it.
func NewDealComparisonHandler(svc ComparisonService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dealID := chi.URLParam(r, "dealID")
		if dealID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "dealID is required", nil)
			return
		}

		c, plans, err := svc.LatestComparisonByDeal(r.Context(), dealID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "No cotizacion linked to this deal", nil)
				return
			}
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, dealComparisonResponse{Cotizacion: c, Plans: plans})
	}
}

type dealComparisonResponse struct {
	Cotizacion *models.Cotizacion     `json:"cotizacion"`
	Plans      []*models.ComparedPlan `json:"plans"`
}
