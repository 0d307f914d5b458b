package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/quote"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/validate"
)

// QuotationService defines the interface the cotizacion handlers depend on.
type QuotationService interface {
	CreateQuotation(ctx context.Context, agentID uuid.UUID, req models.QuoteRequest) (*models.Cotizacion, error)
	GetQuotation(ctx context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, error)
	PatchQuotation(ctx context.Context, agentID, cotizacionID uuid.UUID, patch store.CotizacionPatch) (*models.Cotizacion, error)
	ListQuotations(ctx context.Context, agentID uuid.UUID, filter store.ListFilter) ([]*models.Cotizacion, int, error)
}

// NewCreateCotizacionHandler returns an http.HandlerFunc for
// POST /api/v1/cotizaciones.
func NewCreateCotizacionHandler(svc QuotationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := mw.GetAgentID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing agent", nil)
			return
		}

		var req models.QuoteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		if req.Cedula == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "cedula is required", nil)
			return
		}
		if !validate.Cedula(req.Cedula) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "cedula failed checksum validation", nil)
			return
		}
		if req.Placa == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "placa is required", nil)
			return
		}
		if !validate.Plate(strings.ToUpper(req.Placa)) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "placa is not a valid plate", nil)
			return
		}

		c, err := svc.CreateQuotation(r.Context(), agentID, req)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Created(w, c)
	}
}

// NewGetCotizacionHandler returns an http.HandlerFunc for
// GET /api/v1/cotizaciones/{cotizacionID}.
func NewGetCotizacionHandler(svc QuotationService) http.HandlerFunc {
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

		c, err := svc.GetQuotation(r.Context(), agentID, id)
		if err != nil {
			writeQuotationError(w, err)
			return
		}

		response.JSON(w, c)
	}
}

// NewPatchCotizacionHandler returns an http.HandlerFunc for
// PATCH /api/v1/cotizaciones/{cotizacionID}.
func NewPatchCotizacionHandler(svc QuotationService) http.HandlerFunc {
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
			DealID *string  `json:"deal_id"`
			Ciudad *string  `json:"ciudad"`
			Valor  *float64 `json:"valor"`
			Uso    *string  `json:"uso"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.DealID == nil && req.Ciudad == nil && req.Valor == nil && req.Uso == nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "At least one field must be provided", nil)
			return
		}
		if req.Valor != nil && *req.Valor <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "valor must be positive", nil)
			return
		}

		c, err := svc.PatchQuotation(r.Context(), agentID, id, store.CotizacionPatch{
			DealID: req.DealID,
			Ciudad: req.Ciudad,
			Valor:  req.Valor,
			Uso:    req.Uso,
		})
		if err != nil {
			writeQuotationError(w, err)
			return
		}

		response.JSON(w, c)
	}
}

// NewListCotizacionesHandler returns an http.HandlerFunc for
// GET /api/v1/cotizaciones.
func NewListCotizacionesHandler(svc QuotationService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := mw.GetAgentID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing agent", nil)
			return
		}

		q := r.URL.Query()
		filter := store.ListFilter{
			Status: q.Get("status"),
			Placa:  q.Get("placa"),
			Page:   parseIntDefault(q.Get("page"), 1),
			Limit:  parseIntDefault(q.Get("limit"), 20),
		}
		if filter.Page < 1 {
			filter.Page = 1
		}
		if filter.Limit < 1 || filter.Limit > 100 {
			filter.Limit = 20
		}

		items, total, err := svc.ListQuotations(r.Context(), agentID, filter)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.Collection(w, items, response.PaginationMeta{
			Page:    filter.Page,
			Limit:   filter.Limit,
			Total:   total,
			HasNext: filter.Page*filter.Limit < total,
		})
	}
}

func writeQuotationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Cotizacion not found", nil)
	case errors.Is(err, quote.ErrForbidden):
		response.Error(w, http.StatusForbidden, "FORBIDDEN", "Cotizacion belongs to another agent", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
