package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/validate"
)

// FanOutRunner defines the interface the fan-out handler depends on.
type FanOutRunner interface {
	FanOut(ctx context.Context, agentID uuid.UUID, req models.QuoteRequest, force bool) (models.FanOutResult, bool, error)
}

// NewFanOutHandler returns an http.HandlerFunc for POST /api/v1/quotes/fanout.
func NewFanOutHandler(svc FanOutRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := mw.GetAgentID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing agent", nil)
			return
		}

		var req struct {
			models.QuoteRequest
			Force bool `json:"force"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
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
		if req.Cedula != "" && !validate.Cedula(req.Cedula) {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "cedula failed checksum validation", nil)
			return
		}
		if req.Valor <= 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "valor must be positive", nil)
			return
		}

		results, cached, err := svc.FanOut(r.Context(), agentID, req.QuoteRequest, req.Force)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred", nil)
			return
		}

		response.JSON(w, fanOutResponse{Results: results, Cached: cached})
	}
}

type fanOutResponse struct {
	Results models.FanOutResult `json:"results"`
	Cached  bool                `json:"cached"`
}
