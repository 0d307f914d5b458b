package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/crm"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// DealCreator is the CRM surface the deal handler uses.
type DealCreator interface {
	PushNewDeal(ctx context.Context, s crm.Session, form crm.DealForm) (int64, error)
}

// DealLinker links a created deal back onto the agent's cotizacion.
type DealLinker interface {
	PatchQuotation(ctx context.Context, agentID, cotizacionID uuid.UUID, patch store.CotizacionPatch) (*models.Cotizacion, error)
}

// NewCreateDealHandler returns an http.HandlerFunc for POST /api/v1/crm/deals.
//
// A session in the body overrides the configured webhook session, so agents
// authenticated against their own CRM tenant can relay through the portal.
// When cotizacion_id is present the new deal id is linked onto that record.
func NewCreateDealHandler(deals DealCreator, linker DealLinker, defaultSession crm.Session) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agentID, ok := mw.GetAgentID(r)
		if !ok {
			response.Error(w, http.StatusUnauthorized, "INVALID_TOKEN", "Missing agent", nil)
			return
		}

		var req struct {
			crm.DealForm
			Session      *crm.Session `json:"session"`
			CotizacionID *uuid.UUID   `json:"cotizacion_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Title == "" && len(req.Fields) == 0 && len(req.Client) == 0 && len(req.Vehicle) == 0 {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Deal payload is empty", nil)
			return
		}

		session := defaultSession
		if req.Session != nil {
			session = *req.Session
		}

		dealID, err := deals.PushNewDeal(r.Context(), session, req.DealForm)
		if err != nil {
			writeCRMError(w, err)
			return
		}

		linked := false
		if req.CotizacionID != nil {
			dealRef := strconv.FormatInt(dealID, 10)
			_, err := linker.PatchQuotation(r.Context(), agentID, *req.CotizacionID,
				store.CotizacionPatch{DealID: &dealRef})
			if err != nil {
				slog.Warn("deal created but cotizacion linkage failed",
					"error", err,
					"deal_id", dealID,
					"cotizacion_id", *req.CotizacionID,
				)
			} else {
				linked = true
			}
		}

		response.Created(w, createDealResponse{DealID: dealID, Linked: linked})
	}
}

type createDealResponse struct {
	DealID int64 `json:"deal_id"`
	Linked bool  `json:"linked"`
}

func writeCRMError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, crm.ErrCRMTimeout):
		response.Error(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
			"The CRM took too long to respond", nil)
	case errors.Is(err, crm.ErrCRMUnreachable), errors.Is(err, crm.ErrCRMRejected):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR",
			"The CRM is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
