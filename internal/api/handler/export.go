package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/pdfexport"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/storage"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// Snapshotter defines the interface the export handler depends on.
type Snapshotter interface {
	ComparisonSnapshot(ctx context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, []*models.ComparedPlan, error)
}

// NewExportHandler returns an http.HandlerFunc for
// GET /api/v1/cotizaciones/{cotizacionID}/export.
//
// The PDF body is always returned. When an uploader is configured the file is
// also stored and the public URL exposed via the X-Export-Url header; an
// upload failure never fails the export itself.
func NewExportHandler(svc Snapshotter, uploader storage.Uploader) http.HandlerFunc {
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

		c, plans, err := svc.ComparisonSnapshot(r.Context(), agentID, id)
		if err != nil {
			writeQuotationError(w, err)
			return
		}
		if len(plans) == 0 {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "Cotizacion has no comparison to export", nil)
			return
		}

		pdf, err := pdfexport.Render(c, plans)
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
				"Failed to render the export", nil)
			return
		}

		if uploader != nil {
			key := fmt.Sprintf("exports/%s/%s.pdf", c.ID, time.Now().UTC().Format("20060102T150405"))
			url, err := uploader.Upload(r.Context(), key, pdf, "application/pdf")
			if err != nil {
				slog.Warn("export upload failed", "error", err, "cotizacion_id", c.ID)
			} else {
				w.Header().Set("X-Export-Url", url)
			}
		}

		w.Header().Set("Content-Disposition",
			fmt.Sprintf("attachment; filename=\"cotizacion-%s.pdf\"", c.ID))
		response.Binary(w, "application/pdf", pdf)
	}
}
