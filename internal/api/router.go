package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	PersonLookupHandler  http.HandlerFunc
	VehicleLookupHandler http.HandlerFunc
	FanOutHandler        http.HandlerFunc

	CreateCotizacionHandler http.HandlerFunc
	GetCotizacionHandler    http.HandlerFunc
	PatchCotizacionHandler  http.HandlerFunc
	ListCotizacionesHandler http.HandlerFunc

	AppendComparisonHandler http.HandlerFunc
	SelectPlanHandler       http.HandlerFunc
	DealComparisonHandler   http.HandlerFunc
	ExportHandler           http.HandlerFunc
	CreateDealHandler       http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Post("/api/v1/catalogs/person", orNotImplemented(deps.PersonLookupHandler))
		r.Post("/api/v1/catalogs/vehicle", orNotImplemented(deps.VehicleLookupHandler))

		r.Post("/api/v1/quotes/fanout", orNotImplemented(deps.FanOutHandler))

		r.Post("/api/v1/cotizaciones", orNotImplemented(deps.CreateCotizacionHandler))
		r.Get("/api/v1/cotizaciones", orNotImplemented(deps.ListCotizacionesHandler))
		r.Get("/api/v1/cotizaciones/{cotizacionID}", orNotImplemented(deps.GetCotizacionHandler))
		r.Patch("/api/v1/cotizaciones/{cotizacionID}", orNotImplemented(deps.PatchCotizacionHandler))
		r.Post("/api/v1/cotizaciones/{cotizacionID}/comparisons", orNotImplemented(deps.AppendComparisonHandler))
		r.Get("/api/v1/cotizaciones/{cotizacionID}/export", orNotImplemented(deps.ExportHandler))

		r.Post("/api/v1/plans/{planID}/select", orNotImplemented(deps.SelectPlanHandler))
		r.Get("/api/v1/deals/{dealID}/comparison", orNotImplemented(deps.DealComparisonHandler))

		r.Post("/api/v1/crm/deals", orNotImplemented(deps.CreateDealHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
