package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/response"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/catalog"
)

// CatalogLookup defines the catalog operations the lookup handlers depend on.
type CatalogLookup interface {
	LookupPerson(ctx context.Context, cedula string) (*catalog.Person, error)
	LookupVehicle(ctx context.Context, placa string) (*catalog.Vehicle, error)
}

// NewPersonLookupHandler returns an http.HandlerFunc for
// POST /api/v1/catalogs/person.
func NewPersonLookupHandler(svc CatalogLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Cedula string `json:"cedula"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Cedula == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "cedula is required", nil)
			return
		}

		person, err := svc.LookupPerson(r.Context(), req.Cedula)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		if person == nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "No person found for this cedula", nil)
			return
		}

		response.JSON(w, person)
	}
}

// NewVehicleLookupHandler returns an http.HandlerFunc for
// POST /api/v1/catalogs/vehicle.
func NewVehicleLookupHandler(svc CatalogLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Placa string `json:"placa"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.Placa == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "placa is required", nil)
			return
		}

		vehicle, err := svc.LookupVehicle(r.Context(), req.Placa)
		if err != nil {
			writeCatalogError(w, err)
			return
		}
		if vehicle == nil {
			response.Error(w, http.StatusNotFound, "NOT_FOUND", "No vehicle found for this plate", nil)
			return
		}

		response.JSON(w, vehicle)
	}
}

func writeCatalogError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, catalog.ErrInvalidIdentification):
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", err.Error(), nil)
	case errors.Is(err, catalog.ErrCatalogTimeout):
		response.Error(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
			"The catalog took too long to respond", nil)
	case errors.Is(err, catalog.ErrCatalogUnreachable), errors.Is(err, catalog.ErrTokenUnavailable),
		errors.Is(err, catalog.ErrBadUpstreamShape), errors.Is(err, catalog.ErrUpstreamRejected):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR",
			"The catalog is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
