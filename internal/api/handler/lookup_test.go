package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/catalog"
)

// --- mock CatalogLookup ---

type mockCatalog struct {
	personFn  func(cedula string) (*catalog.Person, error)
	vehicleFn func(placa string) (*catalog.Vehicle, error)
}

func (m *mockCatalog) LookupPerson(_ context.Context, cedula string) (*catalog.Person, error) {
	return m.personFn(cedula)
}

func (m *mockCatalog) LookupVehicle(_ context.Context, placa string) (*catalog.Vehicle, error) {
	return m.vehicleFn(placa)
}

// --- tests ---

func TestPersonLookupHandler_Success(t *testing.T) {
	mock := &mockCatalog{personFn: func(cedula string) (*catalog.Person, error) {
		return &catalog.Person{Cedula: cedula, Nombre: "Juan Perez", Ciudad: "Quito"}, nil
	}}

	h := NewPersonLookupHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]string{"cedula": "1710034065"}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/person", body, uuid.New()))

	data := parseData(t, rec, http.StatusOK)
	if data["nombre"] != "Juan Perez" {
		t.Errorf("unexpected nombre: %v", data["nombre"])
	}
}

func TestPersonLookupHandler_NotFound(t *testing.T) {
	mock := &mockCatalog{personFn: func(string) (*catalog.Person, error) {
		return nil, nil
	}}

	h := NewPersonLookupHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]string{"cedula": "1710034065"}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/person", body, uuid.New()))

	status, code := parseErrCode(t, rec)
	if status != http.StatusNotFound || code != "NOT_FOUND" {
		t.Errorf("expected 404 NOT_FOUND, got %d %s", status, code)
	}
}

func TestPersonLookupHandler_InvalidCedula(t *testing.T) {
	mock := &mockCatalog{personFn: func(string) (*catalog.Person, error) {
		return nil, catalog.ErrInvalidIdentification
	}}

	h := NewPersonLookupHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]string{"cedula": "9999999999"}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/person", body, uuid.New()))

	status, code := parseErrCode(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}

func TestPersonLookupHandler_MissingCedula(t *testing.T) {
	h := NewPersonLookupHandler(&mockCatalog{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/person", map[string]string{}, uuid.New()))

	status, _ := parseErrCode(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}

func TestPersonLookupHandler_UpstreamTimeout(t *testing.T) {
	mock := &mockCatalog{personFn: func(string) (*catalog.Person, error) {
		return nil, catalog.ErrCatalogTimeout
	}}

	h := NewPersonLookupHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]string{"cedula": "1710034065"}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/person", body, uuid.New()))

	status, code := parseErrCode(t, rec)
	if status != http.StatusGatewayTimeout || code != "UPSTREAM_TIMEOUT" {
		t.Errorf("expected 504 UPSTREAM_TIMEOUT, got %d %s", status, code)
	}
}

func TestVehicleLookupHandler_Success(t *testing.T) {
	mock := &mockCatalog{vehicleFn: func(placa string) (*catalog.Vehicle, error) {
		return &catalog.Vehicle{Placa: placa, Marca: "TOYOTA", Modelo: "COROLLA", Anio: 2021, Avaluo: 17000}, nil
	}}

	h := NewVehicleLookupHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]string{"placa": "ABC-1234"}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/vehicle", body, uuid.New()))

	data := parseData(t, rec, http.StatusOK)
	if data["marca"] != "TOYOTA" {
		t.Errorf("unexpected marca: %v", data["marca"])
	}
}

func TestVehicleLookupHandler_Unreachable(t *testing.T) {
	mock := &mockCatalog{vehicleFn: func(string) (*catalog.Vehicle, error) {
		return nil, catalog.ErrCatalogUnreachable
	}}

	h := NewVehicleLookupHandler(mock)
	rec := httptest.NewRecorder()
	body := map[string]string{"placa": "ABC-1234"}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/catalogs/vehicle", body, uuid.New()))

	status, code := parseErrCode(t, rec)
	if status != http.StatusBadGateway || code != "UPSTREAM_ERROR" {
		t.Errorf("expected 502 UPSTREAM_ERROR, got %d %s", status, code)
	}
}
