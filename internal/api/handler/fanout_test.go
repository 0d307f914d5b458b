package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	mw "github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/api/middleware"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// --- shared helpers for handler tests ---

func agentReq(t *testing.T, method, path string, body any, agentID uuid.UUID) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	return r.WithContext(mw.SetAgentID(r.Context(), agentID))
}

func parseData(t *testing.T, rec *httptest.ResponseRecorder, wantStatus int) map[string]any {
	t.Helper()
	if rec.Code != wantStatus {
		t.Fatalf("expected %d, got %d: %s", wantStatus, rec.Code, rec.Body.String())
	}
	var env struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return env.Data
}

func parseErrCode(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return rec.Code, env.Error.Code
}

// --- mock FanOutRunner ---

type mockFanOut struct {
	fn func(agentID uuid.UUID, req models.QuoteRequest, force bool) (models.FanOutResult, bool, error)
}

func (m *mockFanOut) FanOut(_ context.Context, agentID uuid.UUID, req models.QuoteRequest, force bool) (models.FanOutResult, bool, error) {
	return m.fn(agentID, req, force)
}

// --- tests ---

func TestFanOutHandler_Success(t *testing.T) {
	mock := &mockFanOut{fn: func(_ uuid.UUID, _ models.QuoteRequest, _ bool) (models.FanOutResult, bool, error) {
		return models.FanOutResult{
			"zurich": {OK: true, Quote: &models.InsurerQuote{Aseguradora: "zurich", Plan: "Full", PrimaTotal: 612.5}},
			"chubb":  {OK: false, Error: "catalog timeout"},
		}, false, nil
	}}

	h := NewFanOutHandler(mock)
	rec := httptest.NewRecorder()

	body := map[string]any{
		"placa":  "ABC-1234",
		"cedula": "1710034065",
		"valor":  17000,
	}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/quotes/fanout", body, uuid.New()))

	data := parseData(t, rec, http.StatusOK)
	if data["cached"] != false {
		t.Errorf("expected cached=false, got %v", data["cached"])
	}
	results := data["results"].(map[string]any)
	zurich := results["zurich"].(map[string]any)
	if zurich["ok"] != true {
		t.Errorf("expected zurich ok, got %v", zurich)
	}
	chubb := results["chubb"].(map[string]any)
	if chubb["ok"] != false || chubb["error"] != "catalog timeout" {
		t.Errorf("expected chubb failure preserved, got %v", chubb)
	}
}

func TestFanOutHandler_ForceForwarded(t *testing.T) {
	var gotForce bool
	mock := &mockFanOut{fn: func(_ uuid.UUID, _ models.QuoteRequest, force bool) (models.FanOutResult, bool, error) {
		gotForce = force
		return models.FanOutResult{}, false, nil
	}}

	h := NewFanOutHandler(mock)
	rec := httptest.NewRecorder()

	body := map[string]any{"placa": "ABC-1234", "valor": 17000, "force": true}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/quotes/fanout", body, uuid.New()))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !gotForce {
		t.Error("expected force=true forwarded to service")
	}
}

func TestFanOutHandler_MissingAgent(t *testing.T) {
	h := NewFanOutHandler(&mockFanOut{})
	rec := httptest.NewRecorder()

	r := httptest.NewRequest(http.MethodPost, "/api/v1/quotes/fanout", bytes.NewReader([]byte(`{}`)))
	h.ServeHTTP(rec, r)

	status, code := parseErrCode(t, rec)
	if status != http.StatusUnauthorized || code != "INVALID_TOKEN" {
		t.Errorf("expected 401 INVALID_TOKEN, got %d %s", status, code)
	}
}

func TestFanOutHandler_BadPlate(t *testing.T) {
	h := NewFanOutHandler(&mockFanOut{})
	rec := httptest.NewRecorder()

	body := map[string]any{"placa": "12345", "valor": 17000}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/quotes/fanout", body, uuid.New()))

	status, code := parseErrCode(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}

func TestFanOutHandler_BadCedulaChecksum(t *testing.T) {
	h := NewFanOutHandler(&mockFanOut{})
	rec := httptest.NewRecorder()

	body := map[string]any{"placa": "ABC-1234", "cedula": "1710034066", "valor": 17000}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/quotes/fanout", body, uuid.New()))

	status, code := parseErrCode(t, rec)
	if status != http.StatusBadRequest || code != "INVALID_REQUEST" {
		t.Errorf("expected 400 INVALID_REQUEST, got %d %s", status, code)
	}
}

func TestFanOutHandler_NonPositiveValue(t *testing.T) {
	h := NewFanOutHandler(&mockFanOut{})
	rec := httptest.NewRecorder()

	body := map[string]any{"placa": "ABC-1234", "valor": 0}
	h.ServeHTTP(rec, agentReq(t, http.MethodPost, "/api/v1/quotes/fanout", body, uuid.New()))

	status, _ := parseErrCode(t, rec)
	if status != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", status)
	}
}
