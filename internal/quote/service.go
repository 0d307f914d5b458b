// Package quote orchestrates multi-insurer fan-out rounds and the
// comparison/selection lifecycle of cotizaciones.
package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/cache"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/catalog"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/internal/store"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

// ErrForbidden is returned when an agent touches a cotizacion they do not own.
var ErrForbidden = errors.New("forbidden")

// Service runs fan-out rounds and guards every cotizacion read/write with an
// ownership check against the requesting agent.
type Service struct {
	catalog       catalog.Client
	store         store.Store
	cache         cache.Cache
	insurers      []string
	fanOutTimeout time.Duration
	cacheTTL      time.Duration
}

// NewService creates a quote Service.
func NewService(c catalog.Client, st store.Store, ca cache.Cache, insurers []string, fanOutTimeout, cacheTTL time.Duration) *Service {
	return &Service{
		catalog:       c,
		store:         st,
		cache:         ca,
		insurers:      insurers,
		fanOutTimeout: fanOutTimeout,
		cacheTTL:      cacheTTL,
	}
}

// Insurers returns the configured insurer keys.
func (s *Service) Insurers() []string {
	return s.insurers
}

// FanOut issues one quote call per configured insurer concurrently and
// collects a per-insurer success/failure map. One insurer's failure never
// cancels or delays the others. Rounds are cached per (agent, plate); force
// bypasses and rewrites the cache entry.
//
// The bool result reports whether the round was served from cache.
func (s *Service) FanOut(ctx context.Context, agentID uuid.UUID, req models.QuoteRequest, force bool) (models.FanOutResult, bool, error) {
	key := cache.FanOutKey(agentID, req.Placa)

	if !force {
		if raw, found, err := s.cache.Get(ctx, key); err == nil && found {
			var cached models.FanOutResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, true, nil
			}
			// Corrupt entry: drop it and fan out fresh.
			_ = s.cache.Delete(ctx, key)
		}
	}

	results := make(models.FanOutResult, len(s.insurers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, insurer := range s.insurers {
		wg.Add(1)
		go func(insurer string) {
			defer wg.Done()

			callCtx, cancel := context.WithTimeout(ctx, s.fanOutTimeout)
			defer cancel()

			q, err := s.catalog.QuoteInsurer(callCtx, insurer, req)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[insurer] = models.InsurerResult{OK: false, Error: err.Error()}
				return
			}
			results[insurer] = models.InsurerResult{OK: true, Quote: q}
		}(insurer)
	}
	wg.Wait()

	if raw, err := json.Marshal(results); err == nil {
		if err := s.cache.Set(ctx, key, raw, s.cacheTTL); err != nil {
			slog.Warn("caching fan-out result failed", "error", err, "placa", req.Placa)
		}
	}

	return results, false, nil
}

// CreateQuotation stores a new draft cotizacion owned by the agent.
func (s *Service) CreateQuotation(ctx context.Context, agentID uuid.UUID, req models.QuoteRequest) (*models.Cotizacion, error) {
	now := time.Now().UTC()
	c := &models.Cotizacion{
		ID:              uuid.New(),
		AgentID:         agentID,
		Status:          models.CotizacionDraft,
		Cedula:          req.Cedula,
		Nombre:          req.Nombre,
		FechaNacimiento: req.FechaNacimiento,
		Genero:          req.Genero,
		EstadoCivil:     req.EstadoCivil,
		Ciudad:          req.Ciudad,
		Placa:           strings.ToUpper(req.Placa),
		Marca:           req.Marca,
		Modelo:          req.Modelo,
		Anio:            req.Anio,
		Valor:           req.Valor,
		Uso:             req.Uso,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateCotizacion(ctx, c); err != nil {
		return nil, fmt.Errorf("creating cotizacion: %w", err)
	}
	return c, nil
}

// GetQuotation loads a cotizacion after checking ownership.
func (s *Service) GetQuotation(ctx context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, error) {
	return s.owned(ctx, agentID, cotizacionID)
}

// PatchQuotation applies a partial update after checking ownership.
func (s *Service) PatchQuotation(ctx context.Context, agentID, cotizacionID uuid.UUID, patch store.CotizacionPatch) (*models.Cotizacion, error) {
	if _, err := s.owned(ctx, agentID, cotizacionID); err != nil {
		return nil, err
	}
	return s.store.UpdateCotizacion(ctx, cotizacionID, patch)
}

// ListQuotations lists the agent's cotizaciones.
func (s *Service) ListQuotations(ctx context.Context, agentID uuid.UUID, filter store.ListFilter) ([]*models.Cotizacion, int, error) {
	return s.store.ListCotizaciones(ctx, agentID, filter)
}

// AppendComparison stores one comparison batch under the next version and
// returns that version. The batch is written all-or-nothing.
func (s *Service) AppendComparison(ctx context.Context, agentID, cotizacionID uuid.UUID, plans []*models.ComparedPlan) (int, error) {
	if _, err := s.owned(ctx, agentID, cotizacionID); err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for _, p := range plans {
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.CotizacionID = cotizacionID
	}
	return s.store.AppendComparisonBatch(ctx, cotizacionID, plans)
}

// SelectPlan marks one plan selected within its version, clearing any sibling
// selection atomically, after checking the agent owns the parent cotizacion.
func (s *Service) SelectPlan(ctx context.Context, agentID, planID uuid.UUID, overrides store.SelectionOverrides) (*models.ComparedPlan, error) {
	p, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if _, err := s.owned(ctx, agentID, p.CotizacionID); err != nil {
		return nil, err
	}
	return s.store.SelectPlan(ctx, planID, overrides)
}

// LatestComparisonByDeal resolves a cotizacion by CRM deal id and returns the
// plans of its most recent versions (at most three), newest first.
func (s *Service) LatestComparisonByDeal(ctx context.Context, dealID string) (*models.Cotizacion, []*models.ComparedPlan, error) {
	c, err := s.store.GetCotizacionByDeal(ctx, dealID)
	if err != nil {
		return nil, nil, err
	}
	plans, err := s.store.LatestPlans(ctx, c.ID, 3)
	if err != nil {
		return nil, nil, err
	}
	return c, plans, nil
}

// ComparisonSnapshot returns the cotizacion and its latest version's plans,
// for PDF export.
func (s *Service) ComparisonSnapshot(ctx context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, []*models.ComparedPlan, error) {
	c, err := s.owned(ctx, agentID, cotizacionID)
	if err != nil {
		return nil, nil, err
	}
	plans, err := s.store.LatestPlans(ctx, c.ID, 1)
	if err != nil {
		return nil, nil, err
	}
	return c, plans, nil
}

func (s *Service) owned(ctx context.Context, agentID, cotizacionID uuid.UUID) (*models.Cotizacion, error) {
	c, err := s.store.GetCotizacion(ctx, cotizacionID)
	if err != nil {
		return nil, err
	}
	if c.AgentID != agentID {
		return nil, ErrForbidden
	}
	return c, nil
}
