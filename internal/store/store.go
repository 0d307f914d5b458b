package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jcalvacheoland/agentes-oland-2025-sub000/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")
var ErrEmptyBatch = errors.New("comparison batch is empty")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAgent(ctx context.Context, id uuid.UUID) (*models.Agent, error)
	CreateAgent(ctx context.Context, agent *models.Agent) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context, agentID uuid.UUID) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID, agentID uuid.UUID) error

	CreateCotizacion(ctx context.Context, c *models.Cotizacion) error
	GetCotizacion(ctx context.Context, id uuid.UUID) (*models.Cotizacion, error)
	GetCotizacionByDeal(ctx context.Context, dealID string) (*models.Cotizacion, error)
	UpdateCotizacion(ctx context.Context, id uuid.UUID, patch CotizacionPatch) (*models.Cotizacion, error)
	ListCotizaciones(ctx context.Context, agentID uuid.UUID, filter ListFilter) ([]*models.Cotizacion, int, error)

	AppendComparisonBatch(ctx context.Context, cotizacionID uuid.UUID, plans []*models.ComparedPlan) (int, error)
	GetPlan(ctx context.Context, id uuid.UUID) (*models.ComparedPlan, error)
	SelectPlan(ctx context.Context, planID uuid.UUID, overrides SelectionOverrides) (*models.ComparedPlan, error)
	LatestPlans(ctx context.Context, cotizacionID uuid.UUID, maxVersions int) ([]*models.ComparedPlan, error)
}

// CotizacionPatch holds the mutable fields of a cotizacion. Nil fields are
// left untouched.
type CotizacionPatch struct {
	DealID *string
	Ciudad *string
	Valor  *float64
	Uso    *string
}

// SelectionOverrides are agent-entered adjustments applied when a plan is
// selected (negotiated premium or rate).
type SelectionOverrides struct {
	PrimaNeta *float64
	Tasa      *float64
}

// ListFilter narrows and paginates cotizacion listings.
type ListFilter struct {
	Status string
	Placa  string
	Page   int
	Limit  int
}
