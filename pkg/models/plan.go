package models

import (
	"time"

	"github.com/google/uuid"
)

// ComparedPlan is one insurer's quote captured inside a versioned comparison
// batch. Rows are only ever created in batches and never deleted; a new
// comparison round appends rows under the next version number.
//
// Within a (cotizacion_id, version) group at most one row is selected.
type ComparedPlan struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	CotizacionID uuid.UUID `db:"cotizacion_id" json:"cotizacion_id"`
	Aseguradora  string    `db:"aseguradora"   json:"aseguradora"`
	Plan         string    `db:"plan"          json:"plan"`
	PrimaNeta    float64   `db:"prima_neta"    json:"prima_neta"`
	PrimaTotal   float64   `db:"prima_total"   json:"prima_total"`
	Tasa         float64   `db:"tasa"          json:"tasa"`
	Coberturas   []string  `db:"coberturas"    json:"coberturas"`
	Beneficios   []string  `db:"beneficios"    json:"beneficios"`
	Deducibles   []string  `db:"deducibles"    json:"deducibles"`
	DocumentURL  *string   `db:"document_url"  json:"document_url,omitempty"`
	Selected     bool      `db:"selected"      json:"selected"`
	Version      int       `db:"version"       json:"version"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}
