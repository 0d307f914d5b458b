package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	CotizacionDraft     = "draft"
	CotizacionCompleted = "completed"
)

// Cotizacion is a stored quotation request: one client/vehicle snapshot owned
// by one agent. Status moves from draft to completed once the first comparison
// batch is stored. DealID links the record to a CRM deal when one exists.
type Cotizacion struct {
	ID      uuid.UUID `db:"id"       json:"id"`
	AgentID uuid.UUID `db:"agent_id" json:"agent_id"`
	Status  string    `db:"status"   json:"status"`
	DealID  *string   `db:"deal_id"  json:"deal_id,omitempty"`

	// Client snapshot
	Cedula          string `db:"cedula"           json:"cedula"`
	Nombre          string `db:"nombre"           json:"nombre"`
	FechaNacimiento string `db:"fecha_nacimiento" json:"fecha_nacimiento"`
	Genero          string `db:"genero"           json:"genero"`
	EstadoCivil     string `db:"estado_civil"     json:"estado_civil"`
	Ciudad          string `db:"ciudad"           json:"ciudad"`

	// Vehicle snapshot
	Placa  string  `db:"placa"  json:"placa"`
	Marca  string  `db:"marca"  json:"marca"`
	Modelo string  `db:"modelo" json:"modelo"`
	Anio   int     `db:"anio"   json:"anio"`
	Valor  float64 `db:"valor"  json:"valor"`
	Uso    string  `db:"uso"    json:"uso"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
