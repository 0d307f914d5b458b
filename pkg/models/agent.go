// Package models contains shared data models used across the quoting portal.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent is an authenticated portal user. Every cotizacion belongs to
// exactly one agent.
type Agent struct {
	ID        uuid.UUID `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
