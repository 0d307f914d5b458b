package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey authenticates an agent against the portal API. Only the bcrypt
// hash is stored; the prefix narrows the lookup before comparison.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	AgentID    uuid.UUID  `db:"agent_id"     json:"agent_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}
