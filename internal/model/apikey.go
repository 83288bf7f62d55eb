package model

import (
	"time"

	"github.com/lib/pq"
)

// APIKey authenticates programmatic callers. The raw secret is returned only
// at creation; KeyHash is stored for lookup and KeyMasked for display.
// Revocation (IsActive true -> false) is one-way.
type APIKey struct {
	ID        string         `db:"id" json:"id"`
	UserID    string         `db:"user_id" json:"-"`
	Name      string         `db:"name" json:"name"`
	KeyHash   string         `db:"key_hash" json:"-"`
	KeyMasked string         `db:"key_masked" json:"key"`
	Scopes    pq.StringArray `db:"scopes" json:"permissions"`
	IsActive  bool           `db:"is_active" json:"is_active"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
	LastUsed  *time.Time     `db:"last_used" json:"last_used,omitempty"`
}

func (k *APIKey) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

type CreateAPIKeyParams struct {
	ID        string
	UserID    string
	Name      string
	KeyHash   string
	KeyMasked string
	Scopes    []string
}
