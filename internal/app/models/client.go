package models

import (
	"strings"
	"time"
)

// APIClient is a calling system (enrollment, records, advising) authorized
// to invoke the engine. Secrets are stored bcrypt-hashed.
type APIClient struct {
	ID         string    `json:"id" db:"id" example:"enrollment-service"`
	Name       string    `json:"name" db:"name" example:"enrollment-service"`
	SecretHash string    `json:"-" db:"secret_hash"`
	Scope      string    `json:"scope" db:"scope" example:"runs:write"` // Space-separated scope list
	Enabled    bool      `json:"enabled" db:"enabled" example:"true"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// HasScope reports whether the client's scope list contains the given scope
func (c *APIClient) HasScope(scope string) bool {
	for _, s := range strings.Fields(c.Scope) {
		if s == scope {
			return true
		}
	}
	return false
}
