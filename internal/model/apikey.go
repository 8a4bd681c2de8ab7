package model

import "time"

// APIKey represents an API key entity. Each key belongs to exactly one
// Account and is bound to exactly one Service at creation time.
type APIKey struct {
	ID        string    `json:"id"`
	Secret    string    `json:"-"` // Never serialize
	AccountID string    `json:"account_id"`
	ServiceID string    `json:"service_id"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// MaskSecret masks a presented credential for secure logging.
// Shows only the first 8 characters.
func MaskSecret(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:8] + "****"
}

// AuthContext holds authenticated request context.
// This is injected into the request context by the API-key middleware.
type AuthContext struct {
	KeyID        string
	AccountID    string
	AccountEmail string
}
