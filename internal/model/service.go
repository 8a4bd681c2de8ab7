package model

import "time"

// Authentication recipe kinds for upstream services.
// Kind matching is case-insensitive.
const (
	AuthNone   = "none"
	AuthBearer = "bearer"
	AuthBasic  = "basic"
	AuthAPIKey = "apikey"
)

// Service represents a registered upstream destination.
// ServiceName is globally unique and is the join key for path-based
// resolution: the final segment of an inbound request path selects it.
type Service struct {
	ID             string    `json:"id"`
	ServiceName    string    `json:"service_name"`
	BaseURL        string    `json:"base_url"`
	AuthType       string    `json:"auth_type"`
	AuthCredential string    `json:"-"` // Never serialize
	CostPerRequest *float64  `json:"cost_per_request,omitempty"`
	DocsURL        *string   `json:"docs_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
