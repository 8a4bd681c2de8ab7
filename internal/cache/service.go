package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/keygate/keygate/internal/model"
)

const (
	// serviceCachePrefix is the Redis key prefix for service config cache.
	serviceCachePrefix = "svc:cfg:"
	// serviceCacheTTL is the time-to-live for cached service configs.
	serviceCacheTTL = 5 * time.Minute
)

// cachedService represents a service config stored in Redis. The model's
// JSON tags hide the credential, so the cache uses its own encoding.
type cachedService struct {
	ID             string    `json:"id"`
	ServiceName    string    `json:"service_name"`
	BaseURL        string    `json:"base_url"`
	AuthType       string    `json:"auth_type"`
	AuthCredential string    `json:"auth_credential"`
	CostPerRequest *float64  `json:"cost_per_request,omitempty"`
	DocsURL        *string   `json:"docs_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GetService retrieves a cached service config by service name.
// Returns nil if not found (cache miss).
func (c *Cache) GetService(ctx context.Context, name string) (*model.Service, error) {
	key := serviceCachePrefix + name

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		// Cache miss is not an error
		return nil, nil //nolint:nilerr
	}

	var cached cachedService
	if err := json.Unmarshal(data, &cached); err != nil {
		// Corrupted cache entry - treat as miss
		return nil, nil //nolint:nilerr
	}

	return &model.Service{
		ID:             cached.ID,
		ServiceName:    cached.ServiceName,
		BaseURL:        cached.BaseURL,
		AuthType:       cached.AuthType,
		AuthCredential: cached.AuthCredential,
		CostPerRequest: cached.CostPerRequest,
		DocsURL:        cached.DocsURL,
		CreatedAt:      cached.CreatedAt,
	}, nil
}

// SetService caches a service config under its name.
func (c *Cache) SetService(ctx context.Context, svc *model.Service) error {
	key := serviceCachePrefix + svc.ServiceName

	cached := cachedService{
		ID:             svc.ID,
		ServiceName:    svc.ServiceName,
		BaseURL:        svc.BaseURL,
		AuthType:       svc.AuthType,
		AuthCredential: svc.AuthCredential,
		CostPerRequest: svc.CostPerRequest,
		DocsURL:        svc.DocsURL,
		CreatedAt:      svc.CreatedAt,
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshal service: %w", err)
	}

	return c.client.Set(ctx, key, data, serviceCacheTTL).Err()
}
