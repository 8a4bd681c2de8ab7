package cache

import (
	"context"

	"github.com/keygate/keygate/internal/model"
)

// serviceSource is the store the read-through decorator falls back to.
type serviceSource interface {
	GetServiceByName(ctx context.Context, name string) (*model.Service, error)
}

// ServiceStore is a read-through cache in front of the service registry.
// It satisfies the gateway's ServiceStore interface. Cache failures fall
// back to the source; they never fail a lookup.
type ServiceStore struct {
	source serviceSource
	cache  *Cache
}

// NewServiceStore wraps source with the Redis service-config cache.
func NewServiceStore(source serviceSource, cache *Cache) *ServiceStore {
	return &ServiceStore{source: source, cache: cache}
}

// GetServiceByName returns the cached config when present, otherwise
// loads from the source and populates the cache.
func (s *ServiceStore) GetServiceByName(ctx context.Context, name string) (*model.Service, error) {
	if svc, _ := s.cache.GetService(ctx, name); svc != nil {
		return svc, nil
	}

	svc, err := s.source.GetServiceByName(ctx, name)
	if err != nil {
		return nil, err
	}

	// Best effort; a write failure only costs the next lookup
	_ = s.cache.SetService(ctx, svc)

	return svc, nil
}
