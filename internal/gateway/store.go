package gateway

import (
	"context"

	"github.com/keygate/keygate/internal/model"
)

// The pipeline reaches the backing store only through these narrow
// interfaces. *repository.Repository satisfies all of them; tests use
// in-memory fakes. Not-found conditions are reported with the repository
// sentinel errors (repository.ErrAPIKeyNotFound and friends).

// KeyStore looks up API keys and their owning accounts.
type KeyStore interface {
	GetAPIKeyBySecret(ctx context.Context, secret string) (*model.APIKey, error)
	GetAccountByID(ctx context.Context, id string) (*model.Account, error)
}

// ServiceStore looks up registered services by name.
type ServiceStore interface {
	GetServiceByName(ctx context.Context, name string) (*model.Service, error)
}

// UsageStore persists per-key monthly usage counters. IncrementUsage must
// be an atomic conditional update returning the affected row count, and
// CreateUsageRecord must enforce uniqueness on (key, year, month).
type UsageStore interface {
	IncrementUsage(ctx context.Context, apiKeyID string, year, month int) (int64, error)
	CreateUsageRecord(ctx context.Context, rec *model.UsageRecord) error
	GetUsage(ctx context.Context, apiKeyID string, year, month int) (*model.UsageRecord, error)
}
