package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/keygate/keygate/internal/model"
)

// Common errors for service repository operations.
var (
	ErrServiceNotFound = errors.New("service not found")
)

// GetServiceByName retrieves a registered service by its unique name.
// The match is case-sensitive and exact.
func (r *Repository) GetServiceByName(ctx context.Context, name string) (*model.Service, error) {
	query := `
		SELECT id, service_name, base_url, auth_type, auth_credential,
		       cost_per_request, docs_url, created_at
		FROM api_services
		WHERE service_name = $1
	`

	var svc model.Service
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&svc.ID,
		&svc.ServiceName,
		&svc.BaseURL,
		&svc.AuthType,
		&svc.AuthCredential,
		&svc.CostPerRequest,
		&svc.DocsURL,
		&svc.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrServiceNotFound
		}
		return nil, fmt.Errorf("failed to get service by name: %w", err)
	}

	return &svc, nil
}
