package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/keygate/keygate/internal/model"
)

// Common errors for API key repository operations.
var (
	ErrAPIKeyNotFound = errors.New("API key not found")
)

// GetAPIKeyBySecret retrieves an API key by its secret string.
// Used during authentication; returns ErrAPIKeyNotFound when no key
// matches the presented secret.
func (r *Repository) GetAPIKeyBySecret(ctx context.Context, secret string) (*model.APIKey, error) {
	query := `
		SELECT id, secret, account_id, service_id, active, created_at
		FROM api_keys
		WHERE secret = $1
	`

	var key model.APIKey
	err := r.pool.QueryRow(ctx, query, secret).Scan(
		&key.ID,
		&key.Secret,
		&key.AccountID,
		&key.ServiceID,
		&key.Active,
		&key.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key by secret: %w", err)
	}

	return &key, nil
}

// GetAPIKeyByID retrieves an API key by its ID.
func (r *Repository) GetAPIKeyByID(ctx context.Context, id string) (*model.APIKey, error) {
	query := `
		SELECT id, secret, account_id, service_id, active, created_at
		FROM api_keys
		WHERE id = $1
	`

	var key model.APIKey
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&key.ID,
		&key.Secret,
		&key.AccountID,
		&key.ServiceID,
		&key.Active,
		&key.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key by ID: %w", err)
	}

	return &key, nil
}
