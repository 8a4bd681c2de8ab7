package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/keygate/keygate/internal/model"
)

// Common errors for usage repository operations.
var (
	ErrUsageNotFound     = errors.New("usage record not found")
	ErrUsageRecordExists = errors.New("usage record already exists")
)

// IncrementUsage atomically increments the usage counter for the given
// key and period. Returns the number of rows affected: zero means no
// record exists yet for that period and the caller should create one.
func (r *Repository) IncrementUsage(ctx context.Context, apiKeyID string, year, month int) (int64, error) {
	query := `
		UPDATE usage_records
		SET count = count + 1, updated_at = $4
		WHERE api_key_id = $1 AND year = $2 AND month = $3
	`

	result, err := r.pool.Exec(ctx, query, apiKeyID, year, month, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to increment usage: %w", err)
	}

	return result.RowsAffected(), nil
}

// CreateUsageRecord inserts a new usage record with an initial count of 1.
// A unique constraint on (api_key_id, year, month) guarantees at most one
// record per period; a concurrent creation surfaces as ErrUsageRecordExists
// so the caller can fall back to incrementing.
func (r *Repository) CreateUsageRecord(ctx context.Context, rec *model.UsageRecord) error {
	query := `
		INSERT INTO usage_records (id, api_key_id, year, month, count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query,
		rec.ID,
		rec.APIKeyID,
		rec.Year,
		rec.Month,
		rec.Count,
		rec.CreatedAt,
		rec.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrUsageRecordExists
		}
		return fmt.Errorf("failed to create usage record: %w", err)
	}

	return nil
}

// GetUsage retrieves the usage record for a key and period.
func (r *Repository) GetUsage(ctx context.Context, apiKeyID string, year, month int) (*model.UsageRecord, error) {
	query := `
		SELECT id, api_key_id, year, month, count, created_at, updated_at
		FROM usage_records
		WHERE api_key_id = $1 AND year = $2 AND month = $3
	`

	var rec model.UsageRecord
	err := r.pool.QueryRow(ctx, query, apiKeyID, year, month).Scan(
		&rec.ID,
		&rec.APIKeyID,
		&rec.Year,
		&rec.Month,
		&rec.Count,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUsageNotFound
		}
		return nil, fmt.Errorf("failed to get usage record: %w", err)
	}

	return &rec, nil
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	// PostgreSQL error code 23505 is unique_violation
	return err != nil && (strings.Contains(err.Error(), "23505") || strings.Contains(err.Error(), "unique"))
}
