package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/keygate/keygate/internal/model"
	"github.com/keygate/keygate/internal/repository"
)

// UsageTracker maintains the per-key monthly usage counters. It is the
// only writer of usage records.
type UsageTracker struct {
	store UsageStore
	now   func() time.Time
}

// NewUsageTracker creates a UsageTracker backed by the given store.
func NewUsageTracker(store UsageStore) *UsageTracker {
	return &UsageTracker{
		store: store,
		now:   time.Now,
	}
}

// Record counts one request against the key for the current month.
//
// It first attempts an atomic increment of the existing record; when no
// record exists it creates one with count = 1. If the creation loses a
// race to a concurrent caller it retries the increment exactly once; a
// still-zero result at that point is reported as an error rather than
// swallowed. This avoids a read-then-write existence check while still
// terminating in two attempts under contention.
func (t *UsageTracker) Record(ctx context.Context, apiKeyID string) error {
	now := t.now().UTC()
	year, month := now.Year(), int(now.Month())

	affected, err := t.store.IncrementUsage(ctx, apiKeyID, year, month)
	if err != nil {
		return fmt.Errorf("increment usage: %w", err)
	}
	if affected > 0 {
		return nil
	}

	rec := &model.UsageRecord{
		ID:        ulid.Make().String(),
		APIKeyID:  apiKeyID,
		Year:      year,
		Month:     month,
		Count:     1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = t.store.CreateUsageRecord(ctx, rec)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrUsageRecordExists) {
		return fmt.Errorf("create usage record: %w", err)
	}

	// A concurrent caller created the record first; count against it.
	affected, err = t.store.IncrementUsage(ctx, apiKeyID, year, month)
	if err != nil {
		return fmt.Errorf("increment usage after creation race: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("usage record for key %s period %d-%02d missing after creation race", apiKeyID, year, month)
	}

	return nil
}
