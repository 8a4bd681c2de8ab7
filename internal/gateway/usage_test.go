package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keygate/keygate/internal/model"
	"github.com/keygate/keygate/internal/repository"
)

// fakeUsageStore mimics the database semantics the tracker relies on:
// conditional increment reporting affected rows, and inserts that fail
// with ErrUsageRecordExists on a duplicate period.
type fakeUsageStore struct {
	mu      sync.Mutex
	records map[string]*model.UsageRecord

	incrementErr error
	createErr    error
	// failFirstCreate simulates losing the creation race: the first
	// CreateUsageRecord call returns ErrUsageRecordExists after inserting
	// the record on behalf of the imaginary concurrent winner.
	failFirstCreate bool
	createCalls     int
}

func newFakeUsageStore() *fakeUsageStore {
	return &fakeUsageStore{records: make(map[string]*model.UsageRecord)}
}

func usageKey(apiKeyID string, year, month int) string {
	return fmt.Sprintf("%s/%d/%02d", apiKeyID, year, month)
}

func (s *fakeUsageStore) IncrementUsage(ctx context.Context, apiKeyID string, year, month int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.incrementErr != nil {
		return 0, s.incrementErr
	}
	rec, ok := s.records[usageKey(apiKeyID, year, month)]
	if !ok {
		return 0, nil
	}
	rec.Count++
	rec.UpdatedAt = time.Now().UTC()
	return 1, nil
}

func (s *fakeUsageStore) CreateUsageRecord(ctx context.Context, rec *model.UsageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	s.createCalls++
	key := usageKey(rec.APIKeyID, rec.Year, rec.Month)
	if s.failFirstCreate && s.createCalls == 1 {
		winner := *rec
		winner.Count = 1
		s.records[key] = &winner
		return repository.ErrUsageRecordExists
	}
	if _, exists := s.records[key]; exists {
		return repository.ErrUsageRecordExists
	}
	clone := *rec
	s.records[key] = &clone
	return nil
}

func (s *fakeUsageStore) GetUsage(ctx context.Context, apiKeyID string, year, month int) (*model.UsageRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[usageKey(apiKeyID, year, month)]
	if !ok {
		return nil, repository.ErrUsageNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *fakeUsageStore) count(apiKeyID string, year, month int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[usageKey(apiKeyID, year, month)]
	if !ok {
		return 0
	}
	return rec.Count
}

func fixedTracker(store UsageStore, at time.Time) *UsageTracker {
	t := NewUsageTracker(store)
	t.now = func() time.Time { return at }
	return t
}

func TestUsageTracker_Record_CreatesFirstRecord(t *testing.T) {
	store := newFakeUsageStore()
	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	tracker := fixedTracker(store, at)

	if err := tracker.Record(context.Background(), "key-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec, err := store.GetUsage(context.Background(), "key-1", 2026, 3)
	if err != nil {
		t.Fatalf("record not created: %v", err)
	}
	if rec.Count != 1 {
		t.Errorf("Count = %d, want 1", rec.Count)
	}
	if rec.ID == "" {
		t.Error("ID must be assigned on creation")
	}
}

func TestUsageTracker_Record_IncrementsExisting(t *testing.T) {
	store := newFakeUsageStore()
	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	tracker := fixedTracker(store, at)

	for i := 0; i < 3; i++ {
		if err := tracker.Record(context.Background(), "key-1"); err != nil {
			t.Fatalf("Record #%d: %v", i+1, err)
		}
	}

	if got := store.count("key-1", 2026, 3); got != 3 {
		t.Errorf("Count = %d, want 3", got)
	}
}

func TestUsageTracker_Record_SeparatePeriods(t *testing.T) {
	store := newFakeUsageStore()
	march := fixedTracker(store, time.Date(2026, time.March, 31, 23, 59, 0, 0, time.UTC))
	april := fixedTracker(store, time.Date(2026, time.April, 1, 0, 1, 0, 0, time.UTC))

	if err := march.Record(context.Background(), "key-1"); err != nil {
		t.Fatalf("march: %v", err)
	}
	if err := april.Record(context.Background(), "key-1"); err != nil {
		t.Fatalf("april: %v", err)
	}

	if got := store.count("key-1", 2026, 3); got != 1 {
		t.Errorf("march Count = %d, want 1", got)
	}
	if got := store.count("key-1", 2026, 4); got != 1 {
		t.Errorf("april Count = %d, want 1", got)
	}
}

func TestUsageTracker_Record_CreationRaceRetriesIncrement(t *testing.T) {
	store := newFakeUsageStore()
	store.failFirstCreate = true
	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	tracker := fixedTracker(store, at)

	if err := tracker.Record(context.Background(), "key-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The racing winner inserted count 1; the retry increment adds ours.
	if got := store.count("key-1", 2026, 3); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
	if store.createCalls != 1 {
		t.Errorf("createCalls = %d, want 1", store.createCalls)
	}
}

type vanishingUsageStore struct {
	*fakeUsageStore
}

// IncrementUsage always reports no affected rows, so the retry after the
// creation race also misses.
func (s *vanishingUsageStore) IncrementUsage(ctx context.Context, apiKeyID string, year, month int) (int64, error) {
	return 0, nil
}

func TestUsageTracker_Record_MissingAfterRaceIsError(t *testing.T) {
	inner := newFakeUsageStore()
	inner.failFirstCreate = true
	store := &vanishingUsageStore{fakeUsageStore: inner}
	tracker := fixedTracker(store, time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC))

	err := tracker.Record(context.Background(), "key-1")
	if err == nil {
		t.Fatal("expected error when record vanishes after creation race")
	}
}

func TestUsageTracker_Record_StoreFaults(t *testing.T) {
	t.Run("increment fault", func(t *testing.T) {
		store := newFakeUsageStore()
		store.incrementErr = errors.New("connection lost")
		tracker := NewUsageTracker(store)

		if err := tracker.Record(context.Background(), "key-1"); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("create fault", func(t *testing.T) {
		store := newFakeUsageStore()
		store.createErr = errors.New("connection lost")
		tracker := NewUsageTracker(store)

		if err := tracker.Record(context.Background(), "key-1"); err == nil {
			t.Fatal("expected error")
		}
	})
}

// N concurrent recordings against an empty period must produce a count of
// exactly N: no recording is lost and none is double counted.
func TestUsageTracker_Record_Concurrent(t *testing.T) {
	store := newFakeUsageStore()
	at := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	tracker := fixedTracker(store, at)

	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- tracker.Record(context.Background(), "key-1")
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Record failed: %v", err)
		}
	}

	if got := store.count("key-1", 2026, 3); got != n {
		t.Errorf("Count = %d, want %d", got, n)
	}
}
