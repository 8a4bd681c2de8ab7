package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/keygate/keygate/internal/model"
	"github.com/redis/go-redis/v9"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420421

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetGatewaySchema drops and recreates the gateway schema for tests.
func ResetGatewaySchema(ctx context.Context, pool *pgxpool.Pool) error {
	root, err := ProjectRoot()
	if err != nil {
		return err
	}

	downPath := filepath.Join(root, "migrations", "000001_gateway.down.sql")
	upPath := filepath.Join(root, "migrations", "000001_gateway.up.sql")

	downSQL, err := os.ReadFile(downPath)
	if err != nil {
		return fmt.Errorf("read down migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(downSQL)); err != nil {
		return fmt.Errorf("apply down migration: %w", err)
	}

	upSQL, err := os.ReadFile(upPath)
	if err != nil {
		return fmt.Errorf("read up migration: %w", err)
	}
	if _, err := pool.Exec(ctx, string(upSQL)); err != nil {
		return fmt.Errorf("apply up migration: %w", err)
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ProjectRoot returns the project root directory.
func ProjectRoot() (string, error) {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to resolve testutil path")
	}
	root := filepath.Clean(filepath.Join(filepath.Dir(filename), "..", ".."))
	return root, nil
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestAccount creates a test account with sensible defaults.
func NewTestAccount(t testing.TB) *model.Account {
	t.Helper()
	now := time.Now().UTC()
	return &model.Account{
		ID:        fmt.Sprintf("acct-%d", now.UnixNano()),
		Name:      "Test Account",
		Email:     fmt.Sprintf("test-%d@example.com", now.UnixNano()),
		CreatedAt: now,
	}
}

// NewTestService creates a test service registration with no upstream
// authentication.
func NewTestService(t testing.TB, name, baseURL string) *model.Service {
	t.Helper()
	now := time.Now().UTC()
	return &model.Service{
		ID:          fmt.Sprintf("svc-%d", now.UnixNano()),
		ServiceName: name,
		BaseURL:     baseURL,
		AuthType:    model.AuthNone,
		CreatedAt:   now,
	}
}

// NewTestServiceWithAuth creates a test service with an upstream
// authentication recipe.
func NewTestServiceWithAuth(t testing.TB, name, baseURL, authType, credential string) *model.Service {
	t.Helper()
	svc := NewTestService(t, name, baseURL)
	svc.AuthType = authType
	svc.AuthCredential = credential
	return svc
}

// NewTestAPIKey creates an active test API key owned by accountID and
// bound to serviceID.
func NewTestAPIKey(t testing.TB, accountID, serviceID string) *model.APIKey {
	t.Helper()
	now := time.Now().UTC()
	return &model.APIKey{
		ID:        fmt.Sprintf("key-%d", now.UnixNano()),
		Secret:    fmt.Sprintf("gk_test_%032d", now.UnixNano()),
		AccountID: accountID,
		ServiceID: serviceID,
		Active:    true,
		CreatedAt: now,
	}
}

// NewTestUsageRecord creates a usage record for the given key and period.
func NewTestUsageRecord(t testing.TB, apiKeyID string, year, month int, count int64) *model.UsageRecord {
	t.Helper()
	now := time.Now().UTC()
	return &model.UsageRecord{
		ID:        fmt.Sprintf("usage-%d", now.UnixNano()),
		APIKeyID:  apiKeyID,
		Year:      year,
		Month:     month,
		Count:     count,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
