package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keygate/keygate/internal/auth"
	"github.com/keygate/keygate/internal/gateway"
	"github.com/keygate/keygate/internal/handler"
	"github.com/keygate/keygate/internal/metrics"
	"github.com/keygate/keygate/internal/model"
	"github.com/keygate/keygate/internal/repository"
)

type stubKeyStore struct {
	keys     map[string]*model.APIKey
	accounts map[string]*model.Account
}

func (s *stubKeyStore) GetAPIKeyBySecret(ctx context.Context, secret string) (*model.APIKey, error) {
	key, ok := s.keys[secret]
	if !ok {
		return nil, repository.ErrAPIKeyNotFound
	}
	return key, nil
}

func (s *stubKeyStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	acct, ok := s.accounts[id]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}
	return acct, nil
}

const (
	validSecret    = "gk_live_11111111111111111111111111111111"
	inactiveSecret = "gk_live_22222222222222222222222222222222"
	orphanSecret   = "gk_live_33333333333333333333333333333333"
)

func newAPIKeyMiddleware(recorder metrics.Recorder) func(http.Handler) http.Handler {
	store := &stubKeyStore{
		keys: map[string]*model.APIKey{
			validSecret:    {ID: "key-1", Secret: validSecret, AccountID: "acct-1", Active: true},
			inactiveSecret: {ID: "key-2", Secret: inactiveSecret, AccountID: "acct-1", Active: false},
			orphanSecret:   {ID: "key-3", Secret: orphanSecret, AccountID: "acct-gone", Active: true},
		},
		accounts: map[string]*model.Account{
			"acct-1": {ID: "acct-1", Name: "Ada", Email: "ada@example.com"},
		},
	}

	return APIKey(APIKeyConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Validator:  gateway.NewValidator(store),
		Metrics:    recorder,
		HeaderName: "x-api-key",
	})
}

func decodeAuthError(t *testing.T, rec *httptest.ResponseRecorder) (label, message string) {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode auth error: %v", err)
	}
	return body["error"], body["message"]
}

func TestAPIKey_MissingHeader(t *testing.T) {
	mw := newAPIKeyMiddleware(nil)
	nextCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/labs/api/textfy", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if nextCalled {
		t.Error("next handler must not run without a credential")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	label, message := decodeAuthError(t, rec)
	if label != "Missing API key" {
		t.Errorf("error = %q", label)
	}
	if message != "x-api-key header is required" {
		t.Errorf("message = %q", message)
	}
}

func TestAPIKey_RejectedCredentials(t *testing.T) {
	tests := []struct {
		name        string
		secret      string
		wantMessage string
	}{
		{name: "unknown key", secret: "gk_live_00000000000000000000000000000000", wantMessage: "Invalid API key"},
		{name: "inactive key", secret: inactiveSecret, wantMessage: "API key is inactive"},
		{name: "orphaned account", secret: orphanSecret, wantMessage: "Invalid user account"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := newAPIKeyMiddleware(nil)
			nextCalled := false
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/labs/api/textfy", nil)
			req.Header.Set("x-api-key", tt.secret)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if nextCalled {
				t.Error("next handler must not run for a rejected credential")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			label, message := decodeAuthError(t, rec)
			if label != "Authentication failed" {
				t.Errorf("error = %q", label)
			}
			if message != tt.wantMessage {
				t.Errorf("message = %q, want %q", message, tt.wantMessage)
			}
		})
	}
}

func TestAPIKey_ValidCredential(t *testing.T) {
	recorder := metrics.NewInMemory()
	mw := newAPIKeyMiddleware(recorder)

	var gotAuth *model.AuthContext
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = auth.AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/labs/api/textfy", nil)
	req.Header.Set("x-api-key", validSecret)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotAuth == nil {
		t.Fatal("auth context not injected")
	}
	if gotAuth.KeyID != "key-1" || gotAuth.AccountID != "acct-1" || gotAuth.AccountEmail != "ada@example.com" {
		t.Errorf("auth context = %+v", gotAuth)
	}

	snap := recorder.Snapshot()
	if snap.AuthSuccesses != 1 {
		t.Errorf("AuthSuccesses = %d, want 1", snap.AuthSuccesses)
	}
	if snap.AuthFailures != 0 {
		t.Errorf("AuthFailures = %d, want 0", snap.AuthFailures)
	}
}

// A whitespace-only header value is treated as a missing credential,
// not as an invalid key.
func TestAPIKey_BlankHeader(t *testing.T) {
	mw := newAPIKeyMiddleware(nil)
	nextCalled := false
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/labs/api/textfy", nil)
	req.Header.Set("x-api-key", "   ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if nextCalled {
		t.Error("next handler must not run without a credential")
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	label, message := decodeAuthError(t, rec)
	if label != "Missing API key" {
		t.Errorf("error = %q, want %q", label, "Missing API key")
	}
	if message != "x-api-key header is required" {
		t.Errorf("message = %q", message)
	}
}

type faultingKeyStore struct{}

func (faultingKeyStore) GetAPIKeyBySecret(ctx context.Context, secret string) (*model.APIKey, error) {
	return nil, errors.New("connection refused")
}

func (faultingKeyStore) GetAccountByID(ctx context.Context, id string) (*model.Account, error) {
	return nil, errors.New("connection refused")
}

// A store fault during validation is a gateway failure, not an
// authentication verdict. The caller holding a valid key must not be
// told the key is invalid.
func TestAPIKey_StoreFault(t *testing.T) {
	mw := APIKey(APIKeyConfig{
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Validator:  gateway.NewValidator(faultingKeyStore{}),
		HeaderName: "x-api-key",
	})
	nextCalled := false
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/labs/api/textfy", nil)
	req.Header.Set("x-api-key", validSecret)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if nextCalled {
		t.Error("next handler must not run when validation could not complete")
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var envelope handler.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("failed to decode error envelope: %v", err)
	}
	if envelope.Status != http.StatusInternalServerError {
		t.Errorf("envelope status = %d, want 500", envelope.Status)
	}
	if envelope.Error != "Internal Server Error" {
		t.Errorf("envelope error = %q", envelope.Error)
	}
	if envelope.Message != "Internal server error" {
		t.Errorf("envelope message = %q", envelope.Message)
	}
	if envelope.Path != "/labs/api/textfy" {
		t.Errorf("envelope path = %q", envelope.Path)
	}
	if envelope.Timestamp.IsZero() {
		t.Error("envelope timestamp not set")
	}
}

// Surrounding whitespace in the header value is tolerated.
func TestAPIKey_TrimsWhitespace(t *testing.T) {
	mw := newAPIKeyMiddleware(nil)
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/labs/api/textfy", nil)
	req.Header.Set("x-api-key", "  "+validSecret+"  ")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
