package middleware

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/keygate/keygate/internal/auth"
	"github.com/keygate/keygate/internal/cache"
	"github.com/keygate/keygate/internal/gateway"
	"github.com/keygate/keygate/internal/handler"
	"github.com/keygate/keygate/internal/metrics"
	"github.com/keygate/keygate/internal/model"
)

// APIKeyConfig holds configuration for the API-key middleware.
type APIKeyConfig struct {
	Logger    *slog.Logger
	Validator *gateway.Validator
	Metrics   metrics.Recorder
	// HeaderName is the inbound credential header, canonically "x-api-key".
	HeaderName string
	// Cache is optional; when nil every request hits the store.
	Cache *cache.Cache
}

// APIKey returns a middleware that validates the presented API key before
// any other component runs. Validation failures short-circuit with a 401;
// on success the auth context is injected into the request context.
func APIKey(cfg APIKeyConfig) func(http.Handler) http.Handler {
	recorder := cfg.Metrics
	if recorder == nil {
		recorder = metrics.NewNoop()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// A whitespace-only value counts as absent, same as no
			// header at all.
			secret := strings.TrimSpace(r.Header.Get(cfg.HeaderName))
			if secret == "" {
				recorder.IncAuthFailure("missing")
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", "missing_key"),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, "Missing API key",
					fmt.Sprintf("%s header is required", cfg.HeaderName))
				return
			}

			// Check cache first
			if cfg.Cache != nil {
				cacheKey := auth.QuickHash(secret)
				authCtx, _ := cfg.Cache.GetAuthContext(r.Context(), cacheKey)
				if authCtx != nil {
					recorder.IncAuthCacheHit()
					recorder.IncAuthSuccess()
					cfg.Logger.Info("authentication successful",
						slog.String("key_id", authCtx.KeyID),
						slog.String("account_id", authCtx.AccountID),
						slog.Bool("cache_hit", true),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
					return
				}
				recorder.IncAuthCacheMiss()
			}

			result, err := cfg.Validator.Validate(r.Context(), secret)
			if err != nil {
				cfg.Logger.Error("store error during auth",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				// A store fault is not a verdict on the credential.
				// The caller is never told their key is invalid.
				writeStoreFault(w, r)
				return
			}

			if !result.Valid() {
				reason, message := classifyFailure(result.Status)
				recorder.IncAuthFailure(reason)
				cfg.Logger.Warn("authentication failed",
					slog.String("reason", reason),
					slog.String("key", model.MaskSecret(secret)),
					slog.String("ip", r.RemoteAddr),
					slog.String("endpoint", r.Method+" "+r.URL.Path),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeAuthError(w, "Authentication failed", message)
				return
			}

			authCtx := &model.AuthContext{
				KeyID:        result.Key.ID,
				AccountID:    result.Account.ID,
				AccountEmail: result.Account.Email,
			}

			// Cache the result
			if cfg.Cache != nil {
				_ = cfg.Cache.SetAuthContext(r.Context(), auth.QuickHash(secret), authCtx)
			}

			recorder.IncAuthSuccess()
			cfg.Logger.Info("authentication successful",
				slog.String("key_id", authCtx.KeyID),
				slog.String("account_id", authCtx.AccountID),
				slog.String("account_email", authCtx.AccountEmail),
				slog.Bool("cache_hit", false),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			next.ServeHTTP(w, r.WithContext(auth.ContextWithAuth(r.Context(), authCtx)))
		})
	}
}

// classifyFailure maps a validation status to a metrics reason and the
// caller-visible message.
func classifyFailure(status gateway.ValidationStatus) (reason, message string) {
	switch status {
	case gateway.StatusInactive:
		return "inactive", "API key is inactive"
	case gateway.StatusOrphanedAccount:
		return "orphaned", "Invalid user account"
	default:
		return "unknown", "Invalid API key"
	}
}

// writeAuthError writes a 401 Unauthorized response in the fixed JSON
// shape the gateway promises for authentication failures.
func writeAuthError(w http.ResponseWriter, label, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":%q,"message":%q}`, label, message)
}

// writeStoreFault writes the gateway's standard 500 envelope. Only
// key-validation outcomes use the 401 auth-error shape.
func writeStoreFault(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(handler.ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    http.StatusInternalServerError,
		Error:     http.StatusText(http.StatusInternalServerError),
		Message:   "Internal server error",
		Details:   "An unexpected error occurred",
		Path:      r.URL.Path,
	})
}
