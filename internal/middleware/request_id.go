// Package middleware provides the HTTP middleware chain in front of
// the proxy pipeline.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// contextKey keeps request-scoped values from colliding with keys set
// by other packages.
type contextKey string

const (
	// RequestIDKey is the context key for the request ID.
	RequestIDKey contextKey = "request_id"
	// TraceIDKey is the context key for the caller-supplied trace ID.
	TraceIDKey contextKey = "trace_id"
)

// RequestIDHeader carries the request ID on the wire.
const RequestIDHeader = "X-Request-ID"

// TraceIDHeader carries an optional caller trace ID.
const TraceIDHeader = "X-Trace-ID"

// RequestID tags every exchange with an id that follows it through the
// auth, forward, and usage logs. An inbound X-Request-ID is honored so
// callers can correlate against their own systems; otherwise a fresh
// UUID is generated. Both ids are echoed on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}

		traceID := r.Header.Get(TraceIDHeader)

		ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
		if traceID != "" {
			ctx = context.WithValue(ctx, TraceIDKey, traceID)
		}

		w.Header().Set(RequestIDHeader, requestID)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTraceID retrieves the trace ID from context.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}
