package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/keygate/keygate/internal/auth"
	"github.com/keygate/keygate/internal/gateway"
)

// GatewayHandler accepts any method, path, headers, and body at the
// wildcard route and relays the upstream response byte for byte.
type GatewayHandler struct {
	pipeline    *gateway.Pipeline
	logger      *slog.Logger
	maxBodySize int64
}

// NewGatewayHandler creates the wildcard proxy handler.
func NewGatewayHandler(pipeline *gateway.Pipeline, logger *slog.Logger, maxBodySize int64) *GatewayHandler {
	return &GatewayHandler{
		pipeline:    pipeline,
		logger:      logger.With("component", "handler.gateway"),
		maxBodySize: maxBodySize,
	}
}

// Proxy handles one inbound request end to end. The API-key middleware
// has already validated the credential and populated the auth context.
func (h *GatewayHandler) Proxy(w http.ResponseWriter, r *http.Request) {
	keyID := auth.KeyIDFromContext(r.Context())
	if keyID == "" {
		// Route misconfiguration: the middleware must run first.
		writeError(w, r, http.StatusUnauthorized, "Authentication required",
			"no valid API key found in request context")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large", "")
			return
		}
		writeError(w, r, http.StatusBadRequest, "Invalid request parameters",
			"failed to read request body")
		return
	}

	req := gateway.ProxyRequest{
		Method: r.Method,
		Header: r.Header.Clone(),
		Query:  r.URL.RawQuery,
		Body:   body,
	}

	resp, err := h.pipeline.Process(r.Context(), keyID, r.URL.Path, req)
	if err != nil {
		h.writePipelineError(w, r, err)
		return
	}

	// Relay status, headers, and body exactly as the upstream returned
	// them. Hop-by-hop headers were already stripped by the forwarder.
	header := w.Header()
	for name, values := range resp.Header {
		for _, value := range values {
			header.Add(name, value)
		}
	}
	w.WriteHeader(resp.Status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

// writePipelineError maps a classified pipeline failure onto the error
// envelope. Unclassified faults surface as a generic 500 with no internal
// detail leaked.
func (h *GatewayHandler) writePipelineError(w http.ResponseWriter, r *http.Request, err error) {
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) || gwErr.Kind == gateway.KindInternal {
		h.logger.Error("unclassified pipeline fault",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, r, http.StatusInternalServerError, "Internal server error",
			"An unexpected error occurred")
		return
	}

	status := gwErr.Kind.HTTPStatus()
	if status >= http.StatusInternalServerError {
		h.logger.Error("pipeline error",
			slog.String("kind", gwErr.Kind.String()),
			slog.String("path", r.URL.Path),
			slog.String("error", gwErr.Error()),
		)
	} else {
		h.logger.Warn("pipeline error",
			slog.String("kind", gwErr.Kind.String()),
			slog.String("path", r.URL.Path),
			slog.String("error", gwErr.Error()),
		)
	}

	writeError(w, r, status, gwErr.Message, gwErr.Details)
}
