// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

// Handler wraps application dependencies for HTTP handlers.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is a simple info endpoint for testing.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "Hello from Keygate!",
		"version": "0.1.0",
	}
	writeJSON(w, http.StatusOK, response)
}

// ErrorResponse is the envelope for errors originating in the gateway
// itself. Upstream error responses are relayed verbatim and never use
// this shape.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Path      string    `json:"path"`
}

// writeError writes the standard error envelope with the given status.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Status:    status,
		Error:     http.StatusText(status),
		Message:   message,
		Details:   details,
		Path:      r.URL.Path,
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already written; an encode failure here can
	// only be logged by the caller's access log.
	_ = json.NewEncoder(w).Encode(data)
}
