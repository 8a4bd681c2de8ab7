// Package gateway implements the request-processing pipeline: key
// validation, service resolution, credential injection, forwarding, and
// usage tracking.
package gateway

import (
	"fmt"
	"net/http"
)

// Kind classifies a pipeline failure for error mapping.
type Kind int

// Failure kinds, in pipeline order.
const (
	KindInternal Kind = iota
	KindMissingCredential
	KindUnknownCredential
	KindInactiveKey
	KindOrphanedAccount
	KindMalformedPath
	KindServiceNotFound
	KindBadAuthConfig
	KindTimeout
	KindUnreachable
)

// HTTPStatus maps a failure kind to the status code surfaced to the caller.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMissingCredential, KindUnknownCredential, KindInactiveKey, KindOrphanedAccount:
		return http.StatusUnauthorized
	case KindMalformedPath, KindBadAuthConfig:
		return http.StatusBadRequest
	case KindServiceNotFound:
		return http.StatusNotFound
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// String returns a short label for logging.
func (k Kind) String() string {
	switch k {
	case KindMissingCredential:
		return "missing_credential"
	case KindUnknownCredential:
		return "unknown_credential"
	case KindInactiveKey:
		return "inactive_key"
	case KindOrphanedAccount:
		return "orphaned_account"
	case KindMalformedPath:
		return "malformed_path"
	case KindServiceNotFound:
		return "service_not_found"
	case KindBadAuthConfig:
		return "bad_auth_config"
	case KindTimeout:
		return "timeout"
	case KindUnreachable:
		return "unreachable"
	default:
		return "internal"
	}
}

// Error is a classified pipeline failure. Message is safe to surface to
// the caller; Details may carry additional caller-visible context.
type Error struct {
	Kind    Kind
	Message string
	Details string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message, details string) *Error {
	return &Error{Kind: kind, Message: message, Details: details}
}

func wrapError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}
