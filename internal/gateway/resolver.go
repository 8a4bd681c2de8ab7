package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keygate/keygate/internal/model"
	"github.com/keygate/keygate/internal/repository"
)

// Resolver extracts a service identifier from a request path and looks up
// its configuration.
type Resolver struct {
	store ServiceStore
}

// NewResolver creates a Resolver backed by the given store.
func NewResolver(store ServiceStore) *Resolver {
	return &Resolver{store: store}
}

// ExtractServiceName returns the final path segment, the service
// identifier. Leading and trailing separators are ignored, so "a/b/c",
// "/a/b/c" and "/a/b/c/" all yield "c". A path that is empty or consists
// only of separators yields a KindMalformedPath error.
func ExtractServiceName(path string) (string, error) {
	cleaned := strings.Trim(strings.TrimSpace(path), "/")
	if cleaned == "" {
		return "", newError(KindMalformedPath, "Invalid request path",
			"request path must contain at least one segment")
	}

	segments := strings.Split(cleaned, "/")
	return segments[len(segments)-1], nil
}

// Resolve extracts the service identifier from path and looks it up.
// The identifier match is case-sensitive and exact. Failures are
// classified as KindMalformedPath or KindServiceNotFound.
func (r *Resolver) Resolve(ctx context.Context, path string) (*model.Service, error) {
	name, err := ExtractServiceName(path)
	if err != nil {
		return nil, err
	}

	svc, err := r.store.GetServiceByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrServiceNotFound) {
			return nil, newError(KindServiceNotFound, "Service not found",
				fmt.Sprintf("no service registered for identifier %q", name))
		}
		return nil, wrapError(KindInternal, "service lookup failed", err)
	}

	return svc, nil
}
