package gateway

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/keygate/keygate/internal/model"
)

// InjectCredentials applies the service's authentication recipe to the
// outbound header set. Recipe kinds are matched case-insensitively. Any
// configuration error aborts the pipeline before forwarding: a partially
// authenticated request is never sent.
func InjectCredentials(header http.Header, svc *model.Service) error {
	kind := strings.ToLower(strings.TrimSpace(svc.AuthType))

	if kind == model.AuthNone {
		return nil
	}

	credential := svc.AuthCredential
	if credential == "" {
		return newError(KindBadAuthConfig, "Authentication configuration error",
			fmt.Sprintf("empty credential for authentication type %q", svc.AuthType))
	}

	switch kind {
	case model.AuthBearer:
		header.Set("Authorization", "Bearer "+credential)
		return nil

	case model.AuthBasic:
		return injectBasic(header, credential)

	case model.AuthAPIKey:
		return injectAPIKey(header, credential)

	default:
		return newError(KindBadAuthConfig, "Authentication configuration error",
			fmt.Sprintf("unsupported authentication type %q", svc.AuthType))
	}
}

// injectBasic expects the credential in "username:password" form and sets
// the base64-encoded Authorization header.
func injectBasic(header http.Header, credential string) error {
	if !strings.Contains(credential, ":") {
		return newError(KindBadAuthConfig, "Authentication configuration error",
			"basic authentication credential must be in 'username:password' form")
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(credential))
	header.Set("Authorization", "Basic "+encoded)
	return nil
}

// injectAPIKey expects the credential in "headerName:headerValue" form,
// split on the first colon, and sets the named header.
func injectAPIKey(header http.Header, credential string) error {
	name, value, found := strings.Cut(credential, ":")
	if !found {
		return newError(KindBadAuthConfig, "Authentication configuration error",
			"api key credential must be in 'headerName:headerValue' form")
	}

	name = strings.TrimSpace(name)
	value = strings.TrimSpace(value)
	if name == "" || value == "" {
		return newError(KindBadAuthConfig, "Authentication configuration error",
			"api key credential header name and value must be non-empty")
	}

	header.Set(name, value)
	return nil
}
