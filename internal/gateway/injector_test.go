package gateway

import (
	"encoding/base64"
	"errors"
	"net/http"
	"testing"

	"github.com/keygate/keygate/internal/model"
)

func TestInjectCredentials_None(t *testing.T) {
	header := http.Header{}
	svc := &model.Service{AuthType: model.AuthNone}

	if err := InjectCredentials(header, svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(header) != 0 {
		t.Errorf("expected no headers set, got %v", header)
	}
}

func TestInjectCredentials_Bearer(t *testing.T) {
	header := http.Header{}
	svc := &model.Service{AuthType: model.AuthBearer, AuthCredential: "abc123"}

	if err := InjectCredentials(header, svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := header.Get("Authorization"); got != "Bearer abc123" {
		t.Errorf("Authorization = %q, want %q", got, "Bearer abc123")
	}
}

func TestInjectCredentials_Basic(t *testing.T) {
	header := http.Header{}
	svc := &model.Service{AuthType: model.AuthBasic, AuthCredential: "user:pass"}

	if err := InjectCredentials(header, svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "Basic " + base64.StdEncoding.EncodeToString([]byte("user:pass"))
	if got := header.Get("Authorization"); got != want {
		t.Errorf("Authorization = %q, want %q", got, want)
	}
}

func TestInjectCredentials_APIKey(t *testing.T) {
	header := http.Header{}
	svc := &model.Service{AuthType: model.AuthAPIKey, AuthCredential: "X-Service-Key: secret-value"}

	if err := InjectCredentials(header, svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := header.Get("X-Service-Key"); got != "secret-value" {
		t.Errorf("X-Service-Key = %q, want %q", got, "secret-value")
	}
}

// A credential value containing further colons is split only on the first.
func TestInjectCredentials_APIKey_ColonInValue(t *testing.T) {
	header := http.Header{}
	svc := &model.Service{AuthType: model.AuthAPIKey, AuthCredential: "X-Token:a:b:c"}

	if err := InjectCredentials(header, svc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := header.Get("X-Token"); got != "a:b:c" {
		t.Errorf("X-Token = %q, want %q", got, "a:b:c")
	}
}

func TestInjectCredentials_CaseInsensitiveKind(t *testing.T) {
	tests := []struct {
		name     string
		authType string
	}{
		{name: "upper", authType: "BEARER"},
		{name: "mixed", authType: "Bearer"},
		{name: "padded", authType: " bearer "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			svc := &model.Service{AuthType: tt.authType, AuthCredential: "tok"}

			if err := InjectCredentials(header, svc); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q", got)
			}
		})
	}
}

func TestInjectCredentials_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		svc  *model.Service
	}{
		{name: "bearer empty credential", svc: &model.Service{AuthType: model.AuthBearer}},
		{name: "basic empty credential", svc: &model.Service{AuthType: model.AuthBasic}},
		{name: "basic missing colon", svc: &model.Service{AuthType: model.AuthBasic, AuthCredential: "userpass"}},
		{name: "apikey missing colon", svc: &model.Service{AuthType: model.AuthAPIKey, AuthCredential: "X-Token"}},
		{name: "apikey empty header name", svc: &model.Service{AuthType: model.AuthAPIKey, AuthCredential: ":value"}},
		{name: "apikey empty value", svc: &model.Service{AuthType: model.AuthAPIKey, AuthCredential: "X-Token: "}},
		{name: "unknown kind", svc: &model.Service{AuthType: "oauth2", AuthCredential: "tok"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			err := InjectCredentials(header, tt.svc)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var gwErr *Error
			if !errors.As(err, &gwErr) || gwErr.Kind != KindBadAuthConfig {
				t.Errorf("expected KindBadAuthConfig, got %v", err)
			}
			// A failed injection must leave the header set untouched.
			if len(header) != 0 {
				t.Errorf("headers modified on error: %v", header)
			}
		})
	}
}
