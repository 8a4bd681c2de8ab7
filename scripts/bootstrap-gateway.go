// Command bootstrap-gateway seeds an account, a service registration,
// and an active API key, then prints the key secret. Intended for local
// setup and CI, not for production key issuance.
package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/oklog/ulid/v2"

	"github.com/keygate/keygate/internal/auth"
	"github.com/keygate/keygate/internal/model"
)

type output struct {
	AccountID   string `json:"account_id"`
	Email       string `json:"email"`
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	KeyID       string `json:"key_id"`
	Key         string `json:"key"`
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		accountName = flag.String("account-name", "bootstrap", "Account name")
		email       = flag.String("email", "bootstrap@keygate.local", "Account email")
		serviceName = flag.String("service", "", "Service name to register (required)")
		baseURL     = flag.String("base-url", "", "Service base URL (required)")
		authType    = flag.String("auth-type", model.AuthNone, "Upstream auth type: none, bearer, basic, apikey")
		credential  = flag.String("credential", "", "Upstream credential (format depends on auth type)")
		keyEnv      = flag.String("key-env", auth.EnvLive, "Key environment: live or test")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}
	if *serviceName == "" || *baseURL == "" {
		fmt.Fprintln(os.Stderr, "-service and -base-url are required")
		os.Exit(1)
	}
	if err := validateAuthType(*authType, *credential); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open database:", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}

	now := time.Now().UTC()

	accountID, err := ensureAccount(db, *accountName, *email, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	serviceID, err := ensureService(db, *serviceName, *baseURL, *authType, *credential, now)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	secret, err := auth.GenerateAPIKey(*keyEnv)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate api key:", err)
		os.Exit(1)
	}

	keyID := ulid.Make().String()
	_, err = db.Exec(
		`INSERT INTO api_keys (id, secret, account_id, service_id, active, created_at)
		 VALUES ($1, $2, $3, $4, TRUE, $5)`,
		keyID, secret, accountID, serviceID, now,
	)
	if err != nil {
		fmt.Fprintln(os.Stderr, "create api key:", err)
		os.Exit(1)
	}

	out := output{
		AccountID:   accountID,
		Email:       *email,
		ServiceID:   serviceID,
		ServiceName: *serviceName,
		KeyID:       keyID,
		Key:         secret,
	}

	switch strings.ToLower(*format) {
	case "plain":
		fmt.Println(out.Key)
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func validateAuthType(authType, credential string) error {
	switch strings.ToLower(strings.TrimSpace(authType)) {
	case model.AuthNone:
		return nil
	case model.AuthBearer:
		if credential == "" {
			return errors.New("bearer auth requires -credential")
		}
	case model.AuthBasic, model.AuthAPIKey:
		if !strings.Contains(credential, ":") {
			return fmt.Errorf("%s auth requires -credential in 'name:value' form", authType)
		}
	default:
		return fmt.Errorf("invalid auth type: %s", authType)
	}
	return nil
}

// ensureAccount reuses an existing account with the given email or
// creates one.
func ensureAccount(db *sql.DB, name, email string, now time.Time) (string, error) {
	var id string
	err := db.QueryRow(`SELECT id FROM accounts WHERE email = $1`, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("look up account: %w", err)
	}

	id = ulid.Make().String()
	_, err = db.Exec(
		`INSERT INTO accounts (id, name, email, created_at) VALUES ($1, $2, $3, $4)`,
		id, name, email, now,
	)
	if err != nil {
		return "", fmt.Errorf("create account: %w", err)
	}
	return id, nil
}

// ensureService reuses an existing registration with the given name or
// creates one. An existing registration is never overwritten.
func ensureService(db *sql.DB, name, baseURL, authType, credential string, now time.Time) (string, error) {
	var id, existingURL string
	err := db.QueryRow(`SELECT id, base_url FROM api_services WHERE service_name = $1`, name).Scan(&id, &existingURL)
	if err == nil {
		if existingURL != baseURL {
			return "", fmt.Errorf("service %s exists with different base URL: %s", name, existingURL)
		}
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("look up service: %w", err)
	}

	id = ulid.Make().String()
	_, err = db.Exec(
		`INSERT INTO api_services (id, service_name, base_url, auth_type, auth_credential, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, name, baseURL, strings.ToLower(strings.TrimSpace(authType)), credential, now,
	)
	if err != nil {
		return "", fmt.Errorf("create service: %w", err)
	}
	return id, nil
}
