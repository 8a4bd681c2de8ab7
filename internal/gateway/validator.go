package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keygate/keygate/internal/model"
	"github.com/keygate/keygate/internal/repository"
)

// ValidationStatus classifies the outcome of an API key check.
type ValidationStatus int

const (
	// StatusValid means the key exists, is active, and has an owner.
	StatusValid ValidationStatus = iota
	// StatusMissingCredential means no credential was presented.
	StatusMissingCredential
	// StatusUnknownCredential means no key matches the presented secret.
	StatusUnknownCredential
	// StatusInactive means the key exists but is disabled.
	StatusInactive
	// StatusOrphanedAccount means the key has no resolvable owning account.
	StatusOrphanedAccount
)

// ValidationResult holds the outcome of validating a presented credential.
// Key and Account are populated only when Status is StatusValid.
type ValidationResult struct {
	Status  ValidationStatus
	Key     *model.APIKey
	Account *model.Account
}

// Valid reports whether the credential was accepted.
func (r ValidationResult) Valid() bool {
	return r.Status == StatusValid
}

// Validator checks a presented API key against the store and classifies
// the result. It has no side effects.
type Validator struct {
	store KeyStore
}

// NewValidator creates a Validator backed by the given store.
func NewValidator(store KeyStore) *Validator {
	return &Validator{store: store}
}

// Validate checks the presented secret. A non-nil error is returned only
// for store faults; every expected outcome is a ValidationResult status.
func (v *Validator) Validate(ctx context.Context, secret string) (ValidationResult, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ValidationResult{Status: StatusMissingCredential}, nil
	}

	key, err := v.store.GetAPIKeyBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, repository.ErrAPIKeyNotFound) {
			return ValidationResult{Status: StatusUnknownCredential}, nil
		}
		return ValidationResult{}, fmt.Errorf("lookup API key: %w", err)
	}

	// An inactive key is never usable regardless of other state.
	if !key.Active {
		return ValidationResult{Status: StatusInactive}, nil
	}

	account, err := v.store.GetAccountByID(ctx, key.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			// A key without an owner is a hard authentication failure,
			// never silently passed.
			return ValidationResult{Status: StatusOrphanedAccount}, nil
		}
		return ValidationResult{}, fmt.Errorf("lookup account: %w", err)
	}

	return ValidationResult{Status: StatusValid, Key: key, Account: account}, nil
}
