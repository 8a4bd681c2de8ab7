package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Key format: gk_{env}_{secret}
// Example: gk_live_4f8d2e1b9c7a5f3d2e1b9c7a5f3d2e1b
const (
	// KeySecretLen is the secret length (hex encoded 16 bytes).
	KeySecretLen = 32
)

// Environment indicators for key prefix.
const (
	EnvLive = "live"
	EnvTest = "test"
)

// GenerateAPIKey creates a new API key secret for the given environment.
// Keys are stored and looked up by this exact string.
func GenerateAPIKey(env string) (string, error) {
	if env != EnvLive && env != EnvTest {
		env = EnvLive // Default to live
	}

	secretBytes := make([]byte, KeySecretLen/2)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}

	return fmt.Sprintf("gk_%s_%s", env, hex.EncodeToString(secretBytes)), nil
}

// QuickHash returns a SHA256 hash of the input for cache keys.
// This is NOT for credential storage, only for cache key derivation.
func QuickHash(input string) string {
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:16]) // Use first 16 bytes (32 hex chars)
}
