package config

import (
	"os"
	"strings"
)

const (
	// APIKeyEnv supplies the OpenRouter bearer credential
	APIKeyEnv = "OPENROUTER_API_KEY"

	// PlaceholderAPIKey is the documented stand-in value; it counts as unset
	PlaceholderAPIKey = "YOUR_OPENROUTER_API_KEY_HERE_IF_NOT_SET_AS_ENV_VAR"
)

// KeySource records where the active API key came from
type KeySource string

const (
	KeySourceEnv      KeySource = "env"
	KeySourceConfig   KeySource = "config"
	KeySourceKeychain KeySource = "keychain"
	KeySourceNone     KeySource = "none"
)

// Description returns a human-readable description of the source
func (s KeySource) Description() string {
	switch s {
	case KeySourceEnv:
		return "environment variable " + APIKeyEnv
	case KeySourceConfig:
		return "config file (plaintext)"
	case KeySourceKeychain:
		return "OS keychain"
	default:
		return "not configured"
	}
}

// KeyStore is the subset of KeyringManager credential resolution needs
type KeyStore interface {
	GetAPIKey() (string, error)
}

// Credential is the resolved API key and its origin
type Credential struct {
	APIKey string
	Source KeySource
}

// IsUsableAPIKey reports whether key is neither empty nor the placeholder
func IsUsableAPIKey(key string) bool {
	key = strings.TrimSpace(key)
	return key != "" && key != PlaceholderAPIKey
}

// ResolveAPIKey picks the API key once at startup.
// Priority: environment variable → config file → keychain (when store is non-nil).
// A placeholder value at any level is skipped.
func ResolveAPIKey(cfg *Config, store KeyStore) Credential {
	if key := os.Getenv(APIKeyEnv); IsUsableAPIKey(key) {
		return Credential{APIKey: strings.TrimSpace(key), Source: KeySourceEnv}
	}

	if cfg != nil && IsUsableAPIKey(cfg.API.Key) {
		return Credential{APIKey: strings.TrimSpace(cfg.API.Key), Source: KeySourceConfig}
	}

	if store != nil {
		if key, err := store.GetAPIKey(); err == nil && IsUsableAPIKey(key) {
			return Credential{APIKey: strings.TrimSpace(key), Source: KeySourceKeychain}
		}
	}

	return Credential{Source: KeySourceNone}
}

// MaskAPIKey shows the first and last four characters of a key
func MaskAPIKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
