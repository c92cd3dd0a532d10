package config

import (
	stderrors "errors"
	"log/slog"

	"github.com/sovereignos/agentrun/internal/errors"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "agentrun"

	// KeyringAPIKeyItem is the item holding the OpenRouter API key
	KeyringAPIKeyItem = "openrouter-api-key"

	// availabilityItem is only ever read, to see whether a backend answers
	availabilityItem = "availability-check"
)

// KeyringManager keeps the OpenRouter API key in the OS keychain: macOS
// Keychain, Windows Credential Manager or the Linux Secret Service.
type KeyringManager struct {
	service string
	logger  *slog.Logger
}

// NewKeyringManager creates a manager for the agentrun keychain entries
func NewKeyringManager() *KeyringManager {
	return &KeyringManager{
		service: KeyringService,
		logger:  slog.Default().With("component", "keyring"),
	}
}

// SaveAPIKey stores apiKey, replacing any earlier one
func (km *KeyringManager) SaveAPIKey(apiKey string) error {
	if apiKey == "" {
		return errors.New(errors.ErrorTypeMissingCredential, "refusing to store an empty API key")
	}
	if err := keyring.Set(km.service, KeyringAPIKeyItem, apiKey); err != nil {
		return km.failure("store", err)
	}
	km.logger.Info("api key stored in keychain", "service", km.service)
	return nil
}

// GetAPIKey returns the stored key, or "" when nothing is stored
func (km *KeyringManager) GetAPIKey() (string, error) {
	key, found, err := km.read(KeyringAPIKeyItem)
	if err != nil {
		return "", km.failure("read", err)
	}
	km.logger.Debug("keychain lookup", "found", found)
	return key, nil
}

// DeleteAPIKey removes the stored key. Nothing stored is not an error.
func (km *KeyringManager) DeleteAPIKey() error {
	err := keyring.Delete(km.service, KeyringAPIKeyItem)
	if err != nil && !stderrors.Is(err, keyring.ErrNotFound) {
		return km.failure("delete", err)
	}
	km.logger.Info("api key removed from keychain", "service", km.service)
	return nil
}

// IsAvailable reports whether a keychain backend answers at all; headless
// Linux without a secret service does not.
func (km *KeyringManager) IsAvailable() bool {
	if _, _, err := km.read(availabilityItem); err != nil {
		km.logger.Debug("keychain not available", "error", err)
		return false
	}
	return true
}

// read fetches item; an absent entry is found=false, not an error
func (km *KeyringManager) read(item string) (string, bool, error) {
	value, err := keyring.Get(km.service, item)
	switch {
	case err == nil:
		return value, true, nil
	case stderrors.Is(err, keyring.ErrNotFound):
		return "", false, nil
	default:
		return "", false, err
	}
}

func (km *KeyringManager) failure(op string, err error) error {
	km.logger.Debug("keychain "+op+" failed", "error", err)
	return errors.Wrap(err, errors.ErrorTypeInternal, "OS keychain "+op+" failed").
		WithContext("service", km.service)
}
