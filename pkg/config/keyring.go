package config

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zalando/go-keyring"
)

// DefaultKeyringService is the keychain service holding secret overrides
const DefaultKeyringService = "automation"

// KeyringSource serves overrides stored in the system keychain, keyed by the
// override key. It is meant for values that should not live in files, such as
// API tokens.
type KeyringSource struct {
	Service string
}

func (k KeyringSource) service() string {
	if k.Service == "" {
		return DefaultKeyringService
	}
	return k.Service
}

// Lookup implements Source. An unavailable keychain reads as absent.
func (k KeyringSource) Lookup(key string) (string, bool) {
	v, err := keyring.Get(k.service(), key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			log.Debug().Str("key", key).Err(err).Msg("Keychain lookup failed")
		}
		return "", false
	}
	return v, true
}

// StoreSecret saves an override value in the keychain
func (k KeyringSource) StoreSecret(key, value string) error {
	if key == "" {
		return errors.New("secret key is required")
	}
	if err := keyring.Set(k.service(), key, value); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// DeleteSecret removes an override value from the keychain
func (k KeyringSource) DeleteSecret(key string) error {
	if err := keyring.Delete(k.service(), key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no secret stored for %s", key)
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
