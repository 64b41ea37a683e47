package store

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringService is the service name under which fields are stored in the OS keyring.
const KeyringService = "crate"

// KeyringBackend stores each field as a separate OS keyring secret.
type KeyringBackend struct {
	service string
}

// NewKeyringBackend checks the OS keyring and returns an error when it cannot be used.
func NewKeyringBackend() (*KeyringBackend, error) {
	key := "crate::check"
	if err := keyring.Set(KeyringService, key, "ok"); err != nil {
		return nil, fmt.Errorf("system keyring unavailable: %w", err)
	}
	_ = keyring.Delete(KeyringService, key)
	return &KeyringBackend{service: KeyringService}, nil
}

func (k *KeyringBackend) Load(key string) (string, bool, error) {
	v, err := keyring.Get(k.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (k *KeyringBackend) Save(key, value string) error {
	return keyring.Set(k.service, key, value)
}

func (k *KeyringBackend) Remove(keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := keyring.Delete(k.service, key); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
