// Package keychain stores gateway secrets in the OS keychain.
package keychain

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const serviceName = "botgate"

// ErrNotFound is returned when no secret is stored for an account.
var ErrNotFound = keyring.ErrNotFound

// Get retrieves a secret from the system keychain.
func Get(account string) (string, error) {
	v, err := keyring.Get(serviceName, account)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", fmt.Errorf("keychain account %q: %w", account, ErrNotFound)
	}
	return v, err
}

// Set stores a secret in the system keychain.
func Set(account, value string) error {
	return keyring.Set(serviceName, account, value)
}

// Delete removes a stored secret.
func Delete(account string) error {
	return keyring.Delete(serviceName, account)
}
