package security

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// keyringService is the OS keyring service name for stored passwords.
const keyringService = "repdata"

// CredentialStore keeps warehouse and lock passwords in the OS keyring so
// config.yaml can leave them empty.
type CredentialStore struct {
	service string
}

// NewCredentialStore returns a store backed by the OS keyring.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{service: keyringService}
}

// CredentialKey names a stored password, e.g. "source/etl_user".
func CredentialKey(scope, user string) string {
	if user == "" {
		return scope
	}
	return scope + "/" + user
}

// Store saves a password.
func (s *CredentialStore) Store(scope, user, password string) error {
	if err := keyring.Set(s.service, CredentialKey(scope, user), password); err != nil {
		return fmt.Errorf("failed to store %s credential in keyring: %w", scope, err)
	}
	return nil
}

// Lookup returns the stored password. A missing entry is not an error and
// yields "".
func (s *CredentialStore) Lookup(scope, user string) (string, error) {
	secret, err := keyring.Get(s.service, CredentialKey(scope, user))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s credential from keyring: %w", scope, err)
	}
	return secret, nil
}

// Delete removes a stored password. Deleting a missing entry succeeds.
func (s *CredentialStore) Delete(scope, user string) error {
	err := keyring.Delete(s.service, CredentialKey(scope, user))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete %s credential: %w", scope, err)
	}
	return nil
}
