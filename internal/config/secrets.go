package config

import (
	"fmt"

	"repdata/internal/security"
	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

// SecretStore looks up passwords that config.yaml leaves empty.
type SecretStore interface {
	Lookup(scope, user string) (string, error)
}

type secretField struct {
	scope string
	user  string
	value *string
}

func secretFields(cfg *models.Config) []secretField {
	return []secretField{
		{scope: "source", user: cfg.Source.Username, value: &cfg.Source.Password},
		{scope: "destination", user: cfg.Destination.Username, value: &cfg.Destination.Password},
		{scope: "lock", value: &cfg.Lock.Password},
	}
}

// ResolveSecrets decrypts ENC[...] passwords in place and fills empty
// snowflake passwords from store. store may be nil.
func ResolveSecrets(cfg *models.Config, store SecretStore) error {
	for _, f := range secretFields(cfg) {
		if security.IsEncrypted(*f.value) {
			plain, err := security.Decrypt(*f.value)
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeEncryptionFailed,
					fmt.Sprintf("Failed to decrypt %s password", f.scope)).
					WithSuggestions("Set " + security.EncryptionKeyEnv + " to the passphrase used by 'repdata encrypt-config'")
			}
			*f.value = plain
			continue
		}
		if *f.value != "" || store == nil || !needsPassword(cfg, f.scope) {
			continue
		}
		secret, err := store.Lookup(f.scope, f.user)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeAuthenticationFailed,
				fmt.Sprintf("Failed to read %s password from keyring", f.scope))
		}
		*f.value = secret
	}
	return nil
}

func needsPassword(cfg *models.Config, scope string) bool {
	switch scope {
	case "source":
		return cfg.Source.Dialect == "snowflake"
	case "destination":
		return cfg.Destination.Dialect == "snowflake"
	default:
		return cfg.Lock.Enabled
	}
}

// EncryptSecrets seals every plaintext password and returns how many changed.
func EncryptSecrets(cfg *models.Config) (int, error) {
	n := 0
	for _, f := range secretFields(cfg) {
		if *f.value == "" || security.IsEncrypted(*f.value) {
			continue
		}
		sealed, err := security.Encrypt(*f.value)
		if err != nil {
			return n, apperrors.Wrap(err, apperrors.ErrCodeEncryptionFailed,
				fmt.Sprintf("Failed to encrypt %s password", f.scope))
		}
		*f.value = sealed
		n++
	}
	return n, nil
}
