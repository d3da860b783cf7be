package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	encryptedPrefix = "ENC["
	encryptedSuffix = "]"

	// EncryptionKeyEnv holds the passphrase for ENC[...] values.
	EncryptionKeyEnv = "REPDATA_ENCRYPTION_KEY"

	saltSize         = 16
	pbkdf2Iterations = 100000
	keySize          = 32
)

// passphrase returns the configured passphrase or a machine-bound fallback.
func passphrase() []byte {
	if key := os.Getenv(EncryptionKeyEnv); key != "" {
		return []byte(key)
	}
	hostname, _ := os.Hostname()
	homeDir, _ := os.UserHomeDir()
	return []byte(fmt.Sprintf("%s-%s-repdata", hostname, homeDir))
}

func newGCM(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(passphrase(), salt, pbkdf2Iterations, keySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

// IsEncrypted reports whether value is an ENC[...] envelope.
func IsEncrypted(value string) bool {
	return strings.HasPrefix(value, encryptedPrefix) && strings.HasSuffix(value, encryptedSuffix)
}

// Encrypt seals a secret as ENC[base64(salt|nonce|ciphertext)]. Empty and
// already-encrypted values are returned unchanged.
func Encrypt(secret string) (string, error) {
	if secret == "" || IsEncrypted(secret) {
		return secret, nil
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	gcm, err := newGCM(salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := append(salt, nonce...)
	out = gcm.Seal(out, nonce, []byte(secret), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(out) + encryptedSuffix, nil
}

// Decrypt opens an ENC[...] envelope. Plain values are returned unchanged.
func Decrypt(value string) (string, error) {
	if !IsEncrypted(value) {
		return value, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimSuffix(strings.TrimPrefix(value, encryptedPrefix), encryptedSuffix))
	if err != nil {
		return "", fmt.Errorf("failed to decode encrypted value: %w", err)
	}
	if len(raw) < saltSize {
		return "", fmt.Errorf("encrypted value too short")
	}

	gcm, err := newGCM(raw[:saltSize])
	if err != nil {
		return "", err
	}
	body := raw[saltSize:]
	if len(body) < gcm.NonceSize() {
		return "", fmt.Errorf("encrypted value too short")
	}
	nonce, sealed := body[:gcm.NonceSize()], body[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt value (wrong %s?): %w", EncryptionKeyEnv, err)
	}
	return string(plain), nil
}
