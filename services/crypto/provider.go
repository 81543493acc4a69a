package crypto

import "errors"

var (
	// ErrProviderNotFound is returned when ciphertext references an
	// algorithm version this process has never registered.
	ErrProviderNotFound = errors.New("crypto provider not found")

	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

// Provider is a versioned symmetric-encryption algorithm. The version tag
// is embedded, unencrypted, into everything a provider produces indirectly
// (protected identifiers carry it as their last segment), so data encrypted
// with an old provider stays decryptable after the default changes.
type Provider interface {
	Version() string
	Encrypt(data, password []byte) ([]byte, error)
	Decrypt(data, password []byte) ([]byte, error)
}
