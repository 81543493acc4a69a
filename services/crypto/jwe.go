package crypto

import (
	"fmt"

	"github.com/go-jose/go-jose/v4"
)

const VersionJWEGCM = "jwe-gcm-256"

// JWEProvider wraps plaintext into a compact JWE (A256GCMKW key wrapping,
// A256GCM content encryption). Used as the default payload provider since
// payloads can be large and benefit from authenticated encryption with a
// self-describing envelope.
type JWEProvider struct{}

func NewJWEProvider() *JWEProvider {
	return &JWEProvider{}
}

func (p *JWEProvider) Version() string {
	return VersionJWEGCM
}

func (p *JWEProvider) Encrypt(data, password []byte) ([]byte, error) {
	encrypter, err := jose.NewEncrypter(
		jose.A256GCM,
		jose.Recipient{Algorithm: jose.A256GCMKW, Key: deriveKey(password)},
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: encrypter init: %v", ErrEncryptionFailed, err)
	}

	obj, err := encrypter.Encrypt(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	compact, err := obj.CompactSerialize()
	if err != nil {
		return nil, fmt.Errorf("%w: serialize: %v", ErrEncryptionFailed, err)
	}
	return []byte(compact), nil
}

func (p *JWEProvider) Decrypt(data, password []byte) ([]byte, error) {
	obj, err := jose.ParseEncryptedCompact(
		string(data),
		[]jose.KeyAlgorithm{jose.A256GCMKW},
		[]jose.ContentEncryption{jose.A256GCM},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed jwe: %v", ErrDecryptionFailed, err)
	}

	plain, err := obj.Decrypt(deriveKey(password))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return plain, nil
}
