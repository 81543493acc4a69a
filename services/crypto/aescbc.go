package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const VersionAESCBC = "aes-cbc-v1"

// aescbcSalt fixes the PBKDF2 salt so the same password always derives the
// same key. Secrecy lives in the password, not the salt.
var aescbcSalt = []byte("xs2a-consent-engine/aes-cbc-v1")

const (
	aescbcIterations = 65536
	aescbcKeyLen     = 32
)

// AESCBCProvider is the original identifier-encryption algorithm. It uses a
// random IV per encryption, prepended to the ciphertext.
type AESCBCProvider struct{}

func NewAESCBCProvider() *AESCBCProvider {
	return &AESCBCProvider{}
}

func (p *AESCBCProvider) Version() string {
	return VersionAESCBC
}

func (p *AESCBCProvider) Encrypt(data, password []byte) ([]byte, error) {
	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return nil, fmt.Errorf("%w: cipher init: %v", ErrEncryptionFailed, err)
	}

	padded := pkcs7Pad(data, aes.BlockSize)

	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("%w: iv gen: %v", ErrEncryptionFailed, err)
	}

	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[aes.BlockSize:], padded)
	return out, nil
}

func (p *AESCBCProvider) Decrypt(data, password []byte) ([]byte, error) {
	if len(data) < 2*aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: malformed ciphertext", ErrDecryptionFailed)
	}

	block, err := aes.NewCipher(deriveKey(password))
	if err != nil {
		return nil, fmt.Errorf("%w: cipher init: %v", ErrDecryptionFailed, err)
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	plain := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ciphertext)

	unpadded, err := pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return unpadded, nil
}

func deriveKey(password []byte) []byte {
	return pbkdf2.Key(password, aescbcSalt, aescbcIterations, aescbcKeyLen, sha256.New)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, fmt.Errorf("invalid padding byte %d", n)
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-n], nil
}
