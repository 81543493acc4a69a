package protection

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/services/crypto"
)

// Separator splits the segments of a protected identifier. It is chosen so
// it can never appear inside base64url output or a provider version tag.
const Separator = "_=_"

const secretKeyLength = 16

const secretKeyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// ErrServerKeyMissing aborts startup: without the server key no externally
// exposed identifier can be produced or resolved.
var ErrServerKeyMissing = errors.New("protection: server key is not configured")

// Service builds and parses the externally visible consent/payment
// identifier and encrypts the opaque payload stored on behalf of the bank.
//
// Wire format of a protected identifier:
//
//	base64url(Encrypt(originalId _=_ secretKey _=_ dataProviderVersion, serverKey)) _=_ idProviderVersion
//
// The trailing version tag is never encrypted so the right provider can be
// selected before decryption is attempted. The per-record secret key is
// independent randomness, not derived from the server key: compromising
// one record's key does not help decrypt another.
type Service struct {
	serverKey []byte
	registry  *crypto.Registry
}

func New(cfg *config.Config, registry *crypto.Registry) (*Service, error) {
	if cfg.Crypto.ServerKey == "" {
		return nil, ErrServerKeyMissing
	}
	return &Service{
		serverKey: []byte(cfg.Crypto.ServerKey),
		registry:  registry,
	}, nil
}

// IsProtectedID reports whether id looks like a protected identifier. The
// separator is the fast discriminator.
func IsProtectedID(id string) bool {
	return strings.Contains(id, Separator)
}

// EncryptID wraps originalID into a protected identifier, binding a fresh
// per-record secret key and the current default payload-provider version
// into the encrypted composite.
func (s *Service) EncryptID(originalID string) Result[string] {
	secretKey, err := generateSecretKey()
	if err != nil {
		zap.L().Error("failed to generate per-record secret key", zap.Error(err))
		return CryptoError[string](err)
	}

	composite := strings.Join([]string{
		originalID,
		secretKey,
		s.registry.DefaultDataProvider().Version(),
	}, Separator)

	idProvider := s.registry.DefaultIDProvider()
	ciphertext, err := idProvider.Encrypt([]byte(composite), s.serverKey)
	if err != nil {
		zap.L().Error("failed to encrypt identifier", zap.Error(err))
		return CryptoError[string](err)
	}

	protected := base64.RawURLEncoding.EncodeToString(ciphertext) + Separator + idProvider.Version()
	return Ok(protected)
}

// DecryptID recovers the original identifier from a protected one. Every
// failure mode resolves to NotFound or CryptoError; the caller treats both
// as "unknown resource", never as a system fault.
func (s *Service) DecryptID(protectedID string) Result[string] {
	composite := s.decryptComposite(protectedID)
	if !composite.Ok() {
		return Result[string]{state: composite.state, detail: composite.detail}
	}
	return Ok(composite.Value().originalID)
}

// EncryptPayload encrypts data with the per-record key bound into
// protectedID, using the payload provider version recorded at the time the
// identifier was issued (not necessarily the current default).
func (s *Service) EncryptPayload(protectedID string, data []byte) Result[[]byte] {
	composite := s.decryptComposite(protectedID)
	if !composite.Ok() {
		return Result[[]byte]{state: composite.state, detail: composite.detail}
	}

	provider, err := s.registry.ProviderFor(composite.Value().dataProviderVersion)
	if err != nil {
		zap.L().Warn("unknown payload provider version",
			zap.String("version", composite.Value().dataProviderVersion))
		return NotFound[[]byte]()
	}

	ciphertext, err := provider.Encrypt(data, []byte(composite.Value().secretKey))
	if err != nil {
		zap.L().Error("failed to encrypt payload", zap.Error(err))
		return CryptoError[[]byte](err)
	}
	return Ok(ciphertext)
}

// DecryptPayload is the inverse of EncryptPayload.
func (s *Service) DecryptPayload(protectedID string, data []byte) Result[[]byte] {
	composite := s.decryptComposite(protectedID)
	if !composite.Ok() {
		return Result[[]byte]{state: composite.state, detail: composite.detail}
	}

	provider, err := s.registry.ProviderFor(composite.Value().dataProviderVersion)
	if err != nil {
		zap.L().Warn("unknown payload provider version",
			zap.String("version", composite.Value().dataProviderVersion))
		return NotFound[[]byte]()
	}

	plain, err := provider.Decrypt(data, []byte(composite.Value().secretKey))
	if err != nil {
		zap.L().Error("failed to decrypt payload", zap.Error(err))
		return CryptoError[[]byte](err)
	}
	return Ok(plain)
}

type compositeID struct {
	originalID          string
	secretKey           string
	dataProviderVersion string
}

func (s *Service) decryptComposite(protectedID string) Result[compositeID] {
	if !IsProtectedID(protectedID) {
		return NotFound[compositeID]()
	}

	// The version tag is always the last segment.
	sep := strings.LastIndex(protectedID, Separator)
	encoded, version := protectedID[:sep], protectedID[sep+len(Separator):]

	provider, err := s.registry.ProviderFor(version)
	if err != nil {
		zap.L().Warn("unknown identifier provider version", zap.String("version", version))
		return NotFound[compositeID]()
	}

	ciphertext, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return NotFound[compositeID]()
	}

	plain, err := provider.Decrypt(ciphertext, s.serverKey)
	if err != nil {
		zap.L().Error("failed to decrypt identifier", zap.Error(err))
		return CryptoError[compositeID](err)
	}

	segments := strings.Split(string(plain), Separator)
	if len(segments) != 3 {
		return CryptoError[compositeID](fmt.Errorf("composite has %d segments", len(segments)))
	}

	return Ok(compositeID{
		originalID:          segments[0],
		secretKey:           segments[1],
		dataProviderVersion: segments[2],
	})
}

func generateSecretKey() (string, error) {
	buf := make([]byte, secretKeyLength)
	alphabetLen := big.NewInt(int64(len(secretKeyAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		buf[i] = secretKeyAlphabet[n.Int64()]
	}
	return string(buf), nil
}
