package protection

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"xs2a-consent-engine/pkg/config"
	"xs2a-consent-engine/services/crypto"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := &config.Config{}
	cfg.Crypto.ServerKey = "test-server-key"
	svc, err := New(cfg, crypto.NewDefaultRegistry())
	require.NoError(t, err)
	return svc
}

func TestNewMissingServerKey(t *testing.T) {
	_, err := New(&config.Config{}, crypto.NewDefaultRegistry())
	require.ErrorIs(t, err, ErrServerKeyMissing)
}

func TestEncryptDecryptIDRoundTrip(t *testing.T) {
	svc := newTestService(t)

	for _, original := range []string{uuid.NewString(), "consent-1", ""} {
		res := svc.EncryptID(original)
		require.True(t, res.Ok())
		require.True(t, IsProtectedID(res.Value()))

		back := svc.DecryptID(res.Value())
		require.True(t, back.Ok())
		require.Equal(t, original, back.Value())
	}
}

func TestEncryptIDFreshKeyPerCall(t *testing.T) {
	svc := newTestService(t)

	first := svc.EncryptID("same-id")
	second := svc.EncryptID("same-id")
	require.True(t, first.Ok())
	require.True(t, second.Ok())
	require.NotEqual(t, first.Value(), second.Value())
}

func TestPayloadRoundTrip(t *testing.T) {
	svc := newTestService(t)

	protected := svc.EncryptID(uuid.NewString())
	require.True(t, protected.Ok())

	payload := []byte(`{"access":{"balances":[{"iban":"DE52500105173911841934"}]}}`)
	encrypted := svc.EncryptPayload(protected.Value(), payload)
	require.True(t, encrypted.Ok())
	require.NotEqual(t, payload, encrypted.Value())

	decrypted := svc.DecryptPayload(protected.Value(), encrypted.Value())
	require.True(t, decrypted.Ok())
	require.Equal(t, payload, decrypted.Value())
}

func TestPayloadNotDecryptableWithOtherID(t *testing.T) {
	svc := newTestService(t)

	first := svc.EncryptID("consent-a")
	second := svc.EncryptID("consent-b")
	require.True(t, first.Ok())
	require.True(t, second.Ok())

	encrypted := svc.EncryptPayload(first.Value(), []byte("secret payload"))
	require.True(t, encrypted.Ok())

	// The per-record key of another identifier must not open this payload.
	res := svc.DecryptPayload(second.Value(), encrypted.Value())
	require.True(t, res.CryptoFailed())
}

func TestVersionStabilityAcrossDefaultSwitch(t *testing.T) {
	cfg := &config.Config{}
	cfg.Crypto.ServerKey = "test-server-key"

	oldRegistry := crypto.NewRegistry(crypto.NewAESCBCProvider(), crypto.NewJWEProvider())
	oldService, err := New(cfg, oldRegistry)
	require.NoError(t, err)

	protected := oldService.EncryptID("legacy-consent")
	require.True(t, protected.Ok())

	payload := oldService.EncryptPayload(protected.Value(), []byte("legacy payload"))
	require.True(t, payload.Ok())

	// Default identifier provider moves to JWE; the AES-CBC provider stays
	// registered as legacy.
	newRegistry := crypto.NewRegistry(crypto.NewJWEProvider(), crypto.NewJWEProvider(), crypto.NewAESCBCProvider())
	newService, err := New(cfg, newRegistry)
	require.NoError(t, err)

	back := newService.DecryptID(protected.Value())
	require.True(t, back.Ok())
	require.Equal(t, "legacy-consent", back.Value())

	plain := newService.DecryptPayload(protected.Value(), payload.Value())
	require.True(t, plain.Ok())
	require.Equal(t, "legacy payload", string(plain.Value()))
}

func TestDecryptIDMalformed(t *testing.T) {
	svc := newTestService(t)

	// No separator at all.
	res := svc.DecryptID("abc")
	require.True(t, res.NotFound())

	// Unknown provider version.
	res = svc.DecryptID("YWJj_=_aes-ecb-v0")
	require.True(t, res.NotFound())

	// Known version but invalid base64.
	res = svc.DecryptID("!!!not-base64!!!_=_" + crypto.VersionAESCBC)
	require.True(t, res.NotFound())

	// Valid base64 but garbage ciphertext.
	res = svc.DecryptID("YWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXoxMjM0NTY_=_" + crypto.VersionAESCBC)
	require.False(t, res.Ok())
}

func TestDecryptIDWrongServerKey(t *testing.T) {
	svc := newTestService(t)
	protected := svc.EncryptID("consent-x")
	require.True(t, protected.Ok())

	other := &config.Config{}
	other.Crypto.ServerKey = "a different server key"
	otherService, err := New(other, crypto.NewDefaultRegistry())
	require.NoError(t, err)

	res := otherService.DecryptID(protected.Value())
	require.False(t, res.Ok())
}

func TestIsProtectedID(t *testing.T) {
	require.True(t, IsProtectedID("abc_=_aes-cbc-v1"))
	require.False(t, IsProtectedID("plain-uuid"))
	require.False(t, IsProtectedID(""))
}
