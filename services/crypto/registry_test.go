package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryLookup(t *testing.T) {
	r := NewDefaultRegistry()

	p, err := r.ProviderFor(VersionAESCBC)
	require.NoError(t, err)
	require.Equal(t, VersionAESCBC, p.Version())

	p, err = r.ProviderFor(VersionJWEGCM)
	require.NoError(t, err)
	require.Equal(t, VersionJWEGCM, p.Version())

	_, err = r.ProviderFor("aes-ecb-v0")
	require.ErrorIs(t, err, ErrProviderNotFound)
}

func TestRegistryDefaults(t *testing.T) {
	r := NewDefaultRegistry()

	require.Equal(t, VersionAESCBC, r.DefaultIDProvider().Version())
	require.Equal(t, VersionJWEGCM, r.DefaultDataProvider().Version())
}

func TestRegistryKeepsLegacyProviders(t *testing.T) {
	legacy := NewAESCBCProvider()
	// Defaults move to JWE for both concerns; the legacy provider stays
	// registered so old ciphertext remains decryptable.
	r := NewRegistry(NewJWEProvider(), NewJWEProvider(), legacy)

	require.Equal(t, VersionJWEGCM, r.DefaultIDProvider().Version())

	p, err := r.ProviderFor(VersionAESCBC)
	require.NoError(t, err)
	require.Same(t, Provider(legacy), p)
}
