package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAESCBCRoundTrip(t *testing.T) {
	p := NewAESCBCProvider()
	password := []byte("server-key-secret")

	for _, plain := range []string{"", "x", "some-consent-id_=_0123456789abcdef", "a longer payload spanning multiple aes blocks for good measure"} {
		ct, err := p.Encrypt([]byte(plain), password)
		require.NoError(t, err)

		out, err := p.Decrypt(ct, password)
		require.NoError(t, err)
		require.Equal(t, plain, string(out))
	}
}

func TestAESCBCRandomIV(t *testing.T) {
	p := NewAESCBCProvider()
	password := []byte("server-key-secret")

	first, err := p.Encrypt([]byte("same input"), password)
	require.NoError(t, err)
	second, err := p.Encrypt([]byte("same input"), password)
	require.NoError(t, err)

	require.NotEqual(t, first, second)
}

func TestAESCBCWrongPassword(t *testing.T) {
	p := NewAESCBCProvider()

	ct, err := p.Encrypt([]byte("original"), []byte("right password"))
	require.NoError(t, err)

	out, err := p.Decrypt(ct, []byte("wrong password"))
	if err == nil {
		// CBC carries no authentication tag; a wrong key may unpad by
		// accident but never yields the original plaintext.
		require.NotEqual(t, "original", string(out))
	}
}

func TestAESCBCMalformedCiphertext(t *testing.T) {
	p := NewAESCBCProvider()

	_, err := p.Decrypt([]byte("too short"), []byte("pw"))
	require.ErrorIs(t, err, ErrDecryptionFailed)

	_, err = p.Decrypt(make([]byte, 33), []byte("pw"))
	require.ErrorIs(t, err, ErrDecryptionFailed)
}
