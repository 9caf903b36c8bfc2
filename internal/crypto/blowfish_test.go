package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeriveKeyDeterministic(t *testing.T) {
	seed := SeedFromUint32(0x44332211)
	k1 := DeriveKey("foobar", seed)
	k2 := DeriveKey("foobar", seed)
	require.Equal(t, k1, k2)

	k3 := DeriveKey("different", seed)
	require.NotEqual(t, k1, k3)
}

func TestCipherRoundTrip(t *testing.T) {
	seed := SeedFromUint32(0x44332211)
	key := DeriveKey("foobar", seed)

	c, err := NewCipher(key[:])
	require.NoError(t, err)

	plain := []byte("ABCDEFGH12345678") // two 8-byte blocks
	buf := append([]byte(nil), plain...)

	require.NoError(t, c.Encrypt(buf))
	require.NotEqual(t, plain, buf)

	require.NoError(t, c.Decrypt(buf))
	require.Equal(t, plain, buf)
}

func TestCipherRejectsUnalignedLength(t *testing.T) {
	seed := SeedFromUint32(1)
	key := DeriveKey("x", seed)
	c, err := NewCipher(key[:])
	require.NoError(t, err)

	require.Error(t, c.Encrypt(make([]byte, 7)))
}
