// Package crypto implements the Lobby connection's Blowfish handshake
// cipher (§4.1). Zone and Chat connections are cleartext and never touch
// this package.
package crypto

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blowfish"

	"github.com/aetherforge/worldserver/internal/constants"
)

// wellKnownSalt is appended to the seed+phrase before hashing to derive the
// session key. Inherited from the client; not a secret (spec §4.1, §9
// non-goals: crypto-grade secrecy is explicitly out of scope).
var wellKnownSalt = []byte("ffxiv-lobby-salt-v1")

// DeriveKey builds the 56-bit Blowfish key from the client's phrase and
// 4-byte seed: MD5(seed_u32_le ++ phrase ++ salt), truncated to 7 bytes (§4.1).
func DeriveKey(phrase string, seed [4]byte) [constants.BlowfishKeyBytes]byte {
	buf := make([]byte, 0, 4+len(phrase)+len(wellKnownSalt))
	buf = append(buf, seed[:]...)
	buf = append(buf, []byte(phrase)...)
	buf = append(buf, wellKnownSalt...)

	sum := md5.Sum(buf)

	var key [constants.BlowfishKeyBytes]byte
	copy(key[:], sum[:constants.BlowfishKeyBytes])
	return key
}

// SeedFromUint32 packs a little-endian seed for DeriveKey.
func SeedFromUint32(seed uint32) [4]byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], seed)
	return b
}

// Cipher wraps a Blowfish-ECB cipher with the per-block byte-swap the client
// expects ("Blowfish-LE variant", §4.1): each 8-byte block is byte-reversed
// before encryption and after decryption.
type Cipher struct {
	bf *blowfish.Cipher
}

// NewCipher builds a Cipher from a derived key.
func NewCipher(key []byte) (*Cipher, error) {
	bf, err := blowfish.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating blowfish cipher: %w", err)
	}
	return &Cipher{bf: bf}, nil
}

// Encrypt encrypts data in-place, which must be a multiple of the Blowfish
// block size.
func (c *Cipher) Encrypt(data []byte) error {
	return c.transform(data, true)
}

// Decrypt decrypts data in-place, which must be a multiple of the Blowfish
// block size.
func (c *Cipher) Decrypt(data []byte) error {
	return c.transform(data, false)
}

func (c *Cipher) transform(data []byte, encrypt bool) error {
	if len(data)%constants.BlowfishBlock != 0 {
		return fmt.Errorf("blowfish: data length %d is not a multiple of block size %d", len(data), constants.BlowfishBlock)
	}
	var block [constants.BlowfishBlock]byte
	for off := 0; off < len(data); off += constants.BlowfishBlock {
		swapInto(block[:], data[off:off+constants.BlowfishBlock])
		if encrypt {
			c.bf.Encrypt(block[:], block[:])
		} else {
			c.bf.Decrypt(block[:], block[:])
		}
		swapInto(data[off:off+constants.BlowfishBlock], block[:])
	}
	return nil
}

// swapInto copies src into dst with byte order reversed within the block.
func swapInto(dst, src []byte) {
	n := len(src)
	for i := 0; i < n; i++ {
		dst[i] = src[n-1-i]
	}
}
