package protocol

import (
	"encoding/binary"
	"fmt"
)

// SecurityPhraseCapacity is the fixed, NUL-padded width of the passphrase
// the client sends inside a SecurityInitialize segment (§4.1).
const SecurityPhraseCapacity = 32

// SecurityInitializeBodySize is seed(4) + phrase(32), the client->server
// direction of the segment (§4.1, §8 scenario 1).
const SecurityInitializeBodySize = 4 + SecurityPhraseCapacity

// SecurityAckSize is the server's acknowledgement body length: oversized on
// the wire relative to its meaningful content because only the first 4
// decrypted bytes carry information (the magic), matching §8 scenario 1's
// "0x280-byte SecurityInitialize ack".
const SecurityAckSize = 0x280

// SecurityInitializeBody is the client's handshake payload: a passphrase
// and a 4-byte seed the server combines to derive the Blowfish session key
// (§4.1).
type SecurityInitializeBody struct {
	Seed   [4]byte
	Phrase string
}

// DecodeSecurityInitialize reads a SecurityInitializeBody from a raw
// SecurityInitialize segment body.
func DecodeSecurityInitialize(body []byte) (SecurityInitializeBody, error) {
	if len(body) < SecurityInitializeBodySize {
		return SecurityInitializeBody{}, fmt.Errorf("protocol: security initialize body needs %d bytes, have %d", SecurityInitializeBodySize, len(body))
	}
	var b SecurityInitializeBody
	copy(b.Seed[:], body[0:4])
	phraseBytes := body[4:SecurityInitializeBodySize]
	n := 0
	for n < len(phraseBytes) && phraseBytes[n] != 0 {
		n++
	}
	b.Phrase = string(phraseBytes[:n])
	return b, nil
}

// EncodeSecurityInitialize serializes a SecurityInitializeBody, used by
// tests exercising the client side of the handshake.
func EncodeSecurityInitialize(b SecurityInitializeBody) []byte {
	out := make([]byte, SecurityInitializeBodySize)
	copy(out[0:4], b.Seed[:])
	copy(out[4:SecurityInitializeBodySize], []byte(b.Phrase))
	return out
}

// SeedUint32 interprets Seed as a little-endian uint32, the form
// crypto.DeriveKey expects.
func (b SecurityInitializeBody) SeedUint32() uint32 {
	return binary.LittleEndian.Uint32(b.Seed[:])
}
