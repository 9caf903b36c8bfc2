// Package protocol implements the Codec (§4.1): packet framing, segment
// framing, and the per-connection cipher/compression/obfuscation state that
// framing depends on. It knows nothing about IPC opcode semantics — that is
// the ipc package's job, layered on top of the raw segment bodies this
// package produces.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/crypto"
)

// outerHeader mirrors the 40-byte packet header (§4.1).
type outerHeader struct {
	Magic            [16]byte
	TimestampMs      uint64
	Size             uint32
	ConnectionType   uint16
	SegmentCount     uint16
	Unknown1         uint8
	Compression      CompressionKind
	Unknown2         uint16
	DecompressedSize uint32
}

func decodeOuterHeader(buf []byte) outerHeader {
	var h outerHeader
	copy(h.Magic[:], buf[0:16])
	h.TimestampMs = binary.LittleEndian.Uint64(buf[16:24])
	h.Size = binary.LittleEndian.Uint32(buf[24:28])
	h.ConnectionType = binary.LittleEndian.Uint16(buf[28:30])
	h.SegmentCount = binary.LittleEndian.Uint16(buf[30:32])
	h.Unknown1 = buf[32]
	h.Compression = CompressionKind(buf[33])
	h.Unknown2 = binary.LittleEndian.Uint16(buf[34:36])
	h.DecompressedSize = binary.LittleEndian.Uint32(buf[36:40])
	return h
}

func encodeOuterHeader(dst []byte, h outerHeader) {
	copy(dst[0:16], h.Magic[:])
	binary.LittleEndian.PutUint64(dst[16:24], h.TimestampMs)
	binary.LittleEndian.PutUint32(dst[24:28], h.Size)
	binary.LittleEndian.PutUint16(dst[28:30], h.ConnectionType)
	binary.LittleEndian.PutUint16(dst[30:32], h.SegmentCount)
	dst[32] = h.Unknown1
	dst[33] = byte(h.Compression)
	binary.LittleEndian.PutUint16(dst[34:36], h.Unknown2)
	binary.LittleEndian.PutUint32(dst[36:40], h.DecompressedSize)
}

// ConnState holds the per-connection cipher, compression, and obfuscation
// state the Codec threads through Parse/Emit (§3 "Codec's cipher state is
// owned by its Connection", §4.1). It also buffers partial trailing bytes
// across reads.
type ConnState struct {
	Type        constants.ConnectionType
	Cipher      *crypto.Cipher // non-nil only for an authenticated Lobby connection
	Compressor  Compressor
	Obfuscator  *Obfuscator
	NeverDowngradesOodle bool // once Oodle is negotiated, a connection never downgrades silently (§4.1)

	pending []byte
}

// NewConnState builds a fresh ConnState for a newly accepted socket.
func NewConnState(t constants.ConnectionType) *ConnState {
	return &ConnState{
		Type:       t,
		Compressor: NewNoopCompressor(),
		Obfuscator: NewObfuscator(false, 0, 0),
	}
}

// Parse decodes as many complete segments as are present across `data` plus
// any previously buffered partial bytes, retaining a trailing partial packet
// for the next call (§4.1 parse contract).
func (cs *ConnState) Parse(data []byte) ([]Segment, error) {
	cs.pending = append(cs.pending, data...)

	var out []Segment
	for {
		if len(cs.pending) < constants.PacketHeaderSize {
			return out, nil
		}

		h := decodeOuterHeader(cs.pending)
		if int(h.Size) < constants.MinPacketSize || int(h.Size) > constants.MaxPacketSize {
			return out, newError(ErrOversizedPacket, "declared size %d", h.Size)
		}

		expectedMagic, ok := constants.ConnectionMagic[cs.Type]
		if !ok {
			return out, newError(ErrInvalidMagic, "no magic registered for connection type %d", cs.Type)
		}
		if h.Magic != expectedMagic {
			return out, newError(ErrInvalidMagic, "magic mismatch for connection type %d", cs.Type)
		}

		if len(cs.pending) < int(h.Size) {
			return out, nil // wait for more bytes; keep what we have buffered
		}

		body := cs.pending[constants.PacketHeaderSize:h.Size]
		cs.pending = cs.pending[h.Size:]

		if h.Compression == CompressionOodle {
			cs.NeverDowngradesOodle = true
			plain, err := cs.Compressor.Decompress(body, int(h.DecompressedSize))
			if err != nil {
				return out, newError(ErrDecompressionFailed, "%v", err)
			}
			body = plain
		}

		segs, err := decodeSegments(body, int(h.SegmentCount))
		if err != nil {
			return out, err
		}

		for i := range segs {
			if segs[i].Kind == SegmentIPC {
				cs.Obfuscator.Decode(segs[i].Body)
				if cs.Cipher != nil {
					if len(segs[i].Body)%constants.BlowfishBlock != 0 {
						return out, newError(ErrDecryptionFailed, "ipc body length %d not block-aligned", len(segs[i].Body))
					}
					if err := cs.Cipher.Decrypt(segs[i].Body); err != nil {
						return out, newError(ErrDecryptionFailed, "%v", err)
					}
				}
			}
		}

		out = append(out, segs...)
	}
}

func decodeSegments(body []byte, count int) ([]Segment, error) {
	segs := make([]Segment, 0, count)
	off := 0
	for i := 0; i < count; i++ {
		seg, n, err := decodeSegment(body[off:])
		if err != nil {
			return nil, err
		}
		segs = append(segs, seg)
		off += n
	}
	return segs, nil
}

// padToBlockSize zero-extends body to the next multiple of blockSize, the
// padding Blowfish-ECB requires (§4.1). Decoders read only the fixed-size
// fields or declared-length payload they expect, so the trailing zero bytes
// a Lobby IPC body picks up here are never interpreted.
func padToBlockSize(body []byte, blockSize int) []byte {
	rem := len(body) % blockSize
	if rem == 0 {
		return body
	}
	return append(body, make([]byte, blockSize-rem)...)
}

// Emit batches segments into one packet and writes it to w (§4.1 emit
// contract). The outer header's size field is always the exact serialized
// length.
func Emit(w io.Writer, cs *ConnState, compression CompressionKind, segments []Segment) error {
	if compression == CompressionOodle {
		cs.NeverDowngradesOodle = true
	} else if cs.NeverDowngradesOodle {
		return fmt.Errorf("emit: connection negotiated oodle, cannot downgrade to uncompressed")
	}

	for i := range segments {
		if segments[i].Kind == SegmentIPC {
			if cs.Cipher != nil {
				segments[i].Body = padToBlockSize(segments[i].Body, constants.BlowfishBlock)
				if err := cs.Cipher.Encrypt(segments[i].Body); err != nil {
					return fmt.Errorf("emit: encrypting ipc body: %w", err)
				}
			}
			cs.Obfuscator.Encode(segments[i].Body)
		}
	}

	var body []byte
	for _, seg := range segments {
		body = encodeSegment(body, seg)
	}

	decompressedSize := uint32(len(body))
	if compression == CompressionOodle {
		compressed, err := cs.Compressor.Compress(body)
		if err != nil {
			return fmt.Errorf("emit: compressing body: %w", err)
		}
		body = compressed
	}

	h := outerHeader{
		Magic:            constants.ConnectionMagic[cs.Type],
		TimestampMs:      uint64(time.Now().UnixMilli()),
		Size:             uint32(constants.PacketHeaderSize + len(body)),
		ConnectionType:   uint16(cs.Type),
		SegmentCount:     uint16(len(segments)),
		Compression:      compression,
		DecompressedSize: decompressedSize,
	}

	buf := make([]byte, constants.PacketHeaderSize+len(body))
	encodeOuterHeader(buf, h)
	copy(buf[constants.PacketHeaderSize:], body)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("emit: writing packet: %w", err)
	}
	return nil
}
