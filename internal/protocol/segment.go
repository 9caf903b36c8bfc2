package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/aetherforge/worldserver/internal/constants"
)

// SegmentKind identifies the shape of a segment body (§4.1).
type SegmentKind uint16

const (
	SegmentInitialize         SegmentKind = 1
	SegmentIPC                SegmentKind = 3
	SegmentKeepAliveRequest   SegmentKind = 7
	SegmentKeepAliveResponse  SegmentKind = 8
	SegmentSecurityInitialize SegmentKind = 9
	SegmentSecurityHandshake  SegmentKind = 10
)

// Segment is one framed unit inside a Packet (§4.1).
type Segment struct {
	SourceActor uint32
	TargetActor uint32
	Kind        SegmentKind
	Body        []byte // raw, undecoded; IPC bodies are handed to the ipc registry separately
}

// encodedSize returns the total wire size of the segment (prelude + body).
func (s Segment) encodedSize() int {
	return constants.SegmentHeaderSize + len(s.Body)
}

// decodeSegment reads one segment from buf, returning the segment and the
// number of bytes consumed. buf must hold at least one complete segment;
// callers are responsible for having validated the outer packet's declared
// size first.
func decodeSegment(buf []byte) (Segment, int, error) {
	if len(buf) < constants.SegmentHeaderSize {
		return Segment{}, 0, newError(ErrTruncatedHeader, "segment prelude needs %d bytes, have %d", constants.SegmentHeaderSize, len(buf))
	}

	size := binary.LittleEndian.Uint32(buf[0:4])
	if int(size) < constants.SegmentHeaderSize || int(size) > len(buf) {
		return Segment{}, 0, newError(ErrTruncatedHeader, "segment declares size %d, buffer has %d", size, len(buf))
	}

	seg := Segment{
		SourceActor: binary.LittleEndian.Uint32(buf[4:8]),
		TargetActor: binary.LittleEndian.Uint32(buf[8:12]),
		Kind:        SegmentKind(binary.LittleEndian.Uint16(buf[12:14])),
		// buf[14:16] is pad.
	}
	bodyLen := int(size) - constants.SegmentHeaderSize
	seg.Body = append([]byte(nil), buf[constants.SegmentHeaderSize:int(size)]...)
	_ = bodyLen

	return seg, int(size), nil
}

// encodeSegment appends the wire form of seg to dst and returns the result.
func encodeSegment(dst []byte, seg Segment) []byte {
	size := seg.encodedSize()
	header := make([]byte, constants.SegmentHeaderSize)
	binary.LittleEndian.PutUint32(header[0:4], uint32(size))
	binary.LittleEndian.PutUint32(header[4:8], seg.SourceActor)
	binary.LittleEndian.PutUint32(header[8:12], seg.TargetActor)
	binary.LittleEndian.PutUint16(header[12:14], uint16(seg.Kind))
	// header[14:16] stays zero (pad).

	dst = append(dst, header...)
	dst = append(dst, seg.Body...)
	return dst
}

// IPCHeader is the 16-byte header nested inside an IPC segment body (§4.2).
type IPCHeader struct {
	Unk1          uint8
	Unk2          uint8
	Opcode        uint16
	ServerId      uint16
	TimestampSecs uint32
}

// DecodeIPCHeader reads the IPC header from the front of a segment body.
func DecodeIPCHeader(body []byte) (IPCHeader, []byte, error) {
	if len(body) < constants.IPCHeaderSize {
		return IPCHeader{}, nil, fmt.Errorf("ipc header needs %d bytes, have %d", constants.IPCHeaderSize, len(body))
	}
	h := IPCHeader{
		Unk1:          body[0],
		Unk2:          body[1],
		Opcode:        binary.LittleEndian.Uint16(body[2:4]),
		ServerId:      binary.LittleEndian.Uint16(body[6:8]),
		TimestampSecs: binary.LittleEndian.Uint32(body[8:12]),
	}
	return h, body[constants.IPCHeaderSize:], nil
}

// EncodeIPCHeader serializes an IPC header followed by payload into dst.
func EncodeIPCHeader(h IPCHeader, payload []byte) []byte {
	out := make([]byte, constants.IPCHeaderSize+len(payload))
	out[0] = h.Unk1
	out[1] = h.Unk2
	binary.LittleEndian.PutUint16(out[2:4], h.Opcode)
	// out[4:6] pad.
	binary.LittleEndian.PutUint16(out[6:8], h.ServerId)
	binary.LittleEndian.PutUint32(out[8:12], h.TimestampSecs)
	// out[12:16] pad.
	copy(out[constants.IPCHeaderSize:], payload)
	return out
}
