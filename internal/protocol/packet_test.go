package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/constants"
)

func TestPacketRoundTrip(t *testing.T) {
	cs := NewConnState(constants.ConnectionZone)

	segs := []Segment{
		{SourceActor: 1, TargetActor: 2, Kind: SegmentKeepAliveRequest, Body: []byte{0xAA, 0xBB, 0xCC, 0xDD}},
		{SourceActor: 1, TargetActor: 0, Kind: SegmentIPC, Body: EncodeIPCHeader(IPCHeader{Opcode: 42}, []byte("hello"))},
	}

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, cs, CompressionNone, segs))

	rx := NewConnState(constants.ConnectionZone)
	got, err := rx.Parse(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, got, len(segs))

	for i := range segs {
		require.Equal(t, segs[i].SourceActor, got[i].SourceActor)
		require.Equal(t, segs[i].TargetActor, got[i].TargetActor)
		require.Equal(t, segs[i].Kind, got[i].Kind)
		require.Equal(t, segs[i].Body, got[i].Body)
	}
}

func TestParsePartialTrailingBytesRetained(t *testing.T) {
	cs := NewConnState(constants.ConnectionZone)
	segs := []Segment{{Kind: SegmentKeepAliveRequest, Body: []byte{1, 2, 3, 4}}}

	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, cs, CompressionNone, segs))

	full := buf.Bytes()
	rx := NewConnState(constants.ConnectionZone)

	// Feed everything but the last 3 bytes first: no complete segment yet.
	got, err := rx.Parse(full[:len(full)-3])
	require.NoError(t, err)
	require.Empty(t, got)

	// Feed the rest: the segment should now decode.
	got, err = rx.Parse(full[len(full)-3:])
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestParseTruncatedHeader(t *testing.T) {
	cs := NewConnState(constants.ConnectionZone)
	got, err := cs.Parse(make([]byte, 10))
	require.NoError(t, err) // not enough for a header yet is not an error, just "wait"
	require.Empty(t, got)
}

func TestParseInvalidMagic(t *testing.T) {
	cs := NewConnState(constants.ConnectionLobby)
	other := NewConnState(constants.ConnectionZone)

	segs := []Segment{{Kind: SegmentKeepAliveRequest, Body: []byte{1, 2, 3, 4}}}
	var buf bytes.Buffer
	require.NoError(t, Emit(&buf, other, CompressionNone, segs))

	_, err := cs.Parse(buf.Bytes())
	require.Error(t, err)
	var protoErr *Error
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, ErrInvalidMagic, protoErr.Kind)
}

func TestParseOversizedPacketRejected(t *testing.T) {
	cs := NewConnState(constants.ConnectionZone)

	raw := make([]byte, constants.PacketHeaderSize)
	magic := constants.ConnectionMagic[constants.ConnectionZone]
	copy(raw[0:16], magic[:])
	// size field (offset 24) set absurdly large.
	raw[24], raw[25], raw[26], raw[27] = 0xFF, 0xFF, 0xFF, 0x7F

	_, err := cs.Parse(raw)
	require.Error(t, err)
	var protoErr *Error
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, ErrOversizedPacket, protoErr.Kind)
}

func TestEmitRejectsOodleDowngrade(t *testing.T) {
	cs := NewConnState(constants.ConnectionZone)
	require.NoError(t, Emit(&bytes.Buffer{}, cs, CompressionOodle, nil))
	require.Error(t, Emit(&bytes.Buffer{}, cs, CompressionNone, nil))
}
