// Package connection implements the per-socket Connection task (§4.3): a
// pure translator between the wire (via internal/protocol and internal/ipc)
// and the globalserver broker's ToServer/FromServer tagged unions. Each
// Connection owns its own net.Conn, ConnState codec, PlayerData, and
// FromServer mailbox; it never touches instance or actor state directly -
// it only ever asks the Global server, per §9's ownership rule.
package connection

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/protocol"
)

// writer serializes every wire write a Connection task makes: the
// handshake, the read loop's replies, the keep-alive ticker, and the
// mailbox-drain loop all share one socket, so every emit goes through the
// same mutex rather than letting goroutines race on conn.Write.
type writer struct {
	mu          sync.Mutex
	out         io.Writer
	cs          *protocol.ConnState
	compression protocol.CompressionKind
}

func newWriter(out io.Writer, cs *protocol.ConnState, compression protocol.CompressionKind) *writer {
	return &writer{out: out, cs: cs, compression: compression}
}

func (w *writer) emit(segments ...protocol.Segment) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return protocol.Emit(w.out, w.cs, w.compression, segments)
}

// ipcSegment frames payload as an IPC segment addressed to targetActor
// (§4.1, §4.2).
func ipcSegment(targetActor uint32, payload ipc.Payload) protocol.Segment {
	header := protocol.IPCHeader{
		Opcode:        uint16(payload.Opcode()),
		TimestampSecs: uint32(time.Now().Unix()),
	}
	body := protocol.EncodeIPCHeader(header, ipc.Serialize(payload))
	return protocol.Segment{TargetActor: targetActor, Kind: protocol.SegmentIPC, Body: body}
}

func (w *writer) sendIPC(targetActor uint32, payload ipc.Payload) error {
	return w.emit(ipcSegment(targetActor, payload))
}

// readDeadliner is the subset of net.Conn readLoop needs to enforce the
// dead-connection timeout; test readers that don't implement it simply
// aren't subject to one.
type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// readLoop pulls bytes off conn, threads them through cs.Parse, and hands
// every decoded segment to onSegment until ctx is cancelled, the socket
// closes, or onSegment reports a fatal error. A socket with no data for
// DeadConnectionTimeout is killed (§5 cancellation & timeouts).
func readLoop(ctx context.Context, conn io.Reader, cs *protocol.ConnState, log *zap.Logger, onSegment func(protocol.Segment) error) error {
	buf := make([]byte, 64*1024)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d, ok := conn.(readDeadliner); ok {
			d.SetReadDeadline(time.Now().Add(constants.DeadConnectionTimeout))
		}
		n, err := conn.Read(buf)
		if err != nil {
			return err
		}
		segments, perr := cs.Parse(buf[:n])
		if perr != nil {
			if pe, ok := perr.(*protocol.Error); ok && !pe.IsFatal() {
				log.Warn("connection: non-fatal parse error", zap.Error(perr))
			} else {
				return perr
			}
		}
		for _, seg := range segments {
			if err := onSegment(seg); err != nil {
				return err
			}
		}
	}
}
