package connection

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/auth"
	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/crypto"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/protocol"
	"github.com/aetherforge/worldserver/internal/wireerr"
)

// LobbyConnection is the per-socket Connection task for the Lobby listener
// (§4.1, §8 scenario 1). It only ever runs the Blowfish handshake followed
// by zero or more LoginRequest/LoginReply exchanges; it never touches the
// Global server or PlayerData, since character load and zone entry happen
// over the Zone connection the client opens afterward.
type LobbyConnection struct {
	conn  net.Conn
	cs    *protocol.ConnState
	w     *writer
	store auth.Store
	log   *zap.Logger
}

// ServeLobby runs one Lobby connection to completion: the Blowfish
// handshake, then a login loop, until the socket closes, ctx is cancelled,
// or a fatal protocol error occurs. The caller owns conn.Close().
func ServeLobby(ctx context.Context, conn net.Conn, store auth.Store, log *zap.Logger) error {
	lc := &LobbyConnection{
		conn:  conn,
		cs:    protocol.NewConnState(constants.ConnectionLobby),
		store: store,
		log:   log,
	}
	lc.w = newWriter(conn, lc.cs, protocol.CompressionNone)

	if err := lc.handshake(); err != nil {
		return err
	}

	conn.SetReadDeadline(time.Time{})
	return readLoop(ctx, conn, lc.cs, log, lc.handleSegment)
}

// handshake waits for the client's SecurityInitialize segment, derives the
// session Blowfish key from the phrase+seed it carries, and acknowledges
// with a 0x280-byte body whose first 4 bytes decrypt to LobbyAckMagic (§4.1,
// §8 scenario 1). Every IPC segment from this point on is encrypted with
// the derived key (wired into ConnState.Cipher, consumed by Parse/Emit).
func (lc *LobbyConnection) handshake() error {
	lc.conn.SetReadDeadline(time.Now().Add(constants.InitHandshakeTimeout))

	buf := make([]byte, 4096)
	n, err := lc.conn.Read(buf)
	if err != nil {
		return fmt.Errorf("connection: reading lobby handshake: %w", err)
	}
	segments, err := lc.cs.Parse(buf[:n])
	if err != nil {
		return fmt.Errorf("connection: parsing lobby handshake: %w", err)
	}
	if len(segments) == 0 || segments[0].Kind != protocol.SegmentSecurityInitialize {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, "lobby handshake did not open with SecurityInitialize")
	}

	body, err := protocol.DecodeSecurityInitialize(segments[0].Body)
	if err != nil {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, err.Error())
	}

	key := crypto.DeriveKey(body.Phrase, body.Seed)
	cipher, err := crypto.NewCipher(key[:])
	if err != nil {
		return fmt.Errorf("connection: building lobby cipher: %w", err)
	}

	ack := make([]byte, protocol.SecurityAckSize)
	binary.LittleEndian.PutUint32(ack[0:4], constants.LobbyAckMagic)
	if err := cipher.Encrypt(ack); err != nil {
		return fmt.Errorf("connection: encrypting lobby ack: %w", err)
	}

	if err := lc.w.emit(protocol.Segment{Kind: protocol.SegmentSecurityHandshake, Body: ack}); err != nil {
		return fmt.Errorf("connection: replying to lobby handshake: %w", err)
	}

	// The ack itself is hand-encrypted above (it isn't a SegmentIPC body, so
	// Emit's automatic cipher pass never touches it); every segment after
	// this point is ordinary SegmentIPC traffic that pass does cover.
	lc.cs.Cipher = cipher
	return nil
}

func (lc *LobbyConnection) handleSegment(seg protocol.Segment) error {
	if seg.Kind != protocol.SegmentIPC {
		lc.log.Debug("connection: unhandled lobby segment kind", zap.Uint16("kind", uint16(seg.Kind)))
		return nil
	}

	header, rest, err := protocol.DecodeIPCHeader(seg.Body)
	if err != nil {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, err.Error())
	}
	payload, err := ipc.Parse(ipc.Opcode(header.Opcode), rest)
	if err != nil {
		lc.log.Warn("connection: unknown lobby opcode", zap.Uint16("opcode", header.Opcode))
		return nil
	}

	req, ok := payload.(ipc.LoginRequest)
	if !ok {
		lc.log.Debug("connection: unhandled lobby ipc payload", zap.Uint16("opcode", header.Opcode))
		return nil
	}

	accounts, _ := lc.store.Accounts(context.Background(), req.SessionId)
	reply := ipc.LoginReply{Accounts: make([]ipc.ServiceAccount, len(accounts))}
	for i, a := range accounts {
		reply.Accounts[i] = ipc.ServiceAccount{Id: a.Id, Name: a.Name}
	}
	return lc.w.sendIPC(0, reply)
}
