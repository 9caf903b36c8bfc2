package connection

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/globalserver"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/protocol"
	"github.com/aetherforge/worldserver/internal/wireerr"
)

// ChatConnection is the per-socket Connection task for the Chat listener.
// The client opens it alongside its Zone socket; the handshake names the
// actor it belongs to, and from then on the socket only ever carries
// ChatMessage traffic in both directions plus keep-alives. Party-channel
// fan-out is the one chat concern this core owns (§1); everything wider is
// an external collaborator.
type ChatConnection struct {
	conn    net.Conn
	cs      *protocol.ConnState
	w       *writer
	server  *globalserver.Server
	actorId model.ObjectId
	log     *zap.Logger

	mailbox chan globalserver.FromServer

	lastKeepAlivePong time.Time
}

// ServeChat runs one Chat connection to completion. The caller owns
// conn.Close().
func ServeChat(ctx context.Context, conn net.Conn, server *globalserver.Server, log *zap.Logger) error {
	cc := &ChatConnection{
		conn:    conn,
		cs:      protocol.NewConnState(constants.ConnectionChat),
		server:  server,
		log:     log,
		mailbox: make(chan globalserver.FromServer, 64),
	}
	cc.w = newWriter(conn, cc.cs, protocol.CompressionNone)

	if err := cc.handshake(); err != nil {
		return err
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	server.Submit(globalserver.ChatConnected{ActorId: cc.actorId, Mailbox: cc.mailbox})
	defer server.Submit(globalserver.ChatDisconnected{ActorId: cc.actorId})

	go cc.mailboxLoop(childCtx)
	go cc.keepAliveLoop(childCtx)

	conn.SetReadDeadline(time.Time{})
	return readLoop(childCtx, conn, cc.cs, log, cc.handleSegment)
}

// handshake mirrors the Zone dialect: an Initialize segment whose first 4
// bytes name the actor this chat socket belongs to, echoed back with a
// server-initiated keep-alive (§4.3 step 1).
func (cc *ChatConnection) handshake() error {
	cc.conn.SetReadDeadline(time.Now().Add(constants.InitHandshakeTimeout))

	buf := make([]byte, 4096)
	n, err := cc.conn.Read(buf)
	if err != nil {
		return fmt.Errorf("connection: reading chat handshake: %w", err)
	}
	segments, err := cc.cs.Parse(buf[:n])
	if err != nil {
		return fmt.Errorf("connection: parsing chat handshake: %w", err)
	}
	if len(segments) == 0 || segments[0].Kind != protocol.SegmentInitialize {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, "chat handshake did not open with Initialize")
	}
	if len(segments[0].Body) < 4 {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, "chat Initialize body too short")
	}
	cc.actorId = model.ObjectId(binary.LittleEndian.Uint32(segments[0].Body[:4]))
	if !cc.actorId.Valid() {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, "chat Initialize names a reserved actor id")
	}

	reply := ipc.KeepAliveRequest{Id: 0, Timestamp: uint32(time.Now().Unix())}
	if err := cc.w.emit(
		protocol.Segment{Kind: protocol.SegmentInitialize, Body: segments[0].Body},
		protocol.Segment{Kind: protocol.SegmentKeepAliveRequest, Body: ipc.Serialize(reply)},
	); err != nil {
		return fmt.Errorf("connection: replying to chat handshake: %w", err)
	}
	cc.lastKeepAlivePong = time.Now()
	return nil
}

func (cc *ChatConnection) handleSegment(seg protocol.Segment) error {
	switch seg.Kind {
	case protocol.SegmentKeepAliveResponse:
		cc.lastKeepAlivePong = time.Now()
		return nil
	case protocol.SegmentKeepAliveRequest:
		req, err := ipc.DecodeKeepAliveRequest(seg.Body)
		if err != nil {
			return wireerr.Wrap(wireerr.ErrMalformedPacket, err.Error())
		}
		resp := ipc.KeepAliveResponse{Id: req.Id, Timestamp: req.Timestamp}
		return cc.w.emit(protocol.Segment{Kind: protocol.SegmentKeepAliveResponse, Body: ipc.Serialize(resp)})
	case protocol.SegmentIPC:
		return cc.handleIPC(seg)
	default:
		cc.log.Debug("connection: unhandled chat segment kind", zap.Uint16("kind", uint16(seg.Kind)))
		return nil
	}
}

func (cc *ChatConnection) handleIPC(seg protocol.Segment) error {
	header, rest, err := protocol.DecodeIPCHeader(seg.Body)
	if err != nil {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, err.Error())
	}
	payload, err := ipc.Parse(ipc.Opcode(header.Opcode), rest)
	if err != nil {
		cc.log.Warn("connection: unknown chat opcode", zap.Uint16("opcode", header.Opcode))
		return nil
	}

	switch p := payload.(type) {
	case ipc.ChatMessage:
		if p.Channel != ipc.ChatParty && p.Channel != ipc.ChatSay {
			cc.log.Debug("connection: dropping out-of-scope chat channel", zap.Uint8("channel", uint8(p.Channel)))
			return nil
		}
		cc.server.Submit(globalserver.ChatMessageMsg{ActorId: cc.actorId, Message: p})
	case ipc.KeepAliveResponse:
		cc.lastKeepAlivePong = time.Now()
	default:
		cc.log.Debug("connection: unhandled chat ipc payload", zap.Uint16("opcode", header.Opcode))
	}
	return nil
}

func (cc *ChatConnection) mailboxLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-cc.mailbox:
			delivery, ok := msg.(globalserver.ChatDeliveryMsg)
			if !ok {
				continue
			}
			if err := cc.w.sendIPC(uint32(cc.actorId), delivery.Payload); err != nil {
				cc.log.Warn("connection: delivering chat failed", zap.Error(err))
			}
		}
	}
}

func (cc *ChatConnection) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(constants.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(cc.lastKeepAlivePong) > constants.KeepAliveInterval+constants.KeepAliveGrace {
				cc.log.Warn("connection: chat keep-alive timeout, closing", zap.String("remote", cc.conn.RemoteAddr().String()))
				cc.conn.Close()
				return
			}
			req := ipc.KeepAliveRequest{Id: uint32(time.Now().Unix()), Timestamp: uint32(time.Now().Unix())}
			if err := cc.w.emit(protocol.Segment{Kind: protocol.SegmentKeepAliveRequest, Body: ipc.Serialize(req)}); err != nil {
				cc.log.Warn("connection: sending chat keep-alive failed", zap.Error(err))
			}
		}
	}
}
