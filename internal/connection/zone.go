package connection

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/event"
	"github.com/aetherforge/worldserver/internal/globalserver"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/persist"
	"github.com/aetherforge/worldserver/internal/protocol"
	"github.com/aetherforge/worldserver/internal/script"
	"github.com/aetherforge/worldserver/internal/wireerr"
)

// ZoneOptions carries the world-listener's negotiable settings (§6 CLI
// surface table) into a single Zone connection.
type ZoneOptions struct {
	Compression bool
	Obfuscation bool
}

// ZoneConnection is the per-socket Connection task for the Zone listener
// (§4.3). It owns the handshake, the codec state, the character snapshot
// for the lifetime of the socket, and the mailbox the Global server
// delivers FromServer messages to.
type ZoneConnection struct {
	conn     net.Conn
	cs       *protocol.ConnState
	w        *writer
	state    State
	server   *globalserver.Server
	store    persist.Store
	events   *event.Registry
	clientId globalserver.ClientId
	log      *zap.Logger

	mailbox chan globalserver.FromServer

	// mu guards data and activeEvent: both the read loop (IPC handlers)
	// and the mailbox loop (script-task delivery) mutate them, and while
	// PlayerData never leaves this Connection (§9), the Connection itself
	// runs on more than one goroutine.
	mu          sync.Mutex
	data        *model.PlayerData
	connectedAt time.Time

	// activeEvent is the handler id currently holding the client in an
	// event shell, or 0.
	activeEvent uint32

	lastKeepAlivePong time.Time
}

// ServeZone runs one Zone connection to completion, blocking until the
// socket closes, ctx is cancelled, or a fatal protocol error occurs. The
// caller is responsible for conn.Close() and TCP keepalive setup.
func ServeZone(ctx context.Context, conn net.Conn, clientId globalserver.ClientId, server *globalserver.Server, store persist.Store, events *event.Registry, opts ZoneOptions, log *zap.Logger) error {
	compression := protocol.CompressionNone
	if opts.Compression {
		compression = protocol.CompressionOodle
	}

	zc := &ZoneConnection{
		conn:     conn,
		cs:       protocol.NewConnState(constants.ConnectionZone),
		state:    StateHandshake,
		server:   server,
		store:    store,
		events:   events,
		clientId: clientId,
		log:      log,
		mailbox:  make(chan globalserver.FromServer, 64),
	}
	zc.cs.Obfuscator = protocol.NewObfuscator(opts.Obfuscation, obfuscationSeed1, obfuscationSeed2)
	zc.w = newWriter(conn, zc.cs, compression)

	if err := zc.handshake(); err != nil {
		return err
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	server.Submit(globalserver.NewClient{ClientId: clientId, Mailbox: zc.mailbox})
	defer server.Submit(globalserver.Disconnected{ClientId: clientId})

	go zc.mailboxLoop(childCtx)
	go zc.keepAliveLoop(childCtx)

	conn.SetReadDeadline(time.Time{})
	err := readLoop(childCtx, conn, zc.cs, log, zc.handleSegment)

	if zc.data != nil {
		zc.commit(context.Background())
	}
	return err
}

// obfuscationSeed1/2 are fixed per process rather than per-connection;
// real per-connection seeds would be generated the way the Blowfish
// handshake generates a fresh key, but the IPC obfuscation pass is off by
// default (§6 world.enable_packet_obfuscation) and this module has no
// client to negotiate a seed exchange with.
const (
	obfuscationSeed1 uint32 = 0x1234_5678
	obfuscationSeed2 uint32 = 0x9ABC_DEF0
)

// handshake waits for the client's Initialize segment and replies with the
// server's own Initialize plus a keep-alive, within InitHandshakeTimeout
// (§4.3 step 1).
func (zc *ZoneConnection) handshake() error {
	zc.conn.SetReadDeadline(time.Now().Add(constants.InitHandshakeTimeout))

	buf := make([]byte, 4096)
	n, err := zc.conn.Read(buf)
	if err != nil {
		return fmt.Errorf("connection: reading zone handshake: %w", err)
	}
	segments, err := zc.cs.Parse(buf[:n])
	if err != nil {
		return fmt.Errorf("connection: parsing zone handshake: %w", err)
	}
	if len(segments) == 0 || segments[0].Kind != protocol.SegmentInitialize {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, "zone handshake did not open with Initialize")
	}

	state, terr := Transition(zc.state, StateAuthenticated)
	if terr != nil {
		return terr
	}
	zc.state = state

	reply := ipc.KeepAliveRequest{Id: 0, Timestamp: uint32(time.Now().Unix())}
	if err := zc.w.emit(
		protocol.Segment{Kind: protocol.SegmentInitialize, Body: segments[0].Body},
		protocol.Segment{Kind: protocol.SegmentKeepAliveRequest, Body: ipc.Serialize(reply)},
	); err != nil {
		return fmt.Errorf("connection: replying to zone handshake: %w", err)
	}
	zc.lastKeepAlivePong = time.Now()
	return nil
}

// handleSegment dispatches one parsed segment. It returns a non-nil error
// only for failures that should close the connection (§7).
func (zc *ZoneConnection) handleSegment(seg protocol.Segment) error {
	switch seg.Kind {
	case protocol.SegmentKeepAliveResponse:
		zc.lastKeepAlivePong = time.Now()
		return nil
	case protocol.SegmentKeepAliveRequest:
		req, err := ipc.DecodeKeepAliveRequest(seg.Body)
		if err != nil {
			return wireerr.Wrap(wireerr.ErrMalformedPacket, err.Error())
		}
		resp := ipc.KeepAliveResponse{Id: req.Id, Timestamp: req.Timestamp}
		return zc.w.emit(protocol.Segment{Kind: protocol.SegmentKeepAliveResponse, Body: ipc.Serialize(resp)})
	case protocol.SegmentIPC:
		return zc.handleIPC(seg)
	default:
		zc.log.Debug("connection: unhandled segment kind", zap.Uint16("kind", uint16(seg.Kind)))
		return nil
	}
}

func (zc *ZoneConnection) handleIPC(seg protocol.Segment) error {
	header, rest, err := protocol.DecodeIPCHeader(seg.Body)
	if err != nil {
		return wireerr.Wrap(wireerr.ErrMalformedPacket, err.Error())
	}

	payload, err := ipc.Parse(ipc.Opcode(header.Opcode), rest)
	if err != nil {
		zc.log.Warn("connection: unknown opcode", zap.Uint16("opcode", header.Opcode))
		return nil
	}

	switch p := payload.(type) {
	case ipc.InitRequest:
		return zc.onInitRequest(p)
	case ipc.KeepAliveResponse:
		zc.lastKeepAlivePong = time.Now()
		return nil
	case ipc.ActionRequest:
		if !zc.actorReady() {
			return wireerr.Wrap(wireerr.ErrUnauthenticatedAction, "action before zone load completed")
		}
		zc.server.Submit(globalserver.ActionRequestMsg{ClientId: zc.clientId, ActorId: zc.data.ActorId, Request: p})
	case ipc.ClientTrigger:
		if !zc.actorReady() {
			return wireerr.Wrap(wireerr.ErrUnauthenticatedAction, "client trigger before zone load completed")
		}
		switch p.CommandId {
		case ipc.TriggerShopSell:
			return zc.onShopSell(p)
		case ipc.TriggerEventTalk, ipc.TriggerEventYield, ipc.TriggerEventReturn:
			return zc.onEventTrigger(p)
		default:
			zc.server.Submit(globalserver.ClientTriggerMsg{ClientId: zc.clientId, ActorId: zc.data.ActorId, Command: p})
		}
	case ipc.ActorMove:
		if !zc.actorReady() {
			return nil
		}
		zc.server.Submit(globalserver.ActorMoved{
			ClientId:  zc.clientId,
			ActorId:   zc.data.ActorId,
			Position:  p.Position,
			Rotation:  model.DequantizeRotation(p.Rotation),
			Animation: p.AnimationId,
		})
	default:
		zc.log.Debug("connection: unhandled ipc payload", zap.Uint16("opcode", header.Opcode))
	}
	return nil
}

// onShopSell resolves a gil-shop sell-mode request entirely within this
// Connection: Inventory is part of PlayerData, which the Global server
// never observes (§9), so the sale, currency credit, and buyback bookkeeping
// all happen here and only the resulting wire updates go out (§8 scenario 5).
func (zc *ZoneConnection) onShopSell(p ipc.ClientTrigger) error {
	zc.mu.Lock()
	defer zc.mu.Unlock()

	shopId, container, slotIndex := p.Params[0], uint8(p.Params[1]), uint16(p.Params[2])
	sold, total, err := zc.data.Inventory.Sell(container, slotIndex, shopId)
	if err != nil {
		zc.log.Warn("connection: shop sell failed", zap.Error(err))
		return nil
	}
	actorId := uint32(zc.data.ActorId)
	if err := zc.w.sendIPC(actorId, ipc.InventoryTransaction{
		Op:        ipc.InventoryOpDiscard,
		Container: container,
		SlotIndex: slotIndex,
		ItemId:    sold.ItemId,
		Quantity:  sold.Quantity,
		Sequence:  zc.data.Inventory.ItemSequence,
	}); err != nil {
		return fmt.Errorf("connection: sending inventory transaction: %w", err)
	}
	return zc.w.sendIPC(actorId, ipc.ShopLogMessage{
		Type:     ipc.ShopLogItemSold,
		Quantity: sold.Quantity,
		Total:    total,
	})
}

func (zc *ZoneConnection) actorReady() bool {
	return zc.state == StateZoneLoaded && zc.data != nil
}

// onEventTrigger routes the event-dispatch ClientTrigger commands through
// the handler registry (§9 dynamic dispatch across event handler kinds).
// The whole exchange stays on this connection's goroutine: handlers read
// this player's own PlayerData and return tasks, never instance state.
func (zc *ZoneConnection) onEventTrigger(p ipc.ClientTrigger) error {
	zc.mu.Lock()
	defer zc.mu.Unlock()

	handlerId := p.Params[0]
	h := zc.events.Resolve(handlerId)
	ectx := event.Context{Player: zc.data}

	var res event.Result
	switch p.CommandId {
	case ipc.TriggerEventTalk:
		zc.activeEvent = handlerId
		if err := zc.w.sendIPC(uint32(zc.data.ActorId), ipc.EventStart{
			ActorId:   zc.data.ActorId,
			HandlerId: handlerId,
			EventType: uint8(h.Kind()),
		}); err != nil {
			return err
		}
		res = h.OnTalk(ectx, handlerId)
	case ipc.TriggerEventYield:
		if zc.activeEvent != handlerId {
			zc.log.Warn("connection: yield for inactive event", zap.Uint32("handler_id", handlerId))
			return nil
		}
		res = h.OnYield(ectx, handlerId, p.Params[1])
	case ipc.TriggerEventReturn:
		if zc.activeEvent != handlerId {
			zc.log.Warn("connection: scene return for inactive event", zap.Uint32("handler_id", handlerId))
			return nil
		}
		res = h.OnReturn(ectx, handlerId, uint16(p.Params[1]), p.Params[2:])
	}
	return zc.applyEventResult(handlerId, res, 0)
}

// applyEventResult plays a returned scene (if any) and drains the hook's
// task list through the usual interpreter.
func (zc *ZoneConnection) applyEventResult(handlerId uint32, res event.Result, depth int) error {
	if res.PlayScene {
		scene := ipc.NewEventScene(handlerId, res.Scene, res.SceneParams)
		if err := zc.w.sendIPC(uint32(zc.data.ActorId), scene); err != nil {
			return err
		}
	}
	return zc.processTasks(res.Tasks, depth)
}

// onInitRequest runs §4.4's login sequence: load or create the character,
// then send InitResponse, PlayerSetup, InitZone, and the player's own
// PlayerSpawn, finally handing the actor to the Global server.
func (zc *ZoneConnection) onInitRequest(req ipc.InitRequest) error {
	state, terr := Transition(zc.state, StateLoading)
	if terr != nil {
		return terr
	}
	zc.state = state

	data, err := zc.store.Load(context.Background(), req.ContentId)
	if err != nil {
		return wireerr.Wrap(wireerr.ErrDbError, err.Error())
	}
	if data == nil {
		actorId := model.ObjectId(req.Seed | 0x1000_0000)
		data = model.NewPlayerData(actorId, req.ContentId, 0)
		data.HPCurr, data.HPMax = 100, 100
		data.MPCurr, data.MPMax = 100, 100
		data.Levels[0] = 1
	}
	zc.data = data
	zc.connectedAt = time.Now()

	if err := zc.w.sendIPC(0, ipc.InitResponse{ActorId: data.ActorId, ContentId: data.ContentId}); err != nil {
		return fmt.Errorf("connection: sending init response: %w", err)
	}
	if err := zc.w.sendIPC(uint32(data.ActorId), ipc.FromPlayerData(data)); err != nil {
		return fmt.Errorf("connection: sending player setup: %w", err)
	}

	weather, _ := zc.server.Data().Weather(context.Background(), data.ZoneId)
	if err := zc.w.sendIPC(uint32(data.ActorId), ipc.InitZone{ZoneId: data.ZoneId, WeatherId: weather}); err != nil {
		return fmt.Errorf("connection: sending init zone: %w", err)
	}
	spawn := data.Spawn()
	if err := zc.w.sendIPC(uint32(data.ActorId), ipc.NewPlayerSpawn(data.ActorId, spawn)); err != nil {
		return fmt.Errorf("connection: sending player spawn: %w", err)
	}

	state, terr = Transition(zc.state, StateZoneLoaded)
	if terr != nil {
		return terr
	}
	zc.state = state

	zc.server.Submit(globalserver.ZoneLoaded{
		ClientId: zc.clientId,
		ActorId:  data.ActorId,
		Spawn:    spawn,
		ZoneId:   data.ZoneId,
	})
	return nil
}

// mailboxLoop drains FromServer messages and re-encodes them onto the wire
// (§4.5). It exits when ctx is cancelled; the caller's read loop exiting is
// what triggers that cancellation.
func (zc *ZoneConnection) mailboxLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-zc.mailbox:
			if err := zc.deliverFromServer(msg); err != nil {
				zc.log.Warn("connection: delivering mailbox message", zap.Error(err))
			}
		}
	}
}

func (zc *ZoneConnection) deliverFromServer(msg globalserver.FromServer) error {
	switch m := msg.(type) {
	case globalserver.ActorSpawnMsg:
		if m.Spawn.Kind == model.KindPlayer {
			return zc.w.sendIPC(uint32(m.ActorId), ipc.NewPlayerSpawn(m.ActorId, m.Spawn))
		}
		return zc.w.sendIPC(uint32(m.ActorId), ipc.NewNpcSpawn(m.ActorId, m.Spawn))
	case globalserver.ActorDespawnMsg:
		return zc.w.sendIPC(uint32(m.ActorId), ipc.NewActorControlTarget(ipc.CategorySetMode, uint32(m.ActorId), uint32(model.ModeNone)))
	case globalserver.ActorMoveMsg:
		return zc.w.sendIPC(uint32(m.ActorId), ipc.ActorMove{ActorId: m.ActorId, Position: m.Position, Rotation: m.Rotation, AnimationId: m.AnimationId})
	case globalserver.ActorControlMsg:
		return zc.w.sendIPC(0, m.Payload)
	case globalserver.PacketSegmentMsg:
		return zc.w.emit(protocol.Segment{TargetActor: m.TargetActor, Kind: protocol.SegmentIPC, Body: m.Raw})
	case globalserver.NewTasksMsg:
		return zc.deliverTasks(m.Tasks)
	case globalserver.ChangeZoneMsg:
		zc.mu.Lock()
		if zc.data != nil && zc.data.ZoneId != m.ZoneId {
			zc.data.ZoneId = m.ZoneId
			zc.mu.Unlock()
			// Persistence commits on every zone change (§4.4).
			zc.commit(context.Background())
		} else {
			zc.mu.Unlock()
		}
		return zc.w.sendIPC(0, ipc.InitZone{ZoneId: m.ZoneId, WeatherId: m.WeatherId})
	case globalserver.NewPositionMsg:
		return zc.w.sendIPC(0, ipc.ActorMove{Position: m.Position, Rotation: m.Rotation})
	case globalserver.LeaveContentFromServer:
		return zc.w.sendIPC(0, ipc.NewActorControlSelf(ipc.CategoryDisableEventPosRollback))
	case globalserver.FinishEventMsg:
		// activeEvent is read-loop-owned state; the client's next event
		// trigger resynchronizes it after a server-forced finish.
		return zc.w.sendIPC(0, ipc.EventFinish{HandlerId: m.Id})
	case globalserver.KillFromServer:
		zc.state2Dead()
		return nil
	case globalserver.ActionResultMsg:
		return zc.w.sendIPC(0, m.Payload)
	case globalserver.EffectResultMsg:
		return zc.w.sendIPC(0, m.Payload)
	case globalserver.UpdateHpMpTpMsg:
		return zc.w.sendIPC(uint32(m.Payload.ActorId), m.Payload)
	default:
		zc.log.Debug("connection: unhandled FromServer message")
		return nil
	}
}

// state2Dead records a kill locally (HPCurr = 0) so a subsequent commit
// persists it. The Global server sends KillFromServer from onKill, after
// marking the actor dead in its instance.
func (zc *ZoneConnection) state2Dead() {
	if zc.data != nil {
		zc.data.HPCurr = 0
	}
}

// deliverTasks interprets the script.Task union forwarded from a resolved
// cast or director hook (§4.9 step 1-2). Tasks that mutate this
// Connection's own PlayerData are applied directly; tasks whose effect is
// instance-visible (movement, kill, HP/MP) are resubmitted as ToServer
// messages so the Global server stays the single owner of actor-table
// mutation (§9).
func (zc *ZoneConnection) deliverTasks(tasks []script.Task) error {
	zc.mu.Lock()
	defer zc.mu.Unlock()
	return zc.processTasks(tasks, 0)
}

func (zc *ZoneConnection) processTasks(tasks []script.Task, depth int) error {
	if depth >= constants.ScriptReentryDepthLimit {
		zc.log.Warn("connection: lua task depth limit reached, dropping remainder")
		return nil
	}

	sawFinishEvent := false
	var startedEvent uint32
	for _, t := range tasks {
		if err := zc.applyTask(t); err != nil {
			zc.log.Warn("connection: applying lua task failed", zap.Uint8("kind", uint8(t.Kind)), zap.Error(err))
		}
		switch t.Kind {
		case script.TaskFinishEvent:
			sawFinishEvent = true
		case script.TaskStartEvent, script.TaskStartTalkEvent:
			startedEvent = t.Id
		}
	}
	// The one re-entrant case (§4.9): a pass that finished an event may also
	// have started the next one in the chain; that new event's opening hook
	// runs now, bounded by the depth limit above.
	if sawFinishEvent && startedEvent != 0 && zc.data != nil {
		h := zc.events.Resolve(startedEvent)
		res := h.OnTalk(event.Context{Player: zc.data}, startedEvent)
		return zc.applyEventResult(startedEvent, res, depth+1)
	}
	return nil
}

// applyTask handles one script.Task (§4.9's representative list). The
// director-scoped kinds (TaskHideEObj onwards) have no case here: the Global
// server consumes them before forwarding, and one queued by a connection-local
// event hook falls through to the default case with any unknown kind and is
// logged, not fatal.
func (zc *ZoneConnection) applyTask(t script.Task) error {
	if zc.data == nil {
		return nil
	}
	d := zc.data
	actorId := uint32(d.ActorId)

	switch t.Kind {
	case script.TaskChangeTerritory:
		zc.server.Submit(globalserver.ChangeZone{ClientId: zc.clientId, ActorId: d.ActorId, NewZone: t.Zone})
	case script.TaskWarp:
		zc.server.Submit(globalserver.Warp{ClientId: zc.clientId, ActorId: d.ActorId, WarpId: t.Id})
	case script.TaskWarpAetheryte:
		zc.server.Submit(globalserver.WarpAetheryte{ClientId: zc.clientId, ActorId: d.ActorId, AetheryteId: uint16(t.Id)})
	case script.TaskMoveToPopRange:
		zc.server.Submit(globalserver.MoveToPopRange{ClientId: zc.clientId, ActorId: d.ActorId, PopRangeId: t.Id, FadeOut: t.FadeOut})
	case script.TaskReturnToHomepoint:
		zc.server.Submit(globalserver.Warp{ClientId: zc.clientId, ActorId: d.ActorId, WarpId: constants.HomepointWarpId})

	case script.TaskSetClassJob:
		d.ClassJobId = uint8(t.Id)
		if d.Levels[d.ClassJobId] == 0 {
			d.Levels[d.ClassJobId] = 1
		}
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategorySetLevel, uint32(d.Levels[d.ClassJobId])))
	case script.TaskSetLevel:
		d.Levels[d.ClassJobId] = uint16(t.Id)
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategoryLevelUpMessage, t.Id))
	case script.TaskAddExp:
		d.AddExp(t.Amount)
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategoryEXPFloatingMessage, uint32(t.Amount)))

	case script.TaskUnlock:
		model.SetBit(d.Unlocks.GeneralUnlocks[:], int(t.Id))
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategoryToggleUnlock, t.Id))
	case script.TaskUnlockAetheryte:
		setOrClearBit(d.Unlocks.Aetherytes[:], int(t.Id), t.On)
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategoryLearnTeleport, t.Id))
	case script.TaskUnlockContent:
		model.SetBit(d.Unlocks.InstanceContent[:], int(t.Id))
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategoryUnlockInstanceContent, t.Id))
	case script.TaskUnlockAllContent:
		model.SetAllBits(d.Unlocks.InstanceContent[:], true)

	case script.TaskAcceptQuest:
		d.ActiveQuests = append(d.ActiveQuests, model.ActiveQuest{QuestId: uint16(t.Id)})
	case script.TaskFinishQuest:
		model.SetBit(d.Unlocks.CompletedQuests[:], int(t.Id))
		d.ActiveQuests = removeQuest(d.ActiveQuests, uint16(t.Id))
	case script.TaskCancelQuest, script.TaskIncompleteQuest:
		d.ActiveQuests = removeQuest(d.ActiveQuests, uint16(t.Id))
	case script.TaskQuestSequence:
		for i := range d.ActiveQuests {
			if d.ActiveQuests[i].QuestId == uint16(t.Id) {
				d.ActiveQuests[i].Sequence = t.Sequence
			}
		}

	case script.TaskAddItem:
		stackSize := uint32(1)
		if info, ok := zc.server.Data().Item(context.Background(), t.Id); ok && info.StackSize > 0 {
			stackSize = info.StackSize
		}
		idx := d.Inventory.AddInNextFreeSlot(t.Id, t.Quantity, stackSize)
		if idx >= 0 && t.On {
			slot := d.Inventory.SlotAt(idx)
			return zc.w.sendIPC(actorId, ipc.UpdateInventorySlot{
				SlotIndex: uint16(idx),
				ItemId:    slot.ItemId,
				Quantity:  slot.Quantity,
				ItemLevel: slot.ItemLevel,
				PriceLow:  slot.PriceLow,
				Sequence:  d.Inventory.ItemSequence,
			})
		}
	case script.TaskModifyCurrency:
		if t.Id == 0 {
			d.Inventory.Currency.Gil = addSaturating(d.Inventory.Currency.Gil, t.Amount)
		} else {
			d.Inventory.Currency.Tokens[t.Id] = addSaturating(d.Inventory.Currency.Tokens[t.Id], t.Amount)
		}

	case script.TaskToggleUnlock:
		mask := zc.unlockMask(t.Category)
		if mask == nil {
			break
		}
		if t.All {
			model.SetAllBits(mask, t.On)
		} else {
			setOrClearBit(mask, int(t.Id), t.On)
		}
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(toggleUnlockCategory(t.Category), t.Id))

	case script.TaskStartEvent, script.TaskStartTalkEvent:
		zc.activeEvent = t.Id
		return zc.w.sendIPC(actorId, ipc.EventStart{
			ActorId:   d.ActorId,
			HandlerId: t.Id,
			EventType: t.Type,
			Arg:       t.Arg,
		})
	case script.TaskFinishEvent:
		if zc.activeEvent == t.Id {
			zc.activeEvent = 0
		}
		return zc.w.sendIPC(actorId, ipc.EventFinish{HandlerId: t.Id})

	case script.TaskSetRace, script.TaskSetTribe, script.TaskSetSex:
		// Customize appearance bytes aren't tracked on PlayerData yet (§3's
		// CommonSpawn customize blob has no backing field); re-send this
		// client's own spawn so at least position/class project correctly.
		return zc.w.sendIPC(actorId, ipc.NewPlayerSpawn(d.ActorId, d.Spawn()))

	case script.TaskChangeWeather:
		// The Global server's deliverTasks (globalserver/tick.go) has already
		// applied and broadcast the weather change before forwarding this
		// task; nothing is left to do here.
	case script.TaskGainStatusEffect:
		return zc.w.sendIPC(actorId, ipc.NewActorControlSelf(ipc.CategoryGainEffect, uint32(t.EffectId), uint32(t.Param)))
	case script.TaskKill:
		zc.server.Submit(globalserver.KillMsg{ClientId: zc.clientId, ActorId: d.ActorId})
	case script.TaskAbandonContent:
		zc.server.Submit(globalserver.LeaveContentMsg{ClientId: zc.clientId, ActorId: d.ActorId})
	case script.TaskSetHP:
		zc.server.Submit(globalserver.SetHP{ActorId: d.ActorId, HP: t.HP})
	case script.TaskSetMP:
		zc.server.Submit(globalserver.SetMP{ActorId: d.ActorId, MP: t.MP})

	case script.TaskSendSegment:
		return zc.w.emit(protocol.Segment{TargetActor: actorId, Kind: protocol.SegmentIPC, Body: t.SegmentPayload})

	default:
		zc.log.Debug("connection: unhandled lua task kind", zap.Uint8("kind", uint8(t.Kind)))
	}
	return nil
}

// unlockMask resolves a UnlockCategory to its backing bitmask. Aether
// current zone groupings share the aether-current mask itself (§3 names no
// separate wire field for the grouping), so both categories resolve here.
func (zc *ZoneConnection) unlockMask(cat script.UnlockCategory) []byte {
	u := &zc.data.Unlocks
	switch cat {
	case script.UnlockMount:
		return u.Mounts[:]
	case script.UnlockMinion:
		return u.Minions[:]
	case script.UnlockOrnament:
		return u.Ornaments[:]
	case script.UnlockGlassesStyle:
		return u.GlassesStyles[:]
	case script.UnlockChocoboTaxiStand:
		return u.ChocoboTaxiStands[:]
	case script.UnlockCaughtFish:
		return u.CaughtFish[:]
	case script.UnlockCaughtSpearfish:
		return u.CaughtSpearfish[:]
	case script.UnlockCutsceneSeen:
		return u.CutscenesSeen[:]
	case script.UnlockAdventure:
		return u.Adventures[:]
	case script.UnlockTripleTriadCard:
		return u.TripleTriadCards[:]
	case script.UnlockAetherCurrent, script.UnlockAetherCurrentZoneGroup:
		return u.AetherCurrents[:]
	case script.UnlockOrchestrionRoll:
		return u.OrchestrionRolls[:]
	case script.UnlockBuddyEquip:
		return u.BuddyEquip[:]
	default:
		return nil
	}
}

// toggleUnlockCategory maps a script.UnlockCategory to the matching
// ActorControlSelf category the client expects for that toggle (§4.7).
func toggleUnlockCategory(cat script.UnlockCategory) ipc.ActorControlCategory {
	switch cat {
	case script.UnlockMount:
		return ipc.CategoryToggleMountUnlock
	case script.UnlockMinion:
		return ipc.CategoryToggleMinionUnlock
	case script.UnlockOrnament:
		return ipc.CategoryToggleOrnamentUnlock
	case script.UnlockGlassesStyle:
		return ipc.CategoryToggleGlassesStyleUnlock
	case script.UnlockChocoboTaxiStand:
		return ipc.CategoryToggleChocoboTaxiStand
	case script.UnlockCutsceneSeen:
		return ipc.CategoryToggleCutsceneSeen
	case script.UnlockAdventure:
		return ipc.CategoryToggleAdventureUnlock
	case script.UnlockTripleTriadCard:
		return ipc.CategoryToggleTripleTriadCardUnlock
	case script.UnlockAetherCurrent, script.UnlockAetherCurrentZoneGroup:
		return ipc.CategoryToggleAetherCurrentUnlock
	case script.UnlockOrchestrionRoll:
		return ipc.CategoryToggleOrchestrionUnlock
	case script.UnlockBuddyEquip:
		return ipc.CategoryBuddyEquipUnlock
	default:
		return ipc.CategoryToggleUnlock
	}
}

// setOrClearBit applies SetBit/ClearBit based on on, matching the
// ToggleXUnlock{id, on} task shape (§4.9).
func setOrClearBit(mask []byte, id int, on bool) {
	if on {
		model.SetBit(mask, id)
	} else {
		model.ClearBit(mask, id)
	}
}

// removeQuest drops questId from an active-quest list (cancel/incomplete/finish).
func removeQuest(quests []model.ActiveQuest, questId uint16) []model.ActiveQuest {
	out := quests[:0]
	for _, q := range quests {
		if q.QuestId != questId {
			out = append(out, q)
		}
	}
	return out
}

// addSaturating adds a signed delta to an unsigned currency balance,
// saturating at 0 rather than wrapping (§4.9 ModifyCurrency).
func addSaturating(cur uint32, delta int32) uint32 {
	v := int64(cur) + int64(delta)
	if v < 0 {
		return 0
	}
	return uint32(v)
}

// keepAliveLoop pings the client every KeepAliveInterval and closes the
// connection if no pong arrives within the following KeepAliveGrace
// (§4.3, §7 TimeoutKeepAlive).
func (zc *ZoneConnection) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(constants.KeepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if time.Since(zc.lastKeepAlivePong) > constants.KeepAliveInterval+constants.KeepAliveGrace {
				zc.log.Warn("connection: keep-alive timeout, closing", zap.String("remote", zc.conn.RemoteAddr().String()))
				zc.conn.Close()
				return
			}
			req := ipc.KeepAliveRequest{Id: uint32(time.Now().Unix()), Timestamp: uint32(time.Now().Unix())}
			if err := zc.w.emit(protocol.Segment{Kind: protocol.SegmentKeepAliveRequest, Body: ipc.Serialize(req)}); err != nil {
				zc.log.Warn("connection: sending keep-alive failed", zap.Error(err))
			}
		}
	}
}

// commit persists the character snapshot. ServeZone calls it when the read
// loop ends, and deliverFromServer calls it on every zone change (§4.4:
// "committed on graceful logout and on every zone change"). Name isn't
// tracked on PlayerData yet (no character-creation flow is in scope, §1),
// so an empty name is committed rather than inventing one. A failed commit
// is retried once; if the retry fails too, the connection is closed.
func (zc *ZoneConnection) commit(ctx context.Context) {
	zc.mu.Lock()
	defer zc.mu.Unlock()
	minutes := int(time.Since(zc.connectedAt).Minutes())
	err := zc.store.Commit(ctx, "", minutes, zc.data)
	if err != nil {
		zc.log.Warn("connection: commit failed, retrying once", zap.Error(err))
		err = zc.store.Commit(ctx, "", minutes, zc.data)
	}
	if err != nil {
		zc.log.Warn("connection: commit retry failed, closing", zap.Error(wireerr.Wrap(wireerr.ErrDbError, err.Error())))
		zc.conn.Close()
	}
}

// readSeed extracts the 4-byte little-endian handshake token out of an
// Initialize segment's body. Nothing in this package calls it.
func readSeed(body []byte) uint32 {
	if len(body) < 4 {
		return 0
	}
	return binary.LittleEndian.Uint32(body[:4])
}
