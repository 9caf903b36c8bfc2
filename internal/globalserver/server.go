package globalserver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/action"
	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/director"
	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
	"github.com/aetherforge/worldserver/internal/spawn"
	"github.com/aetherforge/worldserver/internal/zone"
)

// clientHandle is what the Server keeps per live Connection: just enough
// to deliver FromServer messages and to know which actor, if any, it
// currently owns (§4.3, §9: "Connections carry only their own actor-id").
type clientHandle struct {
	mailbox chan FromServer
	actorId model.ObjectId
}

// Server is the single-threaded broker owning the instance map and the
// connection handle table (§4.5, §5 "the instance map is the only
// cross-task shared mutable state"). All mutation happens on the
// goroutine running Run; external callers only ever send on ToServer.
type Server struct {
	log      *zap.Logger
	data     gamedata.Store
	pipeline *action.Pipeline
	host     *script.Host
	spawner  *spawn.Spawner

	tickInterval time.Duration

	toServer chan ToServer

	clients map[ClientId]*clientHandle

	// chatClients maps an actor to its Chat-connection mailbox; the Chat
	// socket registers itself by actor id, independent of the Zone socket's
	// ClientId (§2 Connection (Zone/Lobby/Chat)).
	chatClients map[model.ObjectId]chan FromServer

	instances      map[uint32]*zone.Instance
	instanceOfZone map[uint16]uint32
	directors      map[uint32]*director.Director
	actorInstance  map[model.ObjectId]uint32
	nextInstanceId uint32
}

// New constructs a Server. Callers must call Run in its own goroutine
// before sending anything on Submit.
func New(data gamedata.Store, host *script.Host, log *zap.Logger) *Server {
	return &Server{
		log:            log,
		data:           data,
		pipeline:       action.New(data, host),
		host:           host,
		spawner:        spawn.New(data, log),
		tickInterval:   constants.DefaultTickInterval,
		toServer:       make(chan ToServer, 1024),
		clients:        make(map[ClientId]*clientHandle),
		chatClients:    make(map[model.ObjectId]chan FromServer),
		instances:      make(map[uint32]*zone.Instance),
		instanceOfZone: make(map[uint16]uint32),
		directors:      make(map[uint32]*director.Director),
		actorInstance:  make(map[model.ObjectId]uint32),
		nextInstanceId: 1,
	}
}

// Data returns the game-data collaborator, so a Connection can look up
// zone weather and other read-only sheet data without the broker in the
// loop (the collaborator is read-only and safe to share, §1).
func (s *Server) Data() gamedata.Store {
	return s.data
}

// Submit enqueues msg for processing on the broker goroutine. Messages from
// one Connection are processed in send order (§5 ordering guarantee 2)
// because Go channels preserve per-sender FIFO order and Run drains
// toServer with a single consumer.
func (s *Server) Submit(msg ToServer) {
	s.toServer <- msg
}

// Run drives the broker loop until ctx is cancelled: draining ToServer
// messages and, on a fixed cadence, ticking every instance (§4.5, §5).
// Shutting down drops all instance tasks and returns once ctx is done,
// matching §5's "shutting down the Global server drops all instance tasks
// and then closes sockets" (socket closing is the caller's job).
func (s *Server) Run(ctx context.Context) {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-s.toServer:
			s.handle(msg)
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Server) handle(msg ToServer) {
	switch m := msg.(type) {
	case NewClient:
		s.clients[m.ClientId] = &clientHandle{mailbox: m.Mailbox}
	case Disconnected:
		s.onDisconnected(m)
	case ZoneLoaded:
		s.onZoneLoaded(m)
	case ChangeZone:
		s.onChangeZone(m)
	case EnterZoneJump:
		s.onChangeZone(ChangeZone{ClientId: m.ClientId, ActorId: m.ActorId, NewZone: 0})
	case Warp:
		s.onWarp(m.ActorId, m.WarpId)
	case WarpAetheryte:
		s.onWarp(m.ActorId, uint32(m.AetheryteId))
	case MoveToPopRange:
		s.onMoveToPopRange(m)
	case ActorMoved:
		s.onActorMoved(m)
	case ActionRequestMsg:
		s.onActionRequest(m)
	case ClientTriggerMsg:
		s.onClientTrigger(m)
	case KillMsg:
		s.onKill(m.ActorId)
	case LeaveContentMsg:
		s.onLeaveContent(m.ActorId)
	case CommenceDuty:
		s.onCommenceDuty(m)
	case GimmickAccessor:
		s.onGimmickAccessor(m)
	case SetHP:
		s.onSetHP(m.ActorId, m.HP)
	case SetMP:
		s.onSetMP(m.ActorId, m.MP)
	case ChatConnected:
		s.chatClients[m.ActorId] = m.Mailbox
	case ChatDisconnected:
		delete(s.chatClients, m.ActorId)
	case ChatMessageMsg:
		s.onChatMessage(m)
	default:
		s.log.Warn("globalserver: unhandled ToServer message", zap.String("type", "unknown"))
	}
}

// instanceFor finds actorId's current instance, or nil if it is not
// presently in any (e.g. the actor was already removed by a racing
// disconnect).
func (s *Server) instanceFor(actorId model.ObjectId) *zone.Instance {
	id, ok := s.actorInstance[actorId]
	if !ok {
		return nil
	}
	return s.instances[id]
}

// ensureInstance returns the live instance for zoneId, creating one on
// demand if none exists yet (§4.5 "Instance ensure", §7 InstanceMissing:
// "Create on demand").
func (s *Server) ensureInstance(zoneId uint16) *zone.Instance {
	if id, ok := s.instanceOfZone[zoneId]; ok {
		if in, ok := s.instances[id]; ok {
			return in
		}
	}
	weather, _ := s.data.Weather(context.Background(), zoneId)
	id := s.nextInstanceId
	s.nextInstanceId++
	in := zone.NewInstance(id, zoneId, weather, nil)
	s.spawner.Populate(context.Background(), in)
	for _, a := range in.Actors() {
		s.actorInstance[a.Id] = id
	}
	s.instances[id] = in
	s.instanceOfZone[zoneId] = id
	s.log.Info("instance created", zap.Uint32("instance_id", id), zap.Uint16("zone_id", zoneId))
	return in
}

// send delivers msg to clientId's mailbox without blocking the broker
// loop; a full mailbox means a stalled Connection, so the message is
// dropped and logged rather than stalling every other client (§7 general
// policy: "the connection is the unit of failure isolation").
func (s *Server) send(clientId ClientId, msg FromServer) {
	h, ok := s.clients[clientId]
	if !ok {
		return
	}
	select {
	case h.mailbox <- msg:
	default:
		s.log.Warn("globalserver: dropping message to stalled client", zap.Uint64("client_id", uint64(clientId)))
	}
}

// clientOfActor finds which ClientId currently owns actorId, scanning the
// (typically small) client table. This mirrors la2go's Clients registry
// lookup pattern; a reverse index would only pay for itself at a much
// larger population than a single zone instance ever holds.
func (s *Server) clientOfActor(actorId model.ObjectId) (ClientId, bool) {
	for id, h := range s.clients {
		if h.actorId == actorId {
			return id, true
		}
	}
	return 0, false
}

func (s *Server) onDisconnected(m Disconnected) {
	h, ok := s.clients[m.ClientId]
	if !ok {
		return
	}
	if h.actorId.Valid() {
		s.removeActor(h.actorId)
	}
	delete(s.clients, m.ClientId)
}

func (s *Server) onSetHP(actorId model.ObjectId, hp uint32) {
	in := s.instanceFor(actorId)
	if in == nil {
		return
	}
	a, ok := in.Actor(actorId)
	if !ok {
		return
	}
	a.Spawn.HPCurr = hp
	if hp == 0 {
		s.onKill(actorId)
	}
}

func (s *Server) onSetMP(actorId model.ObjectId, mp uint16) {
	in := s.instanceFor(actorId)
	if in == nil {
		return
	}
	if a, ok := in.Actor(actorId); ok {
		a.Spawn.MPCurr = mp
	}
}
