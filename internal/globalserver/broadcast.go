package globalserver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/director"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
	"github.com/aetherforge/worldserver/internal/wireerr"
	"github.com/aetherforge/worldserver/internal/zone"
)

// broadcastToObservers delivers msg to every connection whose actor shares
// in with self, per the "observers of actor A" scoping rule (§4.5). self
// may be the zero ObjectId to mean "every player in the instance".
func (s *Server) broadcastToObservers(in *zone.Instance, self model.ObjectId, msg FromServer) {
	for _, observer := range in.Observers(self) {
		if clientId, ok := s.clientOfActor(observer); ok {
			s.send(clientId, msg)
		}
	}
}

// sendToActor delivers msg to actorId's own connection, or silently drops
// it if the actor has no live connection (e.g. an NPC).
func (s *Server) sendToActor(actorId model.ObjectId, msg FromServer) {
	if clientId, ok := s.clientOfActor(actorId); ok {
		s.send(clientId, msg)
	}
}

func (s *Server) onZoneLoaded(m ZoneLoaded) {
	in := s.ensureInstance(m.ZoneId)
	actor := &model.Actor{Id: m.ActorId, Kind: model.ActorPlayer, Spawn: m.Spawn}
	in.AddActor(actor)
	s.actorInstance[m.ActorId] = in.Id
	if h, ok := s.clients[m.ClientId]; ok {
		h.actorId = m.ActorId
	}

	s.send(m.ClientId, ChangeZoneMsg{ZoneId: in.ZoneId, WeatherId: in.Weather})

	for _, other := range in.Actors() {
		if other.Id == m.ActorId {
			continue
		}
		if idx, err := in.Show(m.ActorId, other.Id); err == nil {
			spawn := other.Spawn.Clone()
			spawn.SpawnIndex = idx
			s.send(m.ClientId, ActorSpawnMsg{ActorId: other.Id, Spawn: spawn})
		}
	}
	s.announceSpawn(in, m.ActorId, m.Spawn)
}

// announceSpawn shows actorId to every other player in the instance,
// allocating each observer's own spawn index (§4.5: assignment is
// per-observer, not global). An observer whose pool is exhausted simply
// doesn't get the spawn (§7 Oversubscribed).
func (s *Server) announceSpawn(in *zone.Instance, actorId model.ObjectId, spawn model.CommonSpawn) {
	for _, observer := range in.Observers(actorId) {
		idx, err := in.Show(observer, actorId)
		if err != nil {
			s.log.Warn("globalserver: spawn index pool exhausted",
				zap.Uint32("observer", uint32(observer)), zap.Uint32("actor", uint32(actorId)))
			continue
		}
		clone := spawn.Clone()
		clone.SpawnIndex = idx
		if clientId, ok := s.clientOfActor(observer); ok {
			s.send(clientId, ActorSpawnMsg{ActorId: actorId, Spawn: clone})
		}
	}
}

// removeActor takes actorId out of whatever instance it currently occupies,
// telling every observer it has despawned.
func (s *Server) removeActor(actorId model.ObjectId) {
	in := s.instanceFor(actorId)
	if in == nil {
		return
	}
	s.broadcastToObservers(in, actorId, ActorDespawnMsg{ActorId: actorId})
	in.RemoveActor(actorId)
	delete(s.actorInstance, actorId)
}

func (s *Server) onChangeZone(m ChangeZone) {
	// Carry the actor's spawn attributes across the move; the old instance's
	// copy is the only authoritative one (§4.5: a ChangeZone moves the
	// player's ObjectId out of exactly one instance).
	var spawn model.CommonSpawn
	if old := s.instanceFor(m.ActorId); old != nil {
		if a, ok := old.Actor(m.ActorId); ok {
			spawn = a.Spawn
		}
	}
	s.removeActor(m.ActorId)
	in := s.ensureInstance(m.NewZone)
	if m.Pos != nil {
		spawn.Position = *m.Pos
	}
	if m.Rot != nil {
		spawn.Rotation = *m.Rot
	}
	actor := &model.Actor{Id: m.ActorId, Kind: model.ActorPlayer, Spawn: spawn}
	in.AddActor(actor)
	s.actorInstance[m.ActorId] = in.Id

	clientId := m.ClientId
	if clientId == 0 {
		// Script- and warp-initiated moves arrive without a ClientId.
		clientId, _ = s.clientOfActor(m.ActorId)
	}
	s.send(clientId, ChangeZoneMsg{ZoneId: in.ZoneId, WeatherId: in.Weather})
	s.announceSpawn(in, m.ActorId, spawn)
}

// onWarp resolves a client-initiated warp/teleport by moving the caster to
// a target zone. No warp or aetheryte table is consulted: the warp id or
// aetheryte id the caller passes is used directly as the zone id, so
// HomepointWarpId (0) moves the actor to zone 0.
func (s *Server) onWarp(actorId model.ObjectId, targetZone uint32) {
	if s.instanceFor(actorId) == nil {
		return
	}
	s.onChangeZone(ChangeZone{ActorId: actorId, NewZone: uint16(targetZone)})
}

func (s *Server) onMoveToPopRange(m MoveToPopRange) {
	s.sendToActor(m.ActorId, NewPositionMsg{})
	if m.FadeOut {
		if in := s.instanceFor(m.ActorId); in != nil {
			s.broadcastToObservers(in, m.ActorId, ActorControlMsg{Payload: ipc.NewActorControl(ipc.CategorySetMode, uint32(model.ModeNone))})
		}
	}
}

func (s *Server) onActorMoved(m ActorMoved) {
	in := s.instanceFor(m.ActorId)
	if in == nil {
		return
	}
	if a, ok := in.Actor(m.ActorId); ok {
		a.Spawn.Position = m.Position
		a.Spawn.Rotation = m.Rotation
	}
	rot := model.QuantizeRotation(m.Rotation)
	s.broadcastToObservers(in, m.ActorId, ActorMoveMsg{ActorId: m.ActorId, Position: m.Position, Rotation: rot, AnimationId: m.Animation})
}

func (s *Server) onActionRequest(m ActionRequestMsg) {
	in := s.instanceFor(m.ActorId)
	if in == nil {
		s.sendToActor(m.ActorId, ActorControlMsg{Payload: ipc.NewActorControlSelf(ipc.CategoryCancelCast)})
		return
	}
	if _, err := s.pipeline.Enqueue(context.Background(), in, time.Now(), m.ActorId, m.Request); err != nil {
		s.log.Warn("action: enqueue failed", zap.Uint32("action_key", m.Request.ActionKey), zap.Error(err))
	}
}

func (s *Server) onClientTrigger(m ClientTriggerMsg) {
	switch m.Command.CommandId {
	case ipc.TriggerCancelCast:
		in := s.instanceFor(m.ActorId)
		if in == nil {
			return
		}
		if s.pipeline.CancelCast(in, m.ActorId) {
			s.sendToActor(m.ActorId, ActorControlMsg{Payload: ipc.NewActorControlSelf(ipc.CategoryCancelCast)})
		}
	case ipc.TriggerGimmickAccessor:
		s.onGimmickAccessor(GimmickAccessor{ActorId: m.ActorId, Id: m.Command.Params[0], Params: m.Command.Params[1:]})
	default:
		s.log.Debug("globalserver: unhandled client trigger", zap.Uint32("command_id", m.Command.CommandId))
	}
}

func (s *Server) onGimmickAccessor(m GimmickAccessor) {
	in := s.instanceFor(m.ActorId)
	if in == nil {
		return
	}
	d, ok := s.directors[in.Id]
	if !ok {
		return
	}
	tasks, err := d.GimmickAccessor(s.host, m.ActorId, m.Id, m.Params)
	if err != nil {
		s.log.Warn("director: gimmick accessor failed", zap.Error(wireerr.Wrap(wireerr.ErrScriptError, err.Error())))
	}
	s.deliverTasks(m.ActorId, tasks)
	s.flushDirector(d)
}

// applyDirectorTask applies one director-scoped script task (§4.8) to the
// actor's instance and Director. Outside instanced content there is no
// Director to apply it to, so the task is dropped.
func (s *Server) applyDirectorTask(actorId model.ObjectId, t script.Task) {
	in := s.instanceFor(actorId)
	if in == nil {
		return
	}
	d, ok := s.directors[in.Id]
	if !ok {
		s.log.Debug("globalserver: director task outside instanced content", zap.Uint8("kind", uint8(t.Kind)))
		return
	}
	switch t.Kind {
	case script.TaskHideEObj:
		d.HideEObj(t.Id)
	case script.TaskShowEObj:
		d.ShowEObj(t.Id)
	case script.TaskSpawnEObj:
		in.AddActor(&model.Actor{Id: model.ObjectId(t.Id), Kind: model.ActorObject, EObjBaseId: t.Id, Visible: true})
		d.ShowEObj(t.Id)
	case script.TaskDeleteEObj:
		for _, a := range in.Actors() {
			if a.Kind == model.ActorObject && a.EObjBaseId == t.Id {
				s.broadcastToObservers(in, 0, ActorDespawnMsg{ActorId: a.Id})
				in.RemoveActor(a.Id)
			}
		}
	case script.TaskSetDirectorVar:
		d.SetData(int(t.Index), t.Value)
	case script.TaskAbandonDuty:
		d.AbandonDuty(t.Actor)
	case script.TaskDirectorEventAction:
		d.EventAction(t.Id, t.Actor, t.Target)
	case script.TaskFinishGimmick:
		d.FinishGimmick(t.Actor)
	case script.TaskDirectorLogMessage:
		d.LogMessage(t.Id)
	}
}

func (s *Server) onKill(actorId model.ObjectId) {
	in := s.instanceFor(actorId)
	if in == nil {
		return
	}
	in.Kill(time.Now(), actorId)
	s.broadcastToObservers(in, 0, ActorControlMsg{Payload: ipc.NewActorControlTarget(ipc.CategorySetMode, uint32(actorId), uint32(model.ModeDead))})
	s.broadcastToObservers(in, 0, ActorControlMsg{Payload: ipc.NewActorControlTarget(ipc.CategoryKill, uint32(actorId), 0)})
	s.sendToActor(actorId, KillFromServer{})
}

func (s *Server) onLeaveContent(actorId model.ObjectId) {
	s.sendToActor(actorId, LeaveContentFromServer{})
}

// onChatMessage fans one chat line out over the Chat sockets of every
// observer sharing the sender's instance, plus the sender's own echo. The
// channel is not checked here; the Chat connection forwards only Party and
// Say lines. The observer set stands in for party membership: there is no
// server-side party roster.
func (s *Server) onChatMessage(m ChatMessageMsg) {
	in := s.instanceFor(m.ActorId)
	if in == nil {
		return
	}
	msg := m.Message
	msg.SenderId = uint32(m.ActorId)

	s.sendChat(m.ActorId, ChatDeliveryMsg{Payload: msg})
	for _, observer := range in.Observers(m.ActorId) {
		s.sendChat(observer, ChatDeliveryMsg{Payload: msg})
	}
}

// sendChat delivers msg to actorId's Chat-connection mailbox, if it has
// one, without blocking the broker loop.
func (s *Server) sendChat(actorId model.ObjectId, msg FromServer) {
	mb, ok := s.chatClients[actorId]
	if !ok {
		return
	}
	select {
	case mb <- msg:
	default:
		s.log.Warn("globalserver: dropping chat to stalled client", zap.Uint32("actor_id", uint32(actorId)))
	}
}

func (s *Server) onCommenceDuty(m CommenceDuty) {
	in := s.instanceFor(m.ActorId)
	if in == nil {
		return
	}
	if _, exists := s.directors[in.Id]; exists {
		return
	}
	// Director scripts follow the director_<zone> global naming convention,
	// the same way action scripts are named by their sheet key.
	d := director.New(in.Id, fmt.Sprintf("director_%d", in.ZoneId))
	tasks, err := d.Setup(s.host)
	if err != nil {
		s.log.Warn("director: setup failed", zap.Error(err))
	}
	s.directors[in.Id] = d
	s.deliverTasks(m.ActorId, tasks)
	s.flushDirector(d)
}

// flushDirector drains d's queued broadcasts and fans each out (§4.8
// invariant: every broadcast carries its director's handler_id). Broadcasts
// that name an Actor go to that player's own connection (InitDirector,
// DirectorVars, FinishGimmick, LeaveContent are all self-targeted per
// §4.8); the rest fan out to every observer in the instance.
func (s *Server) flushDirector(d *director.Director) {
	in, ok := s.instances[d.HandlerId]
	if !ok {
		return
	}
	for _, b := range d.DrainBroadcasts() {
		switch b.Kind {
		case director.EventEventAction:
			// The broadcast plays the cast bar; resolution fires at the
			// instance tick EventActionCastDelay later (§4.8 event_action).
			in.Enqueue(zone.Task{
				Kind:          zone.TaskCastEvent,
				DueAt:         time.Now().Add(constants.EventActionCastDelay),
				ActorId:       b.Actor,
				TargetId:      b.Target,
				EventActionId: b.ActionId,
			})
		case director.EventShowEObj, director.EventHideEObj:
			visible := b.Kind == director.EventShowEObj
			for _, a := range in.Actors() {
				if a.Kind == model.ActorObject && a.EObjBaseId == b.EObjBaseId {
					a.Visible = visible
				}
			}
		}
		msg := directorBroadcastToFromServer(b)
		if b.Actor.Valid() {
			s.sendToActor(b.Actor, msg)
			continue
		}
		s.broadcastToObservers(in, 0, msg)
	}
}

func directorBroadcastToFromServer(b director.Broadcast) FromServer {
	switch b.Kind {
	case director.EventFinishGimmick:
		return FinishEventMsg{Id: b.HandlerId}
	case director.EventAbandonDuty:
		return LeaveContentFromServer{}
	case director.EventShowEObj, director.EventHideEObj:
		return ActorControlMsg{Payload: ipc.NewActorControl(ipc.CategorySetInvisibilityFlags, b.EObjBaseId)}
	case director.EventEventAction:
		return ActorControlMsg{Payload: ipc.NewActorControlTarget(ipc.CategoryEventAction, uint32(b.Target), b.ActionId, uint32(b.Actor))}
	case director.EventLogMessage:
		return ActorControlMsg{Payload: ipc.NewActorControl(ipc.CategoryLogMessage, b.HandlerId, b.MessageId)}
	case director.EventVarsChanged:
		return ActorControlMsg{Payload: ipc.NewActorControlSelf(ipc.CategoryDirectorEvent, b.HandlerId)}
	case director.EventInitDirector:
		return ActorControlMsg{Payload: ipc.NewActorControlSelf(ipc.CategoryInitDirector, b.HandlerId)}
	case director.EventTerminateDirector:
		return ActorControlMsg{Payload: ipc.NewActorControlSelf(ipc.CategoryTerminateDirector, b.HandlerId)}
	default:
		return ActorControlMsg{Payload: ipc.NewActorControl(ipc.CategoryDirectorEvent, b.HandlerId)}
	}
}
