package globalserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/director"
	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
	"github.com/aetherforge/worldserver/internal/zone"
)

// newTestServer builds a Server without starting Run; tests drive handle
// and tick directly on the calling goroutine, which is equivalent to the
// broker loop since both serialize all mutation onto one goroutine.
func newTestServer(t *testing.T) *Server {
	t.Helper()
	data := gamedata.NewFake()
	data.Weathers[132] = 2
	return New(data, nil, zap.NewNop())
}

func drain(ch chan FromServer) []FromServer {
	var out []FromServer
	for {
		select {
		case m := <-ch:
			out = append(out, m)
		default:
			return out
		}
	}
}

func connect(s *Server, id ClientId) chan FromServer {
	ch := make(chan FromServer, 64)
	s.handle(NewClient{ClientId: id, Mailbox: ch})
	return ch
}

func load(s *Server, id ClientId, actorId model.ObjectId, zoneId uint16, hp uint32) chan FromServer {
	ch := connect(s, id)
	s.handle(ZoneLoaded{
		ClientId: id,
		ActorId:  actorId,
		ZoneId:   zoneId,
		Spawn:    model.CommonSpawn{HPCurr: hp, HPMax: hp, Kind: model.KindPlayer},
	})
	return ch
}

func TestZoneLoadedPlacesActorAndNotifiesObservers(t *testing.T) {
	s := newTestServer(t)

	chA := load(s, 1, 100, 132, 500)
	msgs := drain(chA)
	require.Len(t, msgs, 1)
	cz, ok := msgs[0].(ChangeZoneMsg)
	require.True(t, ok)
	require.Equal(t, uint16(132), cz.ZoneId)
	require.Equal(t, uint16(2), cz.WeatherId)

	chB := load(s, 2, 200, 132, 300)

	// B got the zone message, a spawn for A; A got a spawn for B.
	var sawSpawnOfA bool
	for _, m := range drain(chB) {
		if sp, ok := m.(ActorSpawnMsg); ok && sp.ActorId == 100 {
			sawSpawnOfA = true
		}
	}
	require.True(t, sawSpawnOfA)

	var sawSpawnOfB bool
	for _, m := range drain(chA) {
		if sp, ok := m.(ActorSpawnMsg); ok && sp.ActorId == 200 {
			sawSpawnOfB = true
		}
	}
	require.True(t, sawSpawnOfB)
}

func TestChangeZonePreservesSpawnAndDespawnsFromOldZone(t *testing.T) {
	s := newTestServer(t)

	chMover := load(s, 1, 100, 132, 777)
	chWatcher := load(s, 2, 200, 132, 100)
	drain(chMover)
	drain(chWatcher)

	s.handle(ChangeZone{ClientId: 1, ActorId: 100, NewZone: 129})

	var sawDespawn bool
	for _, m := range drain(chWatcher) {
		if d, ok := m.(ActorDespawnMsg); ok && d.ActorId == 100 {
			sawDespawn = true
		}
	}
	require.True(t, sawDespawn, "old-zone observers must see the despawn (§8 scenario 4)")

	var sawChangeZone bool
	for _, m := range drain(chMover) {
		if cz, ok := m.(ChangeZoneMsg); ok {
			sawChangeZone = true
			require.Equal(t, uint16(129), cz.ZoneId)
		}
	}
	require.True(t, sawChangeZone)

	in := s.instanceFor(100)
	require.NotNil(t, in)
	require.Equal(t, uint16(129), in.ZoneId)
	a, ok := in.Actor(100)
	require.True(t, ok)
	require.Equal(t, uint32(777), a.Spawn.HPCurr, "spawn attributes survive the move")
}

func TestChangeZoneWithExplicitPositionOverrides(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	pos := model.Position{X: 10, Y: 20, Z: 30}
	rot := float32(1.5)
	s.handle(ChangeZone{ClientId: 1, ActorId: 100, NewZone: 129, Pos: &pos, Rot: &rot})

	a, ok := s.instanceFor(100).Actor(100)
	require.True(t, ok)
	require.Equal(t, pos, a.Spawn.Position)
	require.Equal(t, rot, a.Spawn.Rotation)
}

func TestKillNpcSchedulesSingleDeadFadeOut(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	in := s.instanceFor(100)
	in.AddActor(&model.Actor{Id: 9000, Kind: model.ActorNpc, Spawn: model.CommonSpawn{HPCurr: 0}})
	s.actorInstance[9000] = in.Id

	s.onKill(9000)

	// The fade-out fires no earlier than 8s later (§8 death despawn).
	require.Empty(t, in.PopDue(time.Now().Add(7*time.Second)))
	due := in.PopDue(time.Now().Add(9 * time.Second))
	require.Len(t, due, 1)
	require.Equal(t, zone.TaskDeadFadeOut, due[0].Kind)
	require.Equal(t, model.ObjectId(9000), due[0].ActorId)
}

func TestKillBroadcastsDeadModeToObservers(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	s.handle(KillMsg{ClientId: 1, ActorId: 100})

	var sawDead, sawKill bool
	for _, m := range drain(ch) {
		ac, ok := m.(ActorControlMsg)
		if !ok {
			continue
		}
		switch ac.Payload.Category {
		case ipc.CategorySetMode:
			if ac.Payload.Params[0] == uint32(model.ModeDead) {
				sawDead = true
			}
		case ipc.CategoryKill:
			sawKill = true
		}
	}
	require.True(t, sawDead)
	require.True(t, sawKill)
}

func TestDisconnectRemovesActorAndNotifies(t *testing.T) {
	s := newTestServer(t)
	chA := load(s, 1, 100, 132, 100)
	chB := load(s, 2, 200, 132, 100)
	drain(chA)
	drain(chB)

	s.handle(Disconnected{ClientId: 1})

	require.Nil(t, s.instanceFor(100))
	var sawDespawn bool
	for _, m := range drain(chB) {
		if d, ok := m.(ActorDespawnMsg); ok && d.ActorId == 100 {
			sawDespawn = true
		}
	}
	require.True(t, sawDespawn)
}

func TestChatFansOutToInstanceObservers(t *testing.T) {
	s := newTestServer(t)
	chA := load(s, 1, 100, 132, 100)
	chB := load(s, 2, 200, 132, 100)
	chC := load(s, 3, 300, 129, 100) // different zone, must not hear it
	drain(chA)
	drain(chB)
	drain(chC)

	chatA := make(chan FromServer, 8)
	chatB := make(chan FromServer, 8)
	chatC := make(chan FromServer, 8)
	s.handle(ChatConnected{ActorId: 100, Mailbox: chatA})
	s.handle(ChatConnected{ActorId: 200, Mailbox: chatB})
	s.handle(ChatConnected{ActorId: 300, Mailbox: chatC})

	s.handle(ChatMessageMsg{ActorId: 100, Message: ipc.ChatMessage{Channel: ipc.ChatParty, Body: "pull in 3"}})

	msgsA := drain(chatA)
	require.Len(t, msgsA, 1, "sender hears their own line")
	echo := msgsA[0].(ChatDeliveryMsg)
	require.Equal(t, uint32(100), echo.Payload.SenderId, "sender id is stamped server-side")
	require.Equal(t, "pull in 3", echo.Payload.Body)

	require.Len(t, drain(chatB), 1)
	require.Empty(t, drain(chatC), "chat is scoped to the sender's instance")
}

func TestChatDisconnectedStopsDelivery(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	chat := make(chan FromServer, 8)
	s.handle(ChatConnected{ActorId: 100, Mailbox: chat})
	s.handle(ChatDisconnected{ActorId: 100})
	s.handle(ChatMessageMsg{ActorId: 100, Message: ipc.ChatMessage{Channel: ipc.ChatParty, Body: "hello"}})

	require.Empty(t, drain(chat))
}

func TestDirectorTasksFlipEObjAndBroadcast(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	in := s.instanceFor(100)
	in.AddActor(&model.Actor{Id: 2000182, Kind: model.ActorObject, EObjBaseId: 2000182, Visible: true})
	d := director.New(in.Id, "director_132")
	s.directors[in.Id] = d

	// The §8 scenario 6 script body: hide_eobj(2000182); set_data(0, 1).
	s.applyDirectorTask(100, script.Task{Kind: script.TaskHideEObj, Id: 2000182})
	s.applyDirectorTask(100, script.Task{Kind: script.TaskSetDirectorVar, Index: 0, Value: 1})
	s.flushDirector(d)

	obj, ok := in.Actor(2000182)
	require.True(t, ok)
	require.False(t, obj.Visible, "tick flips the event object's visibility")
	require.Equal(t, byte(1), d.Data(0))

	var sawInvisibility, sawVars bool
	for _, m := range drain(ch) {
		ac, ok := m.(ActorControlMsg)
		if !ok {
			continue
		}
		switch ac.Payload.Category {
		case ipc.CategorySetInvisibilityFlags:
			sawInvisibility = true
			require.Equal(t, uint32(2000182), ac.Payload.Params[0])
		case ipc.CategoryDirectorEvent:
			sawVars = true
		}
	}
	require.True(t, sawInvisibility)
	require.True(t, sawVars, "a var write schedules a DirectorVars broadcast at next flush")
}

func TestDirectorEventActionEnqueuesDelayedCast(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	in := s.instanceFor(100)
	d := director.New(in.Id, "director_132")
	s.directors[in.Id] = d

	s.applyDirectorTask(100, script.Task{Kind: script.TaskDirectorEventAction, Id: 5, Actor: 100, Target: 100})
	s.flushDirector(d)

	require.Empty(t, in.PopDue(time.Now().Add(1*time.Second)))
	due := in.PopDue(time.Now().Add(3 * time.Second))
	require.Len(t, due, 1)
	require.Equal(t, zone.TaskCastEvent, due[0].Kind)
	require.Equal(t, uint32(5), due[0].EventActionId)
}

func TestDirectorTaskOutsideContentIsDropped(t *testing.T) {
	s := newTestServer(t)
	ch := load(s, 1, 100, 132, 100)
	drain(ch)

	// No director bound to the instance; must not panic or mutate anything.
	s.applyDirectorTask(100, script.Task{Kind: script.TaskHideEObj, Id: 2000182})
	require.Empty(t, drain(ch))
}

func TestSendToStalledClientDropsInsteadOfBlocking(t *testing.T) {
	s := newTestServer(t)
	full := make(chan FromServer) // unbuffered and never read
	s.handle(NewClient{ClientId: 1, Mailbox: full})

	done := make(chan struct{})
	go func() {
		s.send(1, ChangeZoneMsg{ZoneId: 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("send blocked on a stalled client")
	}
}
