package zone

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/model"
)

func newTestNpc(id model.ObjectId, hp uint32) *model.Actor {
	return &model.Actor{
		Id:   id,
		Kind: model.ActorNpc,
		Spawn: model.CommonSpawn{
			HPCurr: hp,
			HPMax:  hp,
			Mode:   model.ModeNormal,
		},
	}
}

func TestKillNpcSchedulesDeadFadeOut(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	npc := newTestNpc(42, 100)
	in.AddActor(npc)

	now := time.Unix(0, 0)
	in.Kill(now, 42)

	require.Equal(t, model.ModeDead, npc.Spawn.Mode)

	due := in.PopDue(now)
	require.Empty(t, due, "DeadFadeOut must not be due immediately")

	due = in.PopDue(now.Add(constants.DeadFadeOutTime))
	require.Len(t, due, 1)
	require.Equal(t, TaskDeadFadeOut, due[0].Kind)
	require.Equal(t, model.ObjectId(42), due[0].ActorId)
}

func TestKillPlayerDoesNotScheduleFadeOut(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	player := &model.Actor{Id: 7, Kind: model.ActorPlayer, Spawn: model.CommonSpawn{HPCurr: 1, Mode: model.ModeNormal}}
	in.AddActor(player)

	now := time.Unix(0, 0)
	in.Kill(now, 7)

	require.Equal(t, model.ModeDead, player.Spawn.Mode)
	require.Empty(t, in.PopDue(now.Add(time.Hour)))
}

func TestPopDueOnlyReturnsExpiredTasks(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	now := time.Unix(0, 0)

	in.Enqueue(Task{Kind: TaskCastAction, ActorId: 1, DueAt: now.Add(time.Second)})
	in.Enqueue(Task{Kind: TaskCastAction, ActorId: 2, DueAt: now.Add(3 * time.Second)})

	due := in.PopDue(now.Add(2 * time.Second))
	require.Len(t, due, 1)
	require.Equal(t, model.ObjectId(1), due[0].ActorId)

	due = in.PopDue(now.Add(4 * time.Second))
	require.Len(t, due, 1)
	require.Equal(t, model.ObjectId(2), due[0].ActorId)
}

func TestCancelCastsForRemovesOnlyThatActorsCasts(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	now := time.Unix(0, 0)

	in.Enqueue(Task{Kind: TaskCastAction, ActorId: 1, DueAt: now.Add(time.Second)})
	in.Enqueue(Task{Kind: TaskCastAction, ActorId: 2, DueAt: now.Add(time.Second)})

	require.True(t, in.CancelCastsFor(1))
	require.False(t, in.CancelCastsFor(1), "cancelling an already-cancelled cast is a no-op")

	due := in.PopDue(now.Add(time.Hour))
	require.Len(t, due, 1)
	require.Equal(t, model.ObjectId(2), due[0].ActorId)
}

func TestCancelInterruptibleCastsLeavesUninterruptibleOnes(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	now := time.Unix(0, 0)

	in.Enqueue(Task{Kind: TaskCastAction, ActorId: 1, DueAt: now.Add(time.Second), Interruptible: true})
	in.Enqueue(Task{Kind: TaskCastAction, ActorId: 1, DueAt: now.Add(time.Second), Interruptible: false})

	require.True(t, in.CancelInterruptibleCasts(1))
	require.False(t, in.CancelInterruptibleCasts(1))

	due := in.PopDue(now.Add(time.Hour))
	require.Len(t, due, 1, "the instant cast survives the interruption")
	require.False(t, due[0].Interruptible)
}

func TestRemoveActorReleasesSpawnIndices(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	observer := model.ObjectId(1)
	in.AddActor(&model.Actor{Id: observer, Kind: model.ActorPlayer})
	in.AddActor(&model.Actor{Id: 2, Kind: model.ActorNpc})

	idx, err := in.Show(observer, 2)
	require.NoError(t, err)

	in.RemoveActor(2)

	reused, err := in.Show(observer, 3)
	require.NoError(t, err)
	require.Equal(t, idx, reused)
}

func TestObserversExcludesSelfAndNonPlayers(t *testing.T) {
	in := NewInstance(1, 100, 0, nil)
	in.AddActor(&model.Actor{Id: 1, Kind: model.ActorPlayer})
	in.AddActor(&model.Actor{Id: 2, Kind: model.ActorPlayer})
	in.AddActor(&model.Actor{Id: 3, Kind: model.ActorNpc})

	observers := in.Observers(1)
	require.ElementsMatch(t, []model.ObjectId{2}, observers)
}
