package action

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/zone"
)

func TestEnqueueUsesGamedataCastTime(t *testing.T) {
	data := gamedata.NewFake()
	data.Actions[9] = gamedata.ActionInfo{CastTimeCs: 150, ScriptName: "dealDamage"}

	p := New(data, nil)
	in := zone.NewInstance(1, 132, 0, nil)
	now := time.Unix(0, 0)

	interruptible, err := p.Enqueue(context.Background(), in, now, 1, ipc.ActionRequest{ActionKey: 9, Kind: ipc.ActionNormal})
	require.NoError(t, err)
	require.True(t, interruptible)

	require.Empty(t, in.PopDue(now.Add(1499*time.Millisecond)))
	due := in.PopDue(now.Add(1500 * time.Millisecond))
	require.Len(t, due, 1)
	require.Equal(t, zone.TaskCastAction, due[0].Kind)
	require.Equal(t, uint32(9), due[0].ActionKey)
}

func TestEnqueueZeroCastTimeIsNotInterruptible(t *testing.T) {
	data := gamedata.NewFake()
	data.Actions[1] = gamedata.ActionInfo{CastTimeCs: 0}
	p := New(data, nil)
	in := zone.NewInstance(1, 132, 0, nil)

	interruptible, err := p.Enqueue(context.Background(), in, time.Unix(0, 0), 1, ipc.ActionRequest{ActionKey: 1})
	require.NoError(t, err)
	require.False(t, interruptible)
}

func TestCancelCastIdempotent(t *testing.T) {
	in := zone.NewInstance(1, 132, 0, nil)
	p := New(gamedata.NewFake(), nil)

	require.False(t, p.CancelCast(in, 1), "no cast queued yet")

	in.Enqueue(zone.Task{Kind: zone.TaskCastAction, ActorId: 1, DueAt: time.Unix(10, 0)})
	require.True(t, p.CancelCast(in, 1))
	require.False(t, p.CancelCast(in, 1), "cancelling an already-resolved cast is a no-op")
}

func TestResolveMountSynthesisesEffectWithoutScripting(t *testing.T) {
	p := New(gamedata.NewFake(), nil)
	res, err := p.Resolve(context.Background(), ipc.ActionRequest{ActionKey: 42, Kind: ipc.ActionMount}, 1)
	require.NoError(t, err)
	require.Len(t, res.Effects, 1)
	require.Equal(t, model.EffectMount, res.Effects[0].Kind)
	require.Equal(t, uint32(42), res.Effects[0].MountId)
}

func TestResolveNothingIsNoop(t *testing.T) {
	p := New(gamedata.NewFake(), nil)
	res, err := p.Resolve(context.Background(), ipc.ActionRequest{ActionKey: 1, Kind: ipc.ActionNothing}, 1)
	require.NoError(t, err)
	require.Empty(t, res.Effects)
}

func TestApplyOutcomeDamageSaturatesAtZero(t *testing.T) {
	in := zone.NewInstance(1, 132, 0, nil)
	target := &model.Actor{Id: 2, Kind: model.ActorPlayer, Spawn: model.CommonSpawn{HPCurr: 50, HPMax: 100}}
	in.AddActor(target)

	changed := ApplyOutcome(in, 1, 2, []model.Effect{{Kind: model.EffectDamage, Amount: 100}})
	require.True(t, changed[2])
	require.Equal(t, uint32(0), target.Spawn.HPCurr)
}

func TestApplyOutcomeDropsEffectsForMissingTarget(t *testing.T) {
	in := zone.NewInstance(1, 132, 0, nil)
	// no actors added; target does not exist in this instance
	changed := ApplyOutcome(in, 1, 99, []model.Effect{{Kind: model.EffectDamage, Amount: 10}})
	require.Empty(t, changed)
}

func TestApplyOutcomeGainEffectDefaultsSourceToCaster(t *testing.T) {
	in := zone.NewInstance(1, 132, 0, nil)
	target := &model.Actor{Id: 2, Kind: model.ActorPlayer, Spawn: model.CommonSpawn{HPCurr: 100}}
	in.AddActor(target)

	ApplyOutcome(in, 1, 2, []model.Effect{{Kind: model.EffectGainEffect, EffectId: 500, Duration: 30}})
	require.Equal(t, uint16(500), target.Spawn.StatusEffects[0].EffectId)
	require.Equal(t, model.ObjectId(1), target.Spawn.StatusEffects[0].SourceId)
}

func TestBuildActionResultTruncatesToMaxEffects(t *testing.T) {
	effects := make([]model.Effect, ipc.MaxActionResultEffects+5)
	for i := range effects {
		effects[i] = model.Effect{Kind: model.EffectDamage, Amount: uint32(i + 1)}
	}
	res := BuildActionResult(9, 1, 2, 0, 0, false, effects)
	require.Equal(t, uint32(1), res.Effects[0].Amount)
	require.Equal(t, ipc.EffectDamage, res.Effects[0].Kind)
}
