package spawn

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/zone"
)

func TestPopulateMaterializesSpawnTable(t *testing.T) {
	data := gamedata.NewFake()
	data.Spawns[132] = []gamedata.NpcSpawnInfo{
		{BaseId: 1001, Name: "Wharf Rat", Level: 1, HP: 90, Position: model.Position{X: 1}},
		{BaseId: 1002, Name: "Lost Lamb", Level: 2, HP: 120, Position: model.Position{X: 2}},
	}

	s := New(data, zap.NewNop())
	in := zone.NewInstance(1, 132, 0, nil)
	require.Equal(t, 2, s.Populate(context.Background(), in))

	actors := in.Actors()
	require.Len(t, actors, 2)
	for _, a := range actors {
		require.Equal(t, model.ActorNpc, a.Kind)
		require.Equal(t, model.KindBattleNpc, a.Spawn.Kind)
		require.Equal(t, a.Spawn.HPMax, a.Spawn.HPCurr)
		require.NotEmpty(t, a.ScriptBinding.Name)
	}
}

func TestPopulateEmptyZoneIsNoop(t *testing.T) {
	s := New(gamedata.NewFake(), zap.NewNop())
	in := zone.NewInstance(1, 129, 0, nil)
	require.Zero(t, s.Populate(context.Background(), in))
	require.Empty(t, in.Actors())
}

func TestAllocatedIdsAreUniqueAcrossInstances(t *testing.T) {
	data := gamedata.NewFake()
	data.Spawns[132] = []gamedata.NpcSpawnInfo{{BaseId: 1001, HP: 10}}
	data.Spawns[129] = []gamedata.NpcSpawnInfo{{BaseId: 1001, HP: 10}}

	s := New(data, zap.NewNop())
	a := zone.NewInstance(1, 132, 0, nil)
	b := zone.NewInstance(2, 129, 0, nil)
	s.Populate(context.Background(), a)
	s.Populate(context.Background(), b)

	seen := make(map[model.ObjectId]bool)
	for _, in := range []*zone.Instance{a, b} {
		for _, actor := range in.Actors() {
			require.False(t, seen[actor.Id], "npc ids must be process-unique")
			seen[actor.Id] = true
			require.True(t, actor.Id.Valid())
		}
	}
}
