// Package spawn materializes a zone's NPC population into a freshly created
// instance from the game-data collaborator's spawn tables. It is the
// world-population half of actor lifetime (§3: "created on ZoneIn or on
// script spawn"); despawn of dead NPCs stays with the instance's own
// DeadFadeOut task.
package spawn

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/gamedata"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/zone"
)

// npcIdBase starts the NPC ObjectId range well clear of both player actor
// ids and the reserved sentinels, so an id's range identifies its kind at a
// glance in logs.
const npcIdBase uint32 = 0x2000_0000

// Spawner hands out process-unique NPC ObjectIds and fills instances from
// spawn tables.
type Spawner struct {
	data   gamedata.Store
	log    *zap.Logger
	nextId atomic.Uint32
}

// New returns a Spawner reading from data.
func New(data gamedata.Store, log *zap.Logger) *Spawner {
	s := &Spawner{data: data, log: log}
	s.nextId.Store(npcIdBase)
	return s
}

// allocId returns the next NPC ObjectId.
func (s *Spawner) allocId() model.ObjectId {
	return model.ObjectId(s.nextId.Add(1))
}

// Populate adds every NPC the zone's spawn table names to in, returning how
// many were created. Callers invoke it exactly once, right after creating
// the instance; repopulating a live instance would duplicate its NPCs.
func (s *Spawner) Populate(ctx context.Context, in *zone.Instance) int {
	rows := s.data.NpcSpawns(ctx, in.ZoneId)
	for _, row := range rows {
		in.AddActor(&model.Actor{
			Id:            s.allocId(),
			Kind:          model.ActorNpc,
			ScriptBinding: model.ScriptBinding{Name: npcScriptName(row.BaseId)},
			Spawn: model.CommonSpawn{
				HPCurr:   row.HP,
				HPMax:    row.HP,
				MPCurr:   row.MP,
				MPMax:    row.MP,
				Level:    row.Level,
				Kind:     model.KindBattleNpc,
				KindSub:  row.SubKind,
				Position: row.Position,
				Rotation: row.Rotation,
				Mode:     model.ModeNormal,
				Name:     row.Name,
			},
		})
	}
	if len(rows) > 0 {
		s.log.Info("spawn: populated instance",
			zap.Uint32("instance_id", in.Id),
			zap.Uint16("zone_id", in.ZoneId),
			zap.Int("npc_count", len(rows)))
	}
	return len(rows)
}

// npcScriptName derives the conventional script global prefix for an NPC
// base id, the same data-plus-Lua-file convention event handlers use.
func npcScriptName(baseId uint32) string {
	return fmt.Sprintf("npc_%d", baseId)
}
