// Package zone implements the per-instance authority: the actor table,
// weather, and the timed task queue a fixed-cadence tick drains (§4.5).
// It mirrors la2go's World registry in spirit (a process-wide actor table
// guarded by a single lock) but narrows the shape to one flat table per
// instance rather than a spatial region grid, since the protocol has no
// concept of client-relevant range beyond the observer's own spawn list.
package zone

import (
	"time"

	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/wireerr"
)

// TaskKind distinguishes the handful of deferred events an Instance can be
// asked to run once DueAt has passed (§4.5, §4.6).
type TaskKind uint8

const (
	TaskCastAction TaskKind = iota
	TaskCastEvent
	TaskDeadFadeOut
)

// Task is one entry in an Instance's timed-task queue. Only the fields
// relevant to Kind are populated; callers draining PopDue switch on Kind.
type Task struct {
	Kind     TaskKind
	DueAt    time.Time
	ActorId  model.ObjectId
	TargetId model.ObjectId

	// TaskCastAction / TaskCastEvent.
	ActionKey     uint32
	ActionKind    ipc.ActionKind
	Interruptible bool

	// TaskCastEvent.
	EventActionId uint32
}

// Instance is one running copy of a zone (or an instanced duty). Exactly
// one Instance exists per (zone id, instance number) pair that currently
// has an occupant.
type Instance struct {
	Id      uint32
	ZoneId  uint16
	Weather uint16

	actors map[model.ObjectId]*model.Actor
	spawns *SpawnIndexAllocator
	tasks  []Task

	LayerGroups []uint32
}

// NewInstance returns an empty instance for zoneId, with weather already
// resolved by the caller's gamedata lookup.
func NewInstance(id uint32, zoneId uint16, weather uint16, layerGroups []uint32) *Instance {
	return &Instance{
		Id:          id,
		ZoneId:      zoneId,
		Weather:     weather,
		actors:      make(map[model.ObjectId]*model.Actor),
		spawns:      NewSpawnIndexAllocator(constants.MaxSpawnIndex),
		LayerGroups: layerGroups,
	}
}

// AddActor inserts actor into the instance's table, keyed by its id.
func (in *Instance) AddActor(actor *model.Actor) {
	in.actors[actor.Id] = actor
}

// RemoveActor deletes id from the table and releases every spawn index any
// observer had allocated to it.
func (in *Instance) RemoveActor(id model.ObjectId) {
	delete(in.actors, id)
	for observer := range in.actors {
		in.spawns.Hide(observer, id)
	}
	in.spawns.DropObserver(id)
}

// Actor looks up an actor by id.
func (in *Instance) Actor(id model.ObjectId) (*model.Actor, bool) {
	a, ok := in.actors[id]
	return a, ok
}

// Actors returns every actor currently in the table. Callers must not
// retain the slice across a tick boundary without copying it.
func (in *Instance) Actors() []*model.Actor {
	out := make([]*model.Actor, 0, len(in.actors))
	for _, a := range in.actors {
		out = append(out, a)
	}
	return out
}

// Observers returns the ids of every player actor in the instance other
// than self, i.e. the broadcast set for "observers of an actor" (§4.5).
func (in *Instance) Observers(self model.ObjectId) []model.ObjectId {
	out := make([]model.ObjectId, 0, len(in.actors))
	for id, a := range in.actors {
		if id == self || a.Kind != model.ActorPlayer {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Show assigns actor a spawn index in observer's pool, or reports
// ErrOversubscribed if the pool (capacity MaxSpawnIndex) is full.
func (in *Instance) Show(observer, actor model.ObjectId) (uint8, error) {
	idx, ok := in.spawns.Show(observer, actor)
	if !ok {
		return 0, wireerr.Wrap(wireerr.ErrOversubscribed, "spawn index pool exhausted")
	}
	return idx, nil
}

// Hide releases actor's spawn index in observer's pool.
func (in *Instance) Hide(observer, actor model.ObjectId) {
	in.spawns.Hide(observer, actor)
}

// Enqueue schedules t to run once its DueAt has passed.
func (in *Instance) Enqueue(t Task) {
	in.tasks = append(in.tasks, t)
}

// CancelCastsFor removes any pending TaskCastAction/TaskCastEvent entries
// belonging to actorId, used by the action pipeline's CancelCast handling
// (§4.6). It reports whether a cast was actually cancelled.
func (in *Instance) CancelCastsFor(actorId model.ObjectId) bool {
	cancelled := false
	kept := in.tasks[:0]
	for _, t := range in.tasks {
		if t.ActorId == actorId && (t.Kind == TaskCastAction || t.Kind == TaskCastEvent) {
			cancelled = true
			continue
		}
		kept = append(kept, t)
	}
	in.tasks = kept
	return cancelled
}

// CancelInterruptibleCasts removes actorId's pending casts that were
// enqueued interruptible, reporting whether any existed. Direct damage
// cancels only those (§4.6 step 3; the interruption rule is fixed at
// enqueue time).
func (in *Instance) CancelInterruptibleCasts(actorId model.ObjectId) bool {
	cancelled := false
	kept := in.tasks[:0]
	for _, t := range in.tasks {
		if t.ActorId == actorId && t.Kind == TaskCastAction && t.Interruptible {
			cancelled = true
			continue
		}
		kept = append(kept, t)
	}
	in.tasks = kept
	return cancelled
}

// PopDue removes and returns every task whose DueAt is at or before now,
// in the order they were enqueued. This is the instance's half of the
// fixed-cadence tick (§4.5); it does not itself resolve tasks - that is
// the action and director packages' job, since resolution needs
// collaborators (gamedata, script) this package has no business knowing.
func (in *Instance) PopDue(now time.Time) []Task {
	if len(in.tasks) == 0 {
		return nil
	}
	var due []Task
	kept := in.tasks[:0]
	for _, t := range in.tasks {
		if !t.DueAt.After(now) {
			due = append(due, t)
		} else {
			kept = append(kept, t)
		}
	}
	in.tasks = kept
	return due
}

// Kill sets actor's mode to Dead and, for NPCs, schedules a DeadFadeOut
// task DeadFadeOutTime later (§4.6 death policy).
func (in *Instance) Kill(now time.Time, actorId model.ObjectId) {
	a, ok := in.actors[actorId]
	if !ok {
		return
	}
	a.Spawn.Mode = model.ModeDead
	if a.Kind == model.ActorNpc {
		in.Enqueue(Task{
			Kind:    TaskDeadFadeOut,
			DueAt:   now.Add(constants.DeadFadeOutTime),
			ActorId: actorId,
		})
	}
}
