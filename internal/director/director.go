// Package director implements the scripted state machine that sequences
// instanced-content events (§4.8): dungeon/quest variable blocks, event
// object visibility, and gimmick dispatch. A Director never talks to a
// Connection directly - it queues Broadcasts for the globalserver package
// to fan out, the same ownership split zone.Instance uses for its own
// timed tasks (§9 "Connections... ask the Global server").
package director

import (
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
)

// EventKind discriminates the broadcasts a Director produces for the
// globalserver to fan out to observers (§4.8).
type EventKind uint8

const (
	EventInitDirector EventKind = iota
	EventTerminateDirector
	EventVarsChanged
	EventShowEObj
	EventHideEObj
	EventEventAction
	EventFinishGimmick
	EventLogMessage
	EventAbandonDuty
)

// Broadcast is one outbound event a Director produced this tick, carrying
// its HandlerId so the client can associate it with the right content
// session (§4.8 invariant).
type Broadcast struct {
	Kind      EventKind
	HandlerId uint32

	EObjBaseId uint32
	MessageId  uint32
	ActionId   uint32
	Target     model.ObjectId
	Actor      model.ObjectId
}

// Director is the per-instance state machine bound to a content-finder
// condition (§3, §4.8). Exactly one exists per Instance that currently
// hosts instanced content.
type Director struct {
	HandlerId  uint32
	Flag       uint32
	data       [10]byte
	scriptName string

	pending []Broadcast
	varsDirty bool
}

// New constructs a Director for handlerId, bound to scriptName (the Lua
// file providing its on* hooks).
func New(handlerId uint32, scriptName string) *Director {
	return &Director{HandlerId: handlerId, scriptName: scriptName}
}

// Setup runs the script's onSetup hook and queues the InitDirector +
// DirectorVars broadcasts (§4.8 step 1).
func (d *Director) Setup(host *script.Host) ([]script.Task, error) {
	tasks, err := host.OnSetup(d.scriptName, d.data)
	d.pending = append(d.pending,
		Broadcast{Kind: EventInitDirector, HandlerId: d.HandlerId},
		Broadcast{Kind: EventVarsChanged, HandlerId: d.HandlerId},
	)
	return tasks, err
}

// GimmickAccessor runs onGimmickAccessor and returns the script's queued
// tasks for the caller to drain, exactly as a regular hook call would
// (§4.8 step 2, §8 scenario 6).
func (d *Director) GimmickAccessor(host *script.Host, actorId model.ObjectId, id uint32, params []uint32) ([]script.Task, error) {
	return host.OnGimmickAccessor(d.scriptName, actorId, id, params)
}

// EventActionCast runs onEventActionCast (§4.8 step 3).
func (d *Director) EventActionCast(host *script.Host, actorId, target model.ObjectId) ([]script.Task, error) {
	return host.OnEventActionCast(d.scriptName, actorId, target)
}

// HideEObj queues a HideEObj broadcast for observers (§4.8). The Global
// server clears Visible on the instance's event objects with this base id
// when it drains the queue (flushDirector).
func (d *Director) HideEObj(baseId uint32) {
	d.pending = append(d.pending, Broadcast{Kind: EventHideEObj, HandlerId: d.HandlerId, EObjBaseId: baseId})
}

// ShowEObj is HideEObj's inverse.
func (d *Director) ShowEObj(baseId uint32) {
	d.pending = append(d.pending, Broadcast{Kind: EventShowEObj, HandlerId: d.HandlerId, EObjBaseId: baseId})
}

// SetData mutates the director's 10-byte variable block at index i and
// schedules a DirectorVars broadcast at next tick (§4.8).
func (d *Director) SetData(i int, v byte) {
	if i < 0 || i >= len(d.data) {
		return
	}
	d.data[i] = v
	d.varsDirty = true
}

// Data reads variable i, returning 0 if out of range.
func (d *Director) Data(i int) byte {
	if i < 0 || i >= len(d.data) {
		return 0
	}
	return d.data[i]
}

// AbandonDuty fans out a LeaveContent to actorId (§4.8).
func (d *Director) AbandonDuty(actorId model.ObjectId) {
	d.pending = append(d.pending, Broadcast{Kind: EventAbandonDuty, HandlerId: d.HandlerId, Actor: actorId})
}

// EventAction broadcasts EventAction and enqueues a delayed CastEventAction
// resolving to target (§4.8); the delay itself is the caller's job via
// zone.Task, since Director has no access to the instance's task queue.
func (d *Director) EventAction(actionId uint32, actorId, target model.ObjectId) {
	d.pending = append(d.pending, Broadcast{Kind: EventEventAction, HandlerId: d.HandlerId, ActionId: actionId, Actor: actorId, Target: target})
}

// FinishGimmick sends FinishEvent to actorId (§4.8).
func (d *Director) FinishGimmick(actorId model.ObjectId) {
	d.pending = append(d.pending, Broadcast{Kind: EventFinishGimmick, HandlerId: d.HandlerId, Actor: actorId})
}

// LogMessage broadcasts LogMessage{handler_id, message_type} (§4.8).
func (d *Director) LogMessage(id uint32) {
	d.pending = append(d.pending, Broadcast{Kind: EventLogMessage, HandlerId: d.HandlerId, MessageId: id})
}

// DrainBroadcasts returns and clears the broadcasts accumulated since the
// last drain, also flushing a DirectorVars broadcast if SetData touched the
// variable block (§4.8: "any write schedules a DirectorVars broadcast at
// next tick").
func (d *Director) DrainBroadcasts() []Broadcast {
	if d.varsDirty {
		d.pending = append(d.pending, Broadcast{Kind: EventVarsChanged, HandlerId: d.HandlerId})
		d.varsDirty = false
	}
	out := d.pending
	d.pending = nil
	return out
}
