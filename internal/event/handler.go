// Package event implements the dispatch layer for client-visible event
// handlers: the NPCs, shops, warps, and talk windows the client addresses by
// handler id. Handler kinds form a closed set, each implementing only the
// capability hooks it cares about; missing hooks are no-ops provided by
// Base. Dispatch is connection-local - a hook reads the calling player's
// own PlayerData and returns queued tasks, never touching the instance
// table, mirroring the script host's queue-don't-call contract (§4.9).
package event

import (
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
)

// Kind names an event handler variant. The handler id's upper bits encode
// the kind on the wire (a gil shop's 262176 is 0x40020: kind 4, entry 0x20).
type Kind uint8

const (
	KindQuest Kind = iota + 1
	KindWarp
	KindDefaultTalk
	KindGilShop
	KindCustomTalk
	KindTopicSelect
)

// KindOf extracts the handler kind from a handler id's upper 16 bits.
func KindOf(handlerId uint32) Kind {
	switch handlerId >> 16 {
	case 0x1:
		return KindQuest
	case 0x2:
		return KindWarp
	case 0x3:
		return KindDefaultTalk
	case 0x4:
		return KindGilShop
	case 0x5:
		return KindCustomTalk
	case 0x6:
		return KindTopicSelect
	default:
		return KindDefaultTalk
	}
}

// Context carries the per-dispatch state a hook may consult. Player is the
// calling connection's own PlayerData; hooks run on the connection's
// goroutine, so reading and mutating it here is race-free by ownership
// (§9: PlayerData never leaves its Connection).
type Context struct {
	Player *model.PlayerData
}

// Result is what one hook invocation produces: tasks for the connection to
// drain through its usual script-task interpreter, plus an optional scene
// to play (played only when PlayScene is set; scene 0 is a valid scene).
type Result struct {
	Tasks       []script.Task
	Scene       uint16
	SceneParams []uint32
	PlayScene   bool
}

// Handler is the capability set an event handler kind may implement. Every
// method has a no-op default via Base; concrete variants override the
// subset they care about.
type Handler interface {
	Kind() Kind
	OnTalk(ctx Context, handlerId uint32) Result
	OnYield(ctx Context, handlerId uint32, response uint32) Result
	OnReturn(ctx Context, handlerId uint32, scene uint16, results []uint32) Result
	OnEnterTerritory(ctx Context, handlerId uint32, zoneId uint16) Result
	OnWithinRange(ctx Context, handlerId uint32, actorId model.ObjectId) Result
	OnOutsideRange(ctx Context, handlerId uint32, actorId model.ObjectId) Result
	OnGimmickAccessor(ctx Context, handlerId uint32, params []uint32) Result
}

// Base provides the no-op defaults. Embed it in every concrete handler.
type Base struct{}

func (Base) OnTalk(Context, uint32) Result                          { return Result{} }
func (Base) OnYield(Context, uint32, uint32) Result                 { return Result{} }
func (Base) OnReturn(Context, uint32, uint16, []uint32) Result      { return Result{} }
func (Base) OnEnterTerritory(Context, uint32, uint16) Result        { return Result{} }
func (Base) OnWithinRange(Context, uint32, model.ObjectId) Result   { return Result{} }
func (Base) OnOutsideRange(Context, uint32, model.ObjectId) Result  { return Result{} }
func (Base) OnGimmickAccessor(Context, uint32, []uint32) Result     { return Result{} }
