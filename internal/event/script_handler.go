package event

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
)

// ScriptHandler backs a handler with Lua hooks named
// <script>_onTalk, <script>_onYield, and so on. Quest, DefaultTalk,
// CustomTalk, and TopicSelect handlers are all script-backed; they differ
// only in which hooks their scripts choose to define. A hook the script
// does not define is a no-op, exactly like an unimplemented capability on
// a Go-native handler (§7 ScriptError policy).
type ScriptHandler struct {
	Base
	kind       Kind
	scriptName string
	host       *script.Host
	log        *zap.Logger
}

// NewScriptHandler binds scriptName's hooks as a handler of the given kind.
func NewScriptHandler(kind Kind, scriptName string, host *script.Host, log *zap.Logger) *ScriptHandler {
	return &ScriptHandler{kind: kind, scriptName: scriptName, host: host, log: log}
}

func (h *ScriptHandler) Kind() Kind { return h.kind }

func (h *ScriptHandler) run(hook string, player model.ObjectId, handlerId uint32, args ...uint32) Result {
	tasks, err := h.host.OnEventHook(h.scriptName, hook, player, handlerId, args...)
	if err != nil {
		// A missing hook is the common case (capability not implemented);
		// anything else was already logged by the host.
		return Result{}
	}
	return Result{Tasks: tasks}
}

func (h *ScriptHandler) OnTalk(ctx Context, handlerId uint32) Result {
	return h.run("onTalk", ctx.Player.ActorId, handlerId)
}

func (h *ScriptHandler) OnYield(ctx Context, handlerId uint32, response uint32) Result {
	return h.run("onYield", ctx.Player.ActorId, handlerId, response)
}

func (h *ScriptHandler) OnReturn(ctx Context, handlerId uint32, scene uint16, results []uint32) Result {
	args := append([]uint32{uint32(scene)}, results...)
	return h.run("onReturn", ctx.Player.ActorId, handlerId, args...)
}

func (h *ScriptHandler) OnEnterTerritory(ctx Context, handlerId uint32, zoneId uint16) Result {
	return h.run("onEnterTerritory", ctx.Player.ActorId, handlerId, uint32(zoneId))
}

func (h *ScriptHandler) OnWithinRange(ctx Context, handlerId uint32, actorId model.ObjectId) Result {
	return h.run("onWithinRange", ctx.Player.ActorId, handlerId, uint32(actorId))
}

func (h *ScriptHandler) OnOutsideRange(ctx Context, handlerId uint32, actorId model.ObjectId) Result {
	return h.run("onOutsideRange", ctx.Player.ActorId, handlerId, uint32(actorId))
}

func (h *ScriptHandler) OnGimmickAccessor(ctx Context, handlerId uint32, params []uint32) Result {
	return h.run("onGimmickAccessor", ctx.Player.ActorId, handlerId, params...)
}

// defaultScriptName derives the conventional script global prefix for a
// handler id, used when no script was registered explicitly.
func defaultScriptName(handlerId uint32) string {
	return fmt.Sprintf("event_%d", handlerId)
}

// WarpHandler resolves a talk on a warp NPC straight into a Warp task; the
// warp sheet lookup itself belongs to the game-data collaborator, so the
// handler only forwards its own entry id.
type WarpHandler struct {
	Base
}

func (WarpHandler) Kind() Kind { return KindWarp }

func (WarpHandler) OnTalk(ctx Context, handlerId uint32) Result {
	return Result{Tasks: []script.Task{{Kind: script.TaskWarp, Id: handlerId & 0xFFFF}}}
}
