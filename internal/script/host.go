// Package script runs the per-action and per-event Lua scripts that read
// connection state and emit queued tasks (§4.9). It is grounded on
// rdtc8822-debug-L1JGO-Whale's internal/scripting package: one *lua.LState
// behind a mutex, CallByParam dispatch, and Lua tables marshalled by hand
// for hook arguments and return values - generalized from that repo's
// combat-formula hooks to this spec's action/event/director hook set.
package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/wireerr"
)

// Host wraps the single server-wide Lua interpreter (§4.9, §5: "the Lua
// interpreter is single-threaded and held behind a mutex - only one script
// hook executes at a time server-wide"). A Host is safe for concurrent use;
// callers never see partial task lists from two concurrent hooks because
// the mutex serializes them.
type Host struct {
	mu  sync.Mutex
	vm  *lua.LState
	log *zap.Logger

	// pending accumulates tasks and raw segments during the hook call
	// currently holding mu. Drained and reset by each public entry point
	// before it returns.
	pending     []Task
	rawSegments [][]byte
}

// NewHost loads every .lua file under scriptsDir (recursively one level,
// matching the action/event/director script layout §6 world.scripts_location)
// and registers the host API functions scripts call to queue tasks.
func NewHost(scriptsDir string, log *zap.Logger) (*Host, error) {
	vm := lua.NewState(lua.Options{SkipOpenLibs: false})
	h := &Host{vm: vm, log: log}
	h.registerAPI()

	for _, sub := range []string{"action", "item", "event", "director"} {
		dir := filepath.Join(scriptsDir, sub)
		if err := h.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("script: loading %s scripts: %w", sub, err)
		}
	}
	return h, nil
}

func (h *Host) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := h.vm.DoFile(path); err != nil {
			return fmt.Errorf("loading %s: %w", path, err)
		}
		h.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Close releases the interpreter. Call once at shutdown.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vm.Close()
}

// call invokes the named global Lua function with arg (nil for none),
// under the host mutex, and returns whatever table it produced plus the
// tasks/raw segments it queued. A missing function or a Lua-side error is
// wireerr.ErrScriptError: the hook becomes a no-op, the caller survives (§7).
func (h *Host) call(name string, nret int, args ...lua.LValue) (lua.LValue, []Task, [][]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.pending = h.pending[:0]
	h.rawSegments = h.rawSegments[:0]

	fn := h.vm.GetGlobal(name)
	if fn == lua.LNil {
		return lua.LNil, nil, nil, wireerr.Wrap(wireerr.ErrScriptError, fmt.Sprintf("missing lua function %q", name))
	}

	if err := h.vm.CallByParam(lua.P{Fn: fn, NRet: nret, Protect: true}, args...); err != nil {
		h.log.Warn("lua hook error", zap.String("fn", name), zap.Error(err))
		return lua.LNil, nil, nil, wireerr.Wrap(wireerr.ErrScriptError, err.Error())
	}

	var ret lua.LValue
	if nret > 0 {
		ret = h.vm.Get(-1)
		h.vm.Pop(nret)
	}

	tasks := append([]Task(nil), h.pending...)
	raw := append([][]byte(nil), h.rawSegments...)
	return ret, tasks, raw, nil
}

// DoAction invokes the global Lua function named scriptName with (caster)
// (§4.6 step 4, "Normal" action kind) and returns the effect list plus any
// queued tasks.
func (h *Host) DoAction(scriptName string, caster model.ObjectId) ([]model.Effect, []Task, error) {
	ret, tasks, _, err := h.call(scriptName, 1, lua.LNumber(caster))
	if err != nil {
		return nil, nil, err
	}
	return decodeEffects(ret), tasks, nil
}

// DispatchItem invokes item dispatchItem(caster, target, item_id,
// action_type, action_data, additional_data) and returns the
// (script_name, arg) pair it resolves to (§4.6 step 4, "Item" action kind).
func (h *Host) DispatchItem(caster, target model.ObjectId, itemId uint32, actionType uint16, actionData, additionalData uint32) (string, int, []Task, error) {
	ret, tasks, _, err := h.call("dispatchItem", 1,
		lua.LNumber(caster), lua.LNumber(target), lua.LNumber(itemId),
		lua.LNumber(actionType), lua.LNumber(actionData), lua.LNumber(additionalData))
	if err != nil {
		return "", 0, nil, err
	}
	tbl, ok := ret.(*lua.LTable)
	if !ok {
		return "", 0, tasks, wireerr.Wrap(wireerr.ErrScriptError, "dispatchItem returned non-table")
	}
	name := lua.LVAsString(tbl.RawGetString("script"))
	arg := int(lua.LVAsNumber(tbl.RawGetString("arg")))
	return name, arg, tasks, nil
}

// RunEventScript invokes scriptName's own doAction-shaped hook for item
// scripts resolved by DispatchItem (§4.6 step 4).
func (h *Host) RunEventScript(scriptName string, caster, target model.ObjectId, arg int) ([]model.Effect, []Task, error) {
	ret, tasks, _, err := h.call(scriptName, 1, lua.LNumber(caster), lua.LNumber(target), lua.LNumber(arg))
	if err != nil {
		return nil, nil, err
	}
	return decodeEffects(ret), tasks, nil
}

// OnSetup invokes a director's onSetup(data) hook when a player zones into
// a content-bound instance (§4.8 step 1).
func (h *Host) OnSetup(scriptName string, data [10]byte) ([]Task, error) {
	tbl := h.vm.NewTable()
	for i, b := range data {
		tbl.RawSetInt(i+1, lua.LNumber(b))
	}
	_, tasks, _, err := h.call(scriptName+"_onSetup", 0, tbl)
	return tasks, err
}

// OnGimmickAccessor invokes a director's onGimmickAccessor hook (§4.8 step 2).
func (h *Host) OnGimmickAccessor(scriptName string, actorId model.ObjectId, id uint32, params []uint32) ([]Task, error) {
	tbl := h.vm.NewTable()
	for i, p := range params {
		tbl.RawSetInt(i+1, lua.LNumber(p))
	}
	_, tasks, _, err := h.call(scriptName+"_onGimmickAccessor", 0, lua.LNumber(actorId), lua.LNumber(id), tbl)
	return tasks, err
}

// OnEventHook invokes one of an event handler's capability hooks
// (scriptName_onTalk, scriptName_onYield, ...), passing the player, the
// handler id, and any hook-specific numeric arguments. Missing hooks are
// reported as ErrScriptError so the dispatch layer can treat them as no-ops,
// matching the "missing hooks are no-ops" capability-set rule.
func (h *Host) OnEventHook(scriptName, hook string, player model.ObjectId, handlerId uint32, args ...uint32) ([]Task, error) {
	lvs := make([]lua.LValue, 0, 2+len(args))
	lvs = append(lvs, lua.LNumber(player), lua.LNumber(handlerId))
	for _, a := range args {
		lvs = append(lvs, lua.LNumber(a))
	}
	_, tasks, _, err := h.call(scriptName+"_"+hook, 0, lvs...)
	return tasks, err
}

// OnEventActionCast invokes a director's onEventActionCast hook (§4.8 step 3).
func (h *Host) OnEventActionCast(scriptName string, actorId, target model.ObjectId) ([]Task, error) {
	_, tasks, _, err := h.call(scriptName+"_onEventActionCast", 0, lua.LNumber(actorId), lua.LNumber(target))
	return tasks, err
}

// decodeEffects reads an EffectsBuilder return value: an array-style Lua
// table of effect tables, each shaped like {kind=..., amount=..., ...}.
func decodeEffects(v lua.LValue) []model.Effect {
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	var effects []model.Effect
	tbl.ForEach(func(_, entry lua.LValue) {
		et, ok := entry.(*lua.LTable)
		if !ok {
			return
		}
		eff := model.Effect{
			Kind:     model.EffectKind(lua.LVAsNumber(et.RawGetString("kind"))),
			Amount:   uint32(lua.LVAsNumber(et.RawGetString("amount"))),
			EffectId: uint16(lua.LVAsNumber(et.RawGetString("effect_id"))),
			Param:    uint16(lua.LVAsNumber(et.RawGetString("param"))),
			Duration: float32(lua.LVAsNumber(et.RawGetString("duration"))),
			MountId:  uint32(lua.LVAsNumber(et.RawGetString("mount_id"))),
			TargetId: model.ObjectId(lua.LVAsNumber(et.RawGetString("target"))),
		}
		effects = append(effects, eff)
	})
	return effects
}
