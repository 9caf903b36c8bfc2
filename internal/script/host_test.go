package script

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/wireerr"
)

// newTestHost writes the given Lua sources into a scripts directory laid
// out the way NewHost expects (action/item/event/director subdirs) and
// loads them.
func newTestHost(t *testing.T, files map[string]string) *Host {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	}
	h, err := NewHost(dir, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(h.Close)
	return h
}

func TestDoActionDecodesEffects(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"action/deal_damage.lua": `
function dealDamage(caster)
    return {
        { kind = 1, amount = 100 },
        { kind = 2, effect_id = 50, param = 1, duration = 30.0 },
    }
end
`,
	})

	effects, tasks, err := h.DoAction("dealDamage", 1)
	require.NoError(t, err)
	require.Empty(t, tasks)
	require.Len(t, effects, 2)
	require.Equal(t, model.EffectDamage, effects[0].Kind)
	require.Equal(t, uint32(100), effects[0].Amount)
	require.Equal(t, model.EffectGainEffect, effects[1].Kind)
	require.Equal(t, uint16(50), effects[1].EffectId)
}

func TestHookQueuesTasksViaHostAPI(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"action/grant.lua": `
function grantReward(caster)
    add_exp(500)
    add_item(4551, 3, true)
    unlock_aetheryte(8, true)
    return {}
end
`,
	})

	_, tasks, err := h.DoAction("grantReward", 1)
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	require.Equal(t, TaskAddExp, tasks[0].Kind)
	require.Equal(t, int32(500), tasks[0].Amount)
	require.Equal(t, TaskAddItem, tasks[1].Kind)
	require.Equal(t, uint32(4551), tasks[1].Id)
	require.Equal(t, uint32(3), tasks[1].Quantity)
	require.Equal(t, TaskUnlockAetheryte, tasks[2].Kind)
	require.True(t, tasks[2].On)
}

func TestMissingFunctionIsScriptError(t *testing.T) {
	h := newTestHost(t, nil)
	_, _, err := h.DoAction("doesNotExist", 1)
	require.ErrorIs(t, err, wireerr.ErrScriptError)
}

func TestLuaRuntimeErrorIsScriptError(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"action/broken.lua": `
function broken(caster)
    error("boom")
end
`,
	})
	_, _, err := h.DoAction("broken", 1)
	require.ErrorIs(t, err, wireerr.ErrScriptError)
}

func TestTasksDoNotLeakAcrossHookCalls(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"action/first.lua": `
function first(caster)
    add_exp(1)
    return {}
end
function second(caster)
    return {}
end
`,
	})

	_, tasks, err := h.DoAction("first", 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)

	_, tasks, err = h.DoAction("second", 1)
	require.NoError(t, err)
	require.Empty(t, tasks, "a later hook must not see an earlier hook's queue")
}

func TestDispatchItemResolvesScriptAndArg(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"item/dispatch.lua": `
function dispatchItem(caster, target, item_id, action_type, action_data, additional_data)
    return { script = "usePotion", arg = action_data }
end
`,
	})

	name, arg, _, err := h.DispatchItem(1, 1, 4551, 2, 847, 0)
	require.NoError(t, err)
	require.Equal(t, "usePotion", name)
	require.Equal(t, 847, arg)
}

func TestOnEventHookPassesArgs(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"event/quest.lua": `
function quest_0001_onYield(player, handler_id, response)
    if response == 1 then
        accept_quest(1000)
    end
end
`,
	})

	tasks, err := h.OnEventHook("quest_0001", "onYield", 1, 0x10001, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, TaskAcceptQuest, tasks[0].Kind)
	require.Equal(t, uint32(1000), tasks[0].Id)
}

func TestOnGimmickAccessorDrivesDirectorStyleTasks(t *testing.T) {
	h := newTestHost(t, map[string]string{
		"director/content.lua": `
function content_onGimmickAccessor(actor_id, id, params)
    if id == 17 and params[1] == 1 then
        change_weather(2)
    end
end
`,
	})

	tasks, err := h.OnGimmickAccessor("content", 1, 17, []uint32{1})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, TaskChangeWeather, tasks[0].Kind)
	require.Equal(t, uint32(2), tasks[0].Id)
}
