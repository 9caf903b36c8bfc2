package script

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/aetherforge/worldserver/internal/model"
)

// registerAPI installs every host function a script may call to queue a
// task (§4.9). Each function appends to h.pending under the call() mutex
// held for the duration of the enclosing hook - scripts never yield, so
// there is no reentrancy to guard against here.
func (h *Host) registerAPI() {
	reg := map[string]lua.LGFunction{
		"change_territory":    h.apiChangeTerritory,
		"warp":                h.apiWarp,
		"warp_aetheryte":      h.apiWarpAetheryte,
		"move_to_pop_range":   h.apiMoveToPopRange,
		"return_to_homepoint": h.apiReturnToHomepoint,

		"set_classjob":     h.apiSetClassJob,
		"set_level":        h.apiSetLevel,
		"add_exp":          h.apiAddExp,
		"unlock":           h.apiUnlock,
		"unlock_aetheryte": h.apiUnlockAetheryte,
		"unlock_content":   h.apiUnlockContent,
		"unlock_all_content": h.apiUnlockAllContent,
		"accept_quest":     h.apiAcceptQuest,
		"finish_quest":     h.apiFinishQuest,
		"cancel_quest":     h.apiCancelQuest,
		"incomplete_quest": h.apiIncompleteQuest,
		"quest_sequence":   h.apiQuestSequence,

		"add_item":        h.apiAddItem,
		"modify_currency": h.apiModifyCurrency,

		"toggle_unlock": h.apiToggleUnlock,

		"start_event":      h.apiStartEvent,
		"finish_event":     h.apiFinishEvent,
		"start_talk_event": h.apiStartTalkEvent,

		"set_race":  h.apiSetRace,
		"set_tribe": h.apiSetTribe,
		"set_sex":   h.apiSetSex,

		"change_weather":     h.apiChangeWeather,
		"gain_status_effect": h.apiGainStatusEffect,
		"kill":               h.apiKill,
		"abandon_content":    h.apiAbandonContent,
		"set_hp":             h.apiSetHP,
		"set_mp":             h.apiSetMP,

		"send_segment": h.apiSendSegment,

		"hide_eobj":      h.apiHideEObj,
		"show_eobj":      h.apiShowEObj,
		"spawn_eobj":     h.apiSpawnEObj,
		"delete_eobj":    h.apiDeleteEObj,
		"set_data":       h.apiSetDirectorVar,
		"abandon_duty":   h.apiAbandonDuty,
		"event_action":   h.apiEventAction,
		"finish_gimmick": h.apiFinishGimmick,
		"log_message":    h.apiLogMessage,
	}
	for name, fn := range reg {
		h.vm.SetGlobal(name, h.vm.NewFunction(fn))
	}
}

func argU16(L *lua.LState, n int) uint16 { return uint16(L.CheckNumber(n)) }
func argU32(L *lua.LState, n int) uint32 { return uint32(L.CheckNumber(n)) }
func argU8(L *lua.LState, n int) uint8   { return uint8(L.CheckNumber(n)) }
func argInt32(L *lua.LState, n int) int32 { return int32(L.CheckNumber(n)) }
func argBool(L *lua.LState, n int) bool  { return bool(L.CheckBool(n)) }
func argStr(L *lua.LState, n int) string { return L.CheckString(n) }

func (h *Host) apiChangeTerritory(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskChangeTerritory, Zone: argU16(L, 1)})
	return 0
}

func (h *Host) apiWarp(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskWarp, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiWarpAetheryte(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskWarpAetheryte, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiMoveToPopRange(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskMoveToPopRange, Id: argU32(L, 1), FadeOut: argBool(L, 2)})
	return 0
}

func (h *Host) apiReturnToHomepoint(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskReturnToHomepoint})
	return 0
}

func (h *Host) apiSetClassJob(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetClassJob, Id: uint32(argU8(L, 1))})
	return 0
}

func (h *Host) apiSetLevel(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetLevel, Id: uint32(argU16(L, 1))})
	return 0
}

func (h *Host) apiAddExp(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskAddExp, Amount: argInt32(L, 1)})
	return 0
}

func (h *Host) apiUnlock(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskUnlock, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiUnlockAetheryte(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskUnlockAetheryte, Id: uint32(argU16(L, 1)), On: argBool(L, 2)})
	return 0
}

func (h *Host) apiUnlockContent(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskUnlockContent, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiUnlockAllContent(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskUnlockAllContent})
	return 0
}

func (h *Host) apiAcceptQuest(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskAcceptQuest, Id: uint32(argU16(L, 1))})
	return 0
}

func (h *Host) apiFinishQuest(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskFinishQuest, Id: uint32(argU16(L, 1))})
	return 0
}

func (h *Host) apiCancelQuest(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskCancelQuest, Id: uint32(argU16(L, 1))})
	return 0
}

func (h *Host) apiIncompleteQuest(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskIncompleteQuest, Id: uint32(argU16(L, 1))})
	return 0
}

func (h *Host) apiQuestSequence(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskQuestSequence, Id: uint32(argU16(L, 1)), Sequence: argU8(L, 2)})
	return 0
}

func (h *Host) apiAddItem(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskAddItem, Id: argU32(L, 1), Quantity: argU32(L, 2), On: argBool(L, 3)})
	return 0
}

func (h *Host) apiModifyCurrency(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskModifyCurrency, Id: argU32(L, 1), Amount: argInt32(L, 2), On: argBool(L, 3)})
	return 0
}

func (h *Host) apiToggleUnlock(L *lua.LState) int {
	h.pending = append(h.pending, Task{
		Kind:     TaskToggleUnlock,
		Category: UnlockCategory(argU8(L, 1)),
		Id:       argU32(L, 2),
		On:       argBool(L, 3),
		All:      L.GetTop() >= 4 && argBool(L, 4),
	})
	return 0
}

func (h *Host) apiStartEvent(L *lua.LState) int {
	h.pending = append(h.pending, Task{
		Kind:  TaskStartEvent,
		Actor: model.ObjectId(actorArg(L, 1)),
		Id:    argU32(L, 2),
		Type:  argU8(L, 3),
		Arg:   argU32(L, 4),
	})
	return 0
}

func (h *Host) apiFinishEvent(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskFinishEvent, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiStartTalkEvent(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskStartTalkEvent, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiSetRace(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetRace, Id: uint32(argU8(L, 1))})
	return 0
}

func (h *Host) apiSetTribe(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetTribe, Id: uint32(argU8(L, 1))})
	return 0
}

func (h *Host) apiSetSex(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetSex, Male: argBool(L, 1)})
	return 0
}

func (h *Host) apiChangeWeather(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskChangeWeather, Id: uint32(argU16(L, 1))})
	return 0
}

func (h *Host) apiGainStatusEffect(L *lua.LState) int {
	h.pending = append(h.pending, Task{
		Kind:     TaskGainStatusEffect,
		EffectId: argU16(L, 1),
		Param:    argU16(L, 2),
		Duration: float32(L.CheckNumber(3)),
	})
	return 0
}

func (h *Host) apiKill(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskKill})
	return 0
}

func (h *Host) apiAbandonContent(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskAbandonContent})
	return 0
}

func (h *Host) apiSetHP(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetHP, HP: argU32(L, 1)})
	return 0
}

func (h *Host) apiSetMP(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetMP, MP: argU16(L, 1)})
	return 0
}

func (h *Host) apiSendSegment(L *lua.LState) int {
	target := argU32(L, 1)
	payload := []byte(argStr(L, 2))
	h.pending = append(h.pending, Task{Kind: TaskSendSegment, SegmentTargetActor: target, SegmentPayload: payload})
	h.rawSegments = append(h.rawSegments, payload)
	return 0
}

func actorArg(L *lua.LState, n int) (id uint32) {
	return argU32(L, n)
}

// Director-scoped functions (§4.8). These queue tasks the Global server
// consumes against the instance's Director; they are meaningful only
// inside director hooks, and a non-director hook queuing one is dropped
// there with a log line.

func (h *Host) apiHideEObj(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskHideEObj, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiShowEObj(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskShowEObj, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiSpawnEObj(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSpawnEObj, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiDeleteEObj(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskDeleteEObj, Id: argU32(L, 1)})
	return 0
}

func (h *Host) apiSetDirectorVar(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskSetDirectorVar, Index: argU8(L, 1), Value: argU8(L, 2)})
	return 0
}

func (h *Host) apiAbandonDuty(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskAbandonDuty, Actor: model.ObjectId(actorArg(L, 1))})
	return 0
}

func (h *Host) apiEventAction(L *lua.LState) int {
	h.pending = append(h.pending, Task{
		Kind:   TaskDirectorEventAction,
		Id:     argU32(L, 1),
		Actor:  model.ObjectId(actorArg(L, 2)),
		Target: model.ObjectId(actorArg(L, 3)),
	})
	return 0
}

func (h *Host) apiFinishGimmick(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskFinishGimmick, Actor: model.ObjectId(actorArg(L, 1))})
	return 0
}

func (h *Host) apiLogMessage(L *lua.LState) int {
	h.pending = append(h.pending, Task{Kind: TaskDirectorLogMessage, Id: argU32(L, 1)})
	return 0
}
