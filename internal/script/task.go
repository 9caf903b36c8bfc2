package script

import "github.com/aetherforge/worldserver/internal/model"

// TaskKind discriminates the LuaTask union a script hook hands back to the
// connection after it returns (§4.9). A script never performs network I/O;
// it only ever appends to this list via the host functions registered in
// host.go, and the caller drains the list once the hook call completes.
type TaskKind uint8

const (
	// Movement.
	TaskChangeTerritory TaskKind = iota
	TaskWarp
	TaskWarpAetheryte
	TaskMoveToPopRange
	TaskReturnToHomepoint

	// Progression.
	TaskSetClassJob
	TaskSetLevel
	TaskAddExp
	TaskUnlock
	TaskUnlockAetheryte
	TaskUnlockContent
	TaskUnlockAllContent
	TaskAcceptQuest
	TaskFinishQuest
	TaskCancelQuest
	TaskIncompleteQuest
	TaskQuestSequence

	// Inventory.
	TaskAddItem
	TaskModifyCurrency

	// Toggle unlocks - Category picks the bitmask (see UnlockCategory); the
	// single-id and "all ids" forms share one task shape, distinguished by
	// All.
	TaskToggleUnlock

	// Events.
	TaskStartEvent
	TaskFinishEvent
	TaskStartTalkEvent

	// Appearance - each respawns the player (§4.9).
	TaskSetRace
	TaskSetTribe
	TaskSetSex

	// Zone life.
	TaskChangeWeather
	TaskGainStatusEffect
	TaskKill
	TaskAbandonContent
	TaskSetHP
	TaskSetMP

	// Escape hatch.
	TaskSendSegment

	// Director-scoped (§4.8): consumed by the Global server, which owns
	// the Director and the instance's event objects; never forwarded to a
	// connection.
	TaskHideEObj
	TaskShowEObj
	TaskSpawnEObj
	TaskDeleteEObj
	TaskSetDirectorVar
	TaskDirectorEventAction
	TaskFinishGimmick
	TaskDirectorLogMessage
	TaskAbandonDuty
)

// UnlockCategory names which UnlockData bitmask a TaskToggleUnlock targets.
type UnlockCategory uint8

const (
	UnlockMount UnlockCategory = iota
	UnlockMinion
	UnlockOrnament
	UnlockGlassesStyle
	UnlockChocoboTaxiStand
	UnlockCaughtFish
	UnlockCaughtSpearfish
	UnlockCutsceneSeen
	UnlockAdventure
	UnlockTripleTriadCard
	UnlockAetherCurrent
	UnlockAetherCurrentZoneGroup
	UnlockOrchestrionRoll
	UnlockBuddyEquip
)

// Task is one deferred action a script queued during a hook call. Only the
// fields relevant to Kind are populated, matching zone.Task's shape.
type Task struct {
	Kind TaskKind

	Zone     uint16
	Id       uint32
	FadeOut  bool
	Amount   int32
	Quantity uint32
	On       bool
	All      bool
	Category UnlockCategory
	Sequence uint8

	Actor  model.ObjectId
	Target model.ObjectId
	Type   uint8
	Arg    uint32

	EffectId uint16
	Param    uint16
	Duration float32

	Male bool

	HP uint32
	MP uint16

	// TaskSetDirectorVar.
	Index uint8
	Value uint8

	SegmentTargetActor uint32
	SegmentPayload     []byte
}
