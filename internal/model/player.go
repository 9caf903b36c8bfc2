package model

import (
	"fmt"
	"time"

	"github.com/aetherforge/worldserver/internal/constants"
)

// PlayerData is the authoritative snapshot of one logged-in character,
// split into a static part (never changes after login) and a dynamic part
// mutated over the connection's lifetime (§3).
type PlayerData struct {
	// Static.
	ActorId   ObjectId
	ContentId ContentId
	AccountId uint32

	// Dynamic.
	Position   Position
	Rotation   float32
	ZoneId     uint16
	ClassJobId uint8
	Levels     [constants.ClassJobArraySize]uint16
	Exp        [constants.ClassJobArraySize]int32
	HPCurr     uint32
	HPMax      uint32
	MPCurr     uint16
	MPMax      uint16

	Inventory *Inventory
	Unlocks   UnlockData

	ActiveQuests []ActiveQuest

	TeleportQuery TeleportQuery

	GMRank      uint8
	GMInvisible bool

	ItemSequence uint32
	ShopSequence uint32

	DisplayFlags   uint32
	ClientLanguage uint8
	PartyId        uint64
	LoginTime      time.Time
}

// ActiveQuest tracks one in-progress quest's sequence state (§3).
type ActiveQuest struct {
	QuestId  uint16
	Sequence uint8
}

// NewPlayerData returns a PlayerData with its inventory initialized.
func NewPlayerData(actorId ObjectId, contentId ContentId, accountId uint32) *PlayerData {
	return &PlayerData{
		ActorId:   actorId,
		ContentId: contentId,
		AccountId: accountId,
		Inventory: NewInventory(),
	}
}

// Validate checks the invariants named in §3: levels[i] != 0 iff class i is
// unlocked, and classjob_id must index a level slot with non-zero level.
func (p *PlayerData) Validate() error {
	if int(p.ClassJobId) >= len(p.Levels) {
		return fmt.Errorf("classjob_id %d out of range", p.ClassJobId)
	}
	if p.Levels[p.ClassJobId] == 0 {
		return fmt.Errorf("classjob_id %d has no unlocked level", p.ClassJobId)
	}
	return nil
}

// UnlockClass sets a non-zero level for classIdx, marking it unlocked.
func (p *PlayerData) UnlockClass(classIdx uint8, level uint16) error {
	if int(classIdx) >= len(p.Levels) {
		return fmt.Errorf("classjob index %d out of range", classIdx)
	}
	if level == 0 {
		return fmt.Errorf("unlock level must be non-zero")
	}
	p.Levels[classIdx] = level
	return nil
}

// AddExp adds exp to the current classjob, matching the script host's
// AddExp task (§4.9). It does not implement level-up math (out of scope,
// Non-goals: faithful damage/progression formulas are owned by scripts).
func (p *PlayerData) AddExp(amount int32) {
	p.Exp[p.ClassJobId] += amount
}

// Spawn projects this player's authoritative state into the CommonSpawn a
// PlayerSpawn IPC payload carries (§3, §4.4 step 3: "spawns for the player
// themselves"). PlayerData has no equipment-model or customize fields, so
// those stay zero. HP/MP, class, level, position and rotation are copied;
// DisplayFlags and GMInvisible are not.
func (p *PlayerData) Spawn() CommonSpawn {
	return CommonSpawn{
		HPCurr:     p.HPCurr,
		HPMax:      p.HPMax,
		MPCurr:     p.MPCurr,
		MPMax:      p.MPMax,
		ClassJobId: p.ClassJobId,
		Level:      uint8(p.Levels[p.ClassJobId]),
		Kind:       KindPlayer,
		Position:   p.Position,
		Rotation:   p.Rotation,
		Mode:       ModeNormal,
	}
}
