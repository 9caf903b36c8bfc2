package model

import "github.com/aetherforge/worldserver/internal/constants"

// ObjectKind tags what kind of actor a CommonSpawn represents (§3).
type ObjectKind uint8

const (
	KindNone ObjectKind = iota
	KindPlayer
	KindBattleNpc
	KindEventNpc
	KindTreasure
	KindAetheryte
	KindGatheringPoint
	KindEventObj
	KindMount
	KindCompanion
	KindRetainer
	KindAreaObject
	KindHousing
	KindCutscene
	KindMJI
	KindOrnament
	KindCardStand
)

// CharacterMode mirrors the client's visible animation/state mode (§3).
type CharacterMode uint8

const (
	ModeNone CharacterMode = iota
	ModeNormal
	ModeDead
	ModeEmoteLoop
	ModeMounted
	ModeCrafting
	ModeGathering
)

// EquipModels holds the 10 equipment-slot model ids plus 2 weapon model ids.
type EquipModels struct {
	Equipment [constants.EquipModelSlots]uint32
	Weapons   [constants.WeaponModelSlots]uint64
}

// StatusEffect is one entry in an actor's 30-slot status-effect ring.
type StatusEffect struct {
	EffectId uint16
	Param    uint16
	Duration float32
	SourceId ObjectId
}

// CommonSpawn is the union of attributes needed to materialize an actor on a
// remote client (§3). It is shared by PlayerSpawn and NpcSpawn IPC payloads.
type CommonSpawn struct {
	Models          EquipModels
	Customize       [constants.CustomizeSize]byte
	HPCurr, HPMax   uint32
	MPCurr, MPMax   uint16
	ClassJobId      uint8
	Level           uint8
	TitleId         uint16
	Kind            ObjectKind
	KindSub         uint8 // BattleNpc sub-kind, meaningless for other kinds
	InvisibilityFlags uint32
	DisplayFlags      uint32
	Position          Position
	Rotation          float32
	SpawnIndex        uint8 // 0..99, unique per observing client
	Mode              CharacterMode
	ModeParam         uint8
	StatusEffects     [constants.StatusEffectSlots]StatusEffect
	Name              string
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (c CommonSpawn) Clone() CommonSpawn {
	out := c
	out.StatusEffects = c.StatusEffects
	return out
}
