package model

import "github.com/aetherforge/worldserver/internal/constants"

// UnlockData is a struct of fixed-size bit arrays, each appearing on the
// wire verbatim in the PlayerSetup packet in this exact order and width
// (§3, §6). Do not reorder or resize fields without a matching wire-format
// bump; the client will misread every field after the one that changed.
type UnlockData struct {
	Aetherytes      [constants.AetheryteBitmaskSize]byte
	Mounts          [constants.MountBitmaskSize]byte
	Minions         [constants.MinionBitmaskSize]byte
	OrchestrionRolls [constants.OrchestrionBitmaskSize]byte
	TripleTriadCards [constants.TripleTriadBitmaskSize]byte
	Ornaments       [constants.OrnamentBitmaskSize]byte
	GlassesStyles   [constants.GlassesStyleBitmaskSize]byte
	ChocoboTaxiStands [constants.ChocoboTaxiBitmaskSize]byte
	BuddyEquip      [constants.BuddyEquipBitmaskSize]byte
	CaughtFish      [constants.CaughtFishBitmaskSize]byte
	CaughtSpearfish [constants.CaughtSpearfishBitmaskSize]byte
	Adventures      [constants.AdventureBitmaskSize]byte
	AetherCurrents  [constants.AetherCurrentBitmaskSize]byte
	CompletedQuests [constants.QuestBitmaskSize]byte
	InstanceContent [constants.InstanceContentBitmaskSize]byte
	CutscenesSeen   [constants.CutsceneBitmaskSize]byte
	ActiveHelpSeen  [constants.ActiveHelpBitmaskSize]byte
	GeneralUnlocks  [constants.GeneralUnlockBitmaskSize]byte
}

// bitOp abstracts set/clear/test over one of UnlockData's fixed arrays.
func bitOp(mask []byte, id int) (byteIdx, bitIdx int, ok bool) {
	byteIdx = id / 8
	bitIdx = id % 8
	ok = byteIdx >= 0 && byteIdx < len(mask)
	return
}

// SetBit sets bit `id` in mask, returning false if id is out of range.
func SetBit(mask []byte, id int) bool {
	b, bit, ok := bitOp(mask, id)
	if !ok {
		return false
	}
	mask[b] |= 1 << uint(bit)
	return true
}

// ClearBit clears bit `id` in mask, returning false if id is out of range.
func ClearBit(mask []byte, id int) bool {
	b, bit, ok := bitOp(mask, id)
	if !ok {
		return false
	}
	mask[b] &^= 1 << uint(bit)
	return true
}

// SetAllBits sets or clears every bit in mask, backing the "all ids" form
// of each toggle unlock (§4.9, e.g. UnlockAllContent).
func SetAllBits(mask []byte, on bool) {
	var fill byte
	if on {
		fill = 0xFF
	}
	for i := range mask {
		mask[i] = fill
	}
}

// TestBit reports whether bit `id` is set in mask.
func TestBit(mask []byte, id int) bool {
	b, bit, ok := bitOp(mask, id)
	if !ok {
		return false
	}
	return mask[b]&(1<<uint(bit)) != 0
}
