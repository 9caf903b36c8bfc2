package model

// TeleportQuery records an in-flight teleport/aetheryte request for a player
// actor (§3, §4.9). No code in this module reads or sets it.
type TeleportQuery struct {
	AetheryteId uint16
	Pending     bool
}

// ScriptBinding names the script entry point an NPC actor dispatches action
// and event hooks to (§4.6, §4.9).
type ScriptBinding struct {
	Name string
}

// Actor is the tagged union of actor variants a Zone instance owns (§3).
// All variant fields sit flat on the struct; Kind says which of the
// variant-only groups below is meaningful for a given Actor value.
type Actor struct {
	Id   ObjectId
	Kind ActorKind

	Spawn CommonSpawn

	// Player-only.
	TeleportQuery TeleportQuery

	// Npc-only.
	ScriptBinding ScriptBinding

	// Object-only.
	EObjBaseId uint32
	Visible    bool
}

// ActorKind distinguishes the three Actor variants.
type ActorKind uint8

const (
	ActorPlayer ActorKind = iota
	ActorNpc
	ActorObject
)

// IsAlive reports whether the actor's spawn has non-zero current HP.
// Object actors are always considered "alive" (they have no HP concept).
func (a *Actor) IsAlive() bool {
	if a.Kind == ActorObject {
		return true
	}
	return a.Spawn.HPCurr > 0
}

// ApplyDamage decrements HP, saturating at zero, and returns the new HP (§4.6).
func (a *Actor) ApplyDamage(amount uint32) uint32 {
	if amount >= a.Spawn.HPCurr {
		a.Spawn.HPCurr = 0
	} else {
		a.Spawn.HPCurr -= amount
	}
	return a.Spawn.HPCurr
}

// GainStatusEffect writes an effect into the 30-slot ring, evicting the
// oldest occupied slot (LRU by array position) when full (§3, §4.6).
func (a *Actor) GainStatusEffect(eff StatusEffect) (slot int) {
	for i, existing := range a.Spawn.StatusEffects {
		if existing.EffectId == 0 || existing.EffectId == eff.EffectId {
			a.Spawn.StatusEffects[i] = eff
			return i
		}
	}
	// Ring is full: evict slot 0 (oldest by insertion convention) and shift.
	copy(a.Spawn.StatusEffects[:], a.Spawn.StatusEffects[1:])
	last := len(a.Spawn.StatusEffects) - 1
	a.Spawn.StatusEffects[last] = eff
	return last
}

// LoseStatusEffect clears the slot holding effectId, if any.
func (a *Actor) LoseStatusEffect(effectId uint16) bool {
	for i, existing := range a.Spawn.StatusEffects {
		if existing.EffectId == effectId {
			a.Spawn.StatusEffects[i] = StatusEffect{}
			return true
		}
	}
	return false
}
