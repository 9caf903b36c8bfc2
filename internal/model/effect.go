package model

// EffectKind tags one resolved effect a script hands back to the action
// pipeline (§4.6). This is the domain-level effect used by scripts and the
// pipeline; ipc.EffectEntry is its wire projection, built by the pipeline
// once a broadcast target is known.
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectDamage
	EffectGainEffect
	EffectLoseEffect
	EffectMount
)

// Effect is one entry in the list a script's doAction/dispatchItem hook
// returns (§4.6 step 4, "invoke Lua doAction(caster) -> EffectsBuilder").
type Effect struct {
	Kind EffectKind

	// EffectDamage.
	Amount uint32

	// EffectGainEffect / EffectLoseEffect.
	EffectId uint16
	Param    uint16
	Duration float32
	Source   ObjectId

	// EffectMount.
	MountId uint32

	// TargetId is self unless the script names another actor (e.g. an AoE
	// hit or a heal); ObjectId zero value means "the action's own target".
	TargetId ObjectId
}
