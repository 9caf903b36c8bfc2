package ipc

import "github.com/aetherforge/worldserver/internal/model"

// ActionKind selects how ActionRequest's action_key is interpreted.
type ActionKind uint8

const (
	ActionNothing ActionKind = iota
	ActionNormal
	ActionItem
	ActionMount
)

// actionRequestSize is action_key(4) + target_kind(1) + pad(3) + target_id(4) + kind(1) + pad(3).
const actionRequestSize = 4 + 1 + 3 + 4 + 1 + 3

// ActionRequest is the client's request to execute an action (§4.6).
type ActionRequest struct {
	ActionKey uint32
	TargetKind uint8 // 0 = actor, others reserved for item/area targets
	TargetId  model.ObjectId
	Kind      ActionKind
}

func (ActionRequest) Opcode() Opcode { return OpActionRequest }

func (p ActionRequest) Encode() []byte {
	w := NewWriter(actionRequestSize)
	w.U32(p.ActionKey)
	w.U8(p.TargetKind)
	w.Pad(3)
	w.U32(uint32(p.TargetId))
	w.U8(uint8(p.Kind))
	w.Pad(3)
	return w.Bytes()
}

func DecodeActionRequest(body []byte) (ActionRequest, error) {
	r := NewReader(body)
	var p ActionRequest
	var err error
	if p.ActionKey, err = r.U32(); err != nil {
		return ActionRequest{}, err
	}
	if p.TargetKind, err = r.U8(); err != nil {
		return ActionRequest{}, err
	}
	if _, err = r.Bytes(3); err != nil {
		return ActionRequest{}, err
	}
	targetID, err := r.U32()
	if err != nil {
		return ActionRequest{}, err
	}
	p.TargetId = model.ObjectId(targetID)
	kind, err := r.U8()
	if err != nil {
		return ActionRequest{}, err
	}
	p.Kind = ActionKind(kind)
	return p, nil
}

// EffectKind tags one resolved effect entry (§4.6).
type EffectKind uint8

const (
	EffectNone EffectKind = iota
	EffectDamage
	EffectGainEffect
)

// effectEntrySize is kind(1)+pad(3)+amount(4)+effect_id(2)+param(2)+duration(4)+source(4).
const effectEntrySize = 1 + 3 + 4 + 2 + 2 + 4 + 4

// EffectEntry is one effect in an ActionResult/EffectResult list.
type EffectEntry struct {
	Kind     EffectKind
	Amount   uint32 // EffectDamage
	EffectId uint16 // EffectGainEffect
	Param    uint16
	Duration float32
	Source   model.ObjectId
}

func encodeEffectEntry(w *Writer, e EffectEntry) {
	w.U8(uint8(e.Kind))
	w.Pad(3)
	w.U32(e.Amount)
	w.U16(e.EffectId)
	w.U16(e.Param)
	w.F32(e.Duration)
	w.U32(uint32(e.Source))
}

func decodeEffectEntry(r *Reader) (EffectEntry, error) {
	var e EffectEntry
	kind, err := r.U8()
	if err != nil {
		return EffectEntry{}, err
	}
	e.Kind = EffectKind(kind)
	if _, err = r.Bytes(3); err != nil {
		return EffectEntry{}, err
	}
	if e.Amount, err = r.U32(); err != nil {
		return EffectEntry{}, err
	}
	if e.EffectId, err = r.U16(); err != nil {
		return EffectEntry{}, err
	}
	if e.Param, err = r.U16(); err != nil {
		return EffectEntry{}, err
	}
	if e.Duration, err = r.F32(); err != nil {
		return EffectEntry{}, err
	}
	srcID, err := r.U32()
	if err != nil {
		return EffectEntry{}, err
	}
	e.Source = model.ObjectId(srcID)
	return e, nil
}

// MaxActionResultEffects bounds ActionResult's effect list (§4.6).
const MaxActionResultEffects = 8

// MaxEffectResultEffects bounds EffectResult's effect list (§4.6).
const MaxEffectResultEffects = 4

// actionResultSize is action_id(4) + 8 effect entries + anim_lock(2) +
// rotation(2) + hidden_anim(1) + pad(3) + caster(4) + target(4).
const actionResultSize = 4 + MaxActionResultEffects*effectEntrySize + 2 + 2 + 1 + 3 + 4 + 4

// ActionResult is broadcast to observers of the action's caster (§4.6).
type ActionResult struct {
	ActionId        uint32
	Effects         [MaxActionResultEffects]EffectEntry
	AnimationLock   uint16
	RotationPacked  uint16
	HiddenAnimation bool
	CasterId        model.ObjectId
	TargetId        model.ObjectId
}

func (ActionResult) Opcode() Opcode { return OpActionResult }

func (p ActionResult) Encode() []byte {
	w := NewWriter(actionResultSize)
	w.U32(p.ActionId)
	for _, e := range p.Effects {
		encodeEffectEntry(w, e)
	}
	w.U16(p.AnimationLock)
	w.U16(p.RotationPacked)
	w.U8(boolToU8(p.HiddenAnimation))
	w.Pad(3)
	w.U32(uint32(p.CasterId))
	w.U32(uint32(p.TargetId))
	return w.Bytes()
}

func DecodeActionResult(body []byte) (ActionResult, error) {
	r := NewReader(body)
	var p ActionResult
	var err error
	if p.ActionId, err = r.U32(); err != nil {
		return ActionResult{}, err
	}
	for i := range p.Effects {
		if p.Effects[i], err = decodeEffectEntry(r); err != nil {
			return ActionResult{}, err
		}
	}
	if p.AnimationLock, err = r.U16(); err != nil {
		return ActionResult{}, err
	}
	if p.RotationPacked, err = r.U16(); err != nil {
		return ActionResult{}, err
	}
	hidden, err := r.U8()
	if err != nil {
		return ActionResult{}, err
	}
	p.HiddenAnimation = hidden != 0
	if _, err = r.Bytes(3); err != nil {
		return ActionResult{}, err
	}
	casterID, err := r.U32()
	if err != nil {
		return ActionResult{}, err
	}
	p.CasterId = model.ObjectId(casterID)
	targetID, err := r.U32()
	if err != nil {
		return ActionResult{}, err
	}
	p.TargetId = model.ObjectId(targetID)
	return p, nil
}

// effectResultSize is target(4) + 4 effect entries + hp(4) + mp(2) + shield(2).
const effectResultSize = 4 + MaxEffectResultEffects*effectEntrySize + 4 + 2 + 2

// EffectResult is sent to the target's owning connection (§4.6).
type EffectResult struct {
	TargetId model.ObjectId
	Effects  [MaxEffectResultEffects]EffectEntry
	HPCurr   uint32
	MPCurr   uint16
	Shield   uint16
}

func (EffectResult) Opcode() Opcode { return OpEffectResult }

func (p EffectResult) Encode() []byte {
	w := NewWriter(effectResultSize)
	w.U32(uint32(p.TargetId))
	for _, e := range p.Effects {
		encodeEffectEntry(w, e)
	}
	w.U32(p.HPCurr)
	w.U16(p.MPCurr)
	w.U16(p.Shield)
	return w.Bytes()
}

func DecodeEffectResult(body []byte) (EffectResult, error) {
	r := NewReader(body)
	var p EffectResult
	targetID, err := r.U32()
	if err != nil {
		return EffectResult{}, err
	}
	p.TargetId = model.ObjectId(targetID)
	for i := range p.Effects {
		if p.Effects[i], err = decodeEffectEntry(r); err != nil {
			return EffectResult{}, err
		}
	}
	if p.HPCurr, err = r.U32(); err != nil {
		return EffectResult{}, err
	}
	if p.MPCurr, err = r.U16(); err != nil {
		return EffectResult{}, err
	}
	if p.Shield, err = r.U16(); err != nil {
		return EffectResult{}, err
	}
	return p, nil
}

// updateHpMpTpSize is actor(4) + hp(4) + mp(2) + tp(2).
const updateHpMpTpSize = 4 + 4 + 2 + 2

// UpdateHpMpTp refreshes the target owner's resource bars after an action
// changed them (§4.6 step 6).
type UpdateHpMpTp struct {
	ActorId model.ObjectId
	HP      uint32
	MP      uint16
	TP      uint16
}

func (UpdateHpMpTp) Opcode() Opcode { return OpUpdateHpMpTp }

func (p UpdateHpMpTp) Encode() []byte {
	w := NewWriter(updateHpMpTpSize)
	w.U32(uint32(p.ActorId))
	w.U32(p.HP)
	w.U16(p.MP)
	w.U16(p.TP)
	return w.Bytes()
}

func DecodeUpdateHpMpTp(body []byte) (UpdateHpMpTp, error) {
	r := NewReader(body)
	var p UpdateHpMpTp
	actorID, err := r.U32()
	if err != nil {
		return UpdateHpMpTp{}, err
	}
	p.ActorId = model.ObjectId(actorID)
	if p.HP, err = r.U32(); err != nil {
		return UpdateHpMpTp{}, err
	}
	if p.MP, err = r.U16(); err != nil {
		return UpdateHpMpTp{}, err
	}
	if p.TP, err = r.U16(); err != nil {
		return UpdateHpMpTp{}, err
	}
	return p, nil
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
