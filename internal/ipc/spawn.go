package ipc

import (
	"github.com/aetherforge/worldserver/internal/constants"
	"github.com/aetherforge/worldserver/internal/model"
)

// spawnSize is the fixed wire length shared by PlayerSpawn and NpcSpawn: both
// carry an identical CommonSpawn, the client tells them apart by opcode.
const spawnSize = 4 + // actor id
	10*4 + 2*8 + // EquipModels
	constants.CustomizeSize +
	4 + 4 + 2 + 2 + 1 + 1 + 2 + 1 + 1 + 4 + 4 + // hp/mp/class/level/title/kind/flags
	12 + 4 + 1 + 1 + 1 + // position, rotation, spawn index, mode, mode param
	constants.StatusEffectSlots*12 +
	constants.ActorNameCapacity

// Spawn carries a CommonSpawn plus the actor id the spawn describes. It is
// the payload for both PlayerSpawn and NpcSpawn; the opcode field records
// which one produced/consumed a given instance.
type Spawn struct {
	ActorId model.ObjectId
	Common  model.CommonSpawn
	op      Opcode
}

// NewPlayerSpawn wraps a CommonSpawn as a PlayerSpawn payload.
func NewPlayerSpawn(actorId model.ObjectId, c model.CommonSpawn) Spawn {
	return Spawn{ActorId: actorId, Common: c, op: OpPlayerSpawn}
}

// NewNpcSpawn wraps a CommonSpawn as an NpcSpawn payload.
func NewNpcSpawn(actorId model.ObjectId, c model.CommonSpawn) Spawn {
	return Spawn{ActorId: actorId, Common: c, op: OpNpcSpawn}
}

func (s Spawn) Opcode() Opcode { return s.op }

func (s Spawn) Encode() []byte {
	w := NewWriter(spawnSize + 4)
	w.U32(uint32(s.ActorId))
	c := s.Common
	for _, m := range c.Models.Equipment {
		w.U32(m)
	}
	for _, m := range c.Models.Weapons {
		w.U64(m)
	}
	w.Raw(c.Customize[:])
	w.U32(c.HPCurr)
	w.U32(c.HPMax)
	w.U16(c.MPCurr)
	w.U16(c.MPMax)
	w.U8(c.ClassJobId)
	w.U8(c.Level)
	w.U16(c.TitleId)
	w.U8(uint8(c.Kind))
	w.U8(c.KindSub)
	w.U32(c.InvisibilityFlags)
	w.U32(c.DisplayFlags)
	w.F32(c.Position.X)
	w.F32(c.Position.Y)
	w.F32(c.Position.Z)
	w.F32(c.Rotation)
	w.U8(c.SpawnIndex)
	w.U8(uint8(c.Mode))
	w.U8(c.ModeParam)
	for _, eff := range c.StatusEffects {
		w.U16(eff.EffectId)
		w.U16(eff.Param)
		w.F32(eff.Duration)
		w.U32(uint32(eff.SourceId))
	}
	nameBuf := make([]byte, constants.ActorNameCapacity)
	copy(nameBuf, c.Name)
	w.Raw(nameBuf)
	return w.Bytes()
}

func decodeSpawn(body []byte, op Opcode) (Payload, error) {
	r := NewReader(body)
	actorID, err := r.U32()
	if err != nil {
		return nil, err
	}
	var c model.CommonSpawn
	for i := range c.Models.Equipment {
		if c.Models.Equipment[i], err = r.U32(); err != nil {
			return nil, err
		}
	}
	for i := range c.Models.Weapons {
		if c.Models.Weapons[i], err = r.U64(); err != nil {
			return nil, err
		}
	}
	if err = r.Fixed(c.Customize[:]); err != nil {
		return nil, err
	}
	if c.HPCurr, err = r.U32(); err != nil {
		return nil, err
	}
	if c.HPMax, err = r.U32(); err != nil {
		return nil, err
	}
	if c.MPCurr, err = r.U16(); err != nil {
		return nil, err
	}
	if c.MPMax, err = r.U16(); err != nil {
		return nil, err
	}
	if c.ClassJobId, err = r.U8(); err != nil {
		return nil, err
	}
	if c.Level, err = r.U8(); err != nil {
		return nil, err
	}
	if c.TitleId, err = r.U16(); err != nil {
		return nil, err
	}
	kind, err := r.U8()
	if err != nil {
		return nil, err
	}
	c.Kind = model.ObjectKind(kind)
	if c.KindSub, err = r.U8(); err != nil {
		return nil, err
	}
	if c.InvisibilityFlags, err = r.U32(); err != nil {
		return nil, err
	}
	if c.DisplayFlags, err = r.U32(); err != nil {
		return nil, err
	}
	if c.Position.X, err = r.F32(); err != nil {
		return nil, err
	}
	if c.Position.Y, err = r.F32(); err != nil {
		return nil, err
	}
	if c.Position.Z, err = r.F32(); err != nil {
		return nil, err
	}
	if c.Rotation, err = r.F32(); err != nil {
		return nil, err
	}
	if c.SpawnIndex, err = r.U8(); err != nil {
		return nil, err
	}
	mode, err := r.U8()
	if err != nil {
		return nil, err
	}
	c.Mode = model.CharacterMode(mode)
	if c.ModeParam, err = r.U8(); err != nil {
		return nil, err
	}
	for i := range c.StatusEffects {
		eff := &c.StatusEffects[i]
		if eff.EffectId, err = r.U16(); err != nil {
			return nil, err
		}
		if eff.Param, err = r.U16(); err != nil {
			return nil, err
		}
		if eff.Duration, err = r.F32(); err != nil {
			return nil, err
		}
		srcID, err := r.U32()
		if err != nil {
			return nil, err
		}
		eff.SourceId = model.ObjectId(srcID)
	}
	nameBuf, err := r.Bytes(constants.ActorNameCapacity)
	if err != nil {
		return nil, err
	}
	c.Name = trimNulString(nameBuf)

	return Spawn{ActorId: model.ObjectId(actorID), Common: c, op: op}, nil
}

func trimNulString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
