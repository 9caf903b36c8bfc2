package ipc

import "github.com/aetherforge/worldserver/internal/model"

// warpSize is actor_id(4) + zone_id(2) + pad(2) + position(12) + rotation(2) + pad(2).
const warpSize = 4 + 2 + 2 + 12 + 2 + 2

// Warp forces a player's position, optionally into a new zone (§4.5: ToServer::Warp/WarpAetheryte surface this to the client).
type Warp struct {
	ActorId  model.ObjectId
	ZoneId   uint16
	Position model.Position
	Rotation uint16 // quantized, see model.QuantizeRotation
}

func (Warp) Opcode() Opcode { return OpWarp }

func (p Warp) Encode() []byte {
	w := NewWriter(warpSize)
	w.U32(uint32(p.ActorId))
	w.U16(p.ZoneId)
	w.Pad(2)
	w.F32(p.Position.X)
	w.F32(p.Position.Y)
	w.F32(p.Position.Z)
	w.U16(p.Rotation)
	w.Pad(2)
	return w.Bytes()
}

func DecodeWarp(body []byte) (Warp, error) {
	r := NewReader(body)
	var p Warp
	var err error
	actorID, err := r.U32()
	if err != nil {
		return Warp{}, err
	}
	p.ActorId = model.ObjectId(actorID)
	if p.ZoneId, err = r.U16(); err != nil {
		return Warp{}, err
	}
	if _, err = r.Bytes(2); err != nil {
		return Warp{}, err
	}
	if p.Position.X, err = r.F32(); err != nil {
		return Warp{}, err
	}
	if p.Position.Y, err = r.F32(); err != nil {
		return Warp{}, err
	}
	if p.Position.Z, err = r.F32(); err != nil {
		return Warp{}, err
	}
	if p.Rotation, err = r.U16(); err != nil {
		return Warp{}, err
	}
	return p, nil
}

// actorMoveSize is actor_id(4) + position(12) + rotation(2) + animation(2).
const actorMoveSize = 4 + 12 + 2 + 2

// ActorMove relays a remote actor's authoritative position to observers.
type ActorMove struct {
	ActorId     model.ObjectId
	Position    model.Position
	Rotation    uint16
	AnimationId uint16
}

func (ActorMove) Opcode() Opcode { return OpActorMove }

func (p ActorMove) Encode() []byte {
	w := NewWriter(actorMoveSize)
	w.U32(uint32(p.ActorId))
	w.F32(p.Position.X)
	w.F32(p.Position.Y)
	w.F32(p.Position.Z)
	w.U16(p.Rotation)
	w.U16(p.AnimationId)
	return w.Bytes()
}

func DecodeActorMove(body []byte) (ActorMove, error) {
	r := NewReader(body)
	var p ActorMove
	actorID, err := r.U32()
	if err != nil {
		return ActorMove{}, err
	}
	p.ActorId = model.ObjectId(actorID)
	if p.Position.X, err = r.F32(); err != nil {
		return ActorMove{}, err
	}
	if p.Position.Y, err = r.F32(); err != nil {
		return ActorMove{}, err
	}
	if p.Position.Z, err = r.F32(); err != nil {
		return ActorMove{}, err
	}
	if p.Rotation, err = r.U16(); err != nil {
		return ActorMove{}, err
	}
	if p.AnimationId, err = r.U16(); err != nil {
		return ActorMove{}, err
	}
	return p, nil
}
