package ipc

import "github.com/aetherforge/worldserver/internal/model"

// MaxEventSceneParams bounds the parameter list an EventScene carries. The
// largest scene the core produces is a shop's buyback listing (three header
// values plus ten entries of three values each), 33 values in all.
const MaxEventSceneParams = 33

// eventStartSize is actor(4) + handler(4) + event_type(1) + flags(1) + pad(2) + arg(4).
const eventStartSize = 4 + 4 + 1 + 1 + 2 + 4

// EventStart tells the client an event handler has taken control of the
// player (talk windows, shops, cutscenes). The handler id's upper bits name
// the handler kind; the client uses them to pick the UI shell.
type EventStart struct {
	ActorId   model.ObjectId
	HandlerId uint32
	EventType uint8
	Flags     uint8
	Arg       uint32
}

func (EventStart) Opcode() Opcode { return OpEventStart }

func (p EventStart) Encode() []byte {
	w := NewWriter(eventStartSize)
	w.U32(uint32(p.ActorId))
	w.U32(p.HandlerId)
	w.U8(p.EventType)
	w.U8(p.Flags)
	w.Pad(2)
	w.U32(p.Arg)
	return w.Bytes()
}

func DecodeEventStart(body []byte) (EventStart, error) {
	r := NewReader(body)
	var p EventStart
	actorId, err := r.U32()
	if err != nil {
		return EventStart{}, err
	}
	p.ActorId = model.ObjectId(actorId)
	if p.HandlerId, err = r.U32(); err != nil {
		return EventStart{}, err
	}
	if p.EventType, err = r.U8(); err != nil {
		return EventStart{}, err
	}
	if p.Flags, err = r.U8(); err != nil {
		return EventStart{}, err
	}
	if _, err = r.Bytes(2); err != nil {
		return EventStart{}, err
	}
	if p.Arg, err = r.U32(); err != nil {
		return EventStart{}, err
	}
	return p, nil
}

// eventFinishSize is handler(4) + result(1) + pad(3).
const eventFinishSize = 4 + 1 + 3

// EventFinish releases the client from a running event handler.
type EventFinish struct {
	HandlerId uint32
	Result    uint8
}

func (EventFinish) Opcode() Opcode { return OpEventFinish }

func (p EventFinish) Encode() []byte {
	w := NewWriter(eventFinishSize)
	w.U32(p.HandlerId)
	w.U8(p.Result)
	w.Pad(3)
	return w.Bytes()
}

func DecodeEventFinish(body []byte) (EventFinish, error) {
	r := NewReader(body)
	var p EventFinish
	var err error
	if p.HandlerId, err = r.U32(); err != nil {
		return EventFinish{}, err
	}
	if p.Result, err = r.U8(); err != nil {
		return EventFinish{}, err
	}
	if _, err = r.Bytes(3); err != nil {
		return EventFinish{}, err
	}
	return p, nil
}

// eventSceneSize is handler(4) + scene(2) + param_count(2) + MaxEventSceneParams u32 params.
const eventSceneSize = 4 + 2 + 2 + MaxEventSceneParams*4

// EventScene plays one scene of a running event, carrying the parameter
// block the scene script reads (a shop scene's parameters include the
// buyback listing, §8 scenario 5).
type EventScene struct {
	HandlerId  uint32
	Scene      uint16
	ParamCount uint16
	Params     [MaxEventSceneParams]uint32
}

// NewEventScene builds an EventScene from a variable-length parameter list,
// truncating at MaxEventSceneParams.
func NewEventScene(handlerId uint32, scene uint16, params []uint32) EventScene {
	p := EventScene{HandlerId: handlerId, Scene: scene}
	n := copy(p.Params[:], params)
	p.ParamCount = uint16(n)
	return p
}

func (EventScene) Opcode() Opcode { return OpEventScene }

func (p EventScene) Encode() []byte {
	w := NewWriter(eventSceneSize)
	w.U32(p.HandlerId)
	w.U16(p.Scene)
	w.U16(p.ParamCount)
	for _, v := range p.Params {
		w.U32(v)
	}
	return w.Bytes()
}

func DecodeEventScene(body []byte) (EventScene, error) {
	r := NewReader(body)
	var p EventScene
	var err error
	if p.HandlerId, err = r.U32(); err != nil {
		return EventScene{}, err
	}
	if p.Scene, err = r.U16(); err != nil {
		return EventScene{}, err
	}
	if p.ParamCount, err = r.U16(); err != nil {
		return EventScene{}, err
	}
	for i := range p.Params {
		if p.Params[i], err = r.U32(); err != nil {
			return EventScene{}, err
		}
	}
	return p, nil
}
