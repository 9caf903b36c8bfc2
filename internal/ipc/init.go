package ipc

import "github.com/aetherforge/worldserver/internal/model"

// initRequestSize is content_id(8) + seed(4) + pad(4).
const initRequestSize = 16

// InitRequest is the first IPC the client sends after the zone handshake.
type InitRequest struct {
	ContentId model.ContentId
	Seed      uint32
}

func (InitRequest) Opcode() Opcode { return OpInitRequest }

func (p InitRequest) Encode() []byte {
	w := NewWriter(initRequestSize)
	w.U64(uint64(p.ContentId))
	w.U32(p.Seed)
	w.Pad(4)
	return w.Bytes()
}

func DecodeInitRequest(body []byte) (InitRequest, error) {
	r := NewReader(body)
	contentID, err := r.U64()
	if err != nil {
		return InitRequest{}, err
	}
	seed, err := r.U32()
	if err != nil {
		return InitRequest{}, err
	}
	return InitRequest{ContentId: model.ContentId(contentID), Seed: seed}, nil
}

// initResponseSize is actor_id(4) + content_id(8) + pad(4).
const initResponseSize = 16

// InitResponse echoes the accepted session back to the client.
type InitResponse struct {
	ActorId   model.ObjectId
	ContentId model.ContentId
}

func (InitResponse) Opcode() Opcode { return OpInitResponse }

func (p InitResponse) Encode() []byte {
	w := NewWriter(initResponseSize)
	w.U32(uint32(p.ActorId))
	w.U64(uint64(p.ContentId))
	w.Pad(4)
	return w.Bytes()
}

func DecodeInitResponse(body []byte) (InitResponse, error) {
	r := NewReader(body)
	actorID, err := r.U32()
	if err != nil {
		return InitResponse{}, err
	}
	contentID, err := r.U64()
	if err != nil {
		return InitResponse{}, err
	}
	return InitResponse{ActorId: model.ObjectId(actorID), ContentId: model.ContentId(contentID)}, nil
}

// initZoneSize is zone_id(2) + weather_id(2) + obfuscation seeds(4+4) +
// 4 festival ids(2 each) + pad(4).
const initZoneSize = 24

// InitZone tells the client it has entered a new zone instance.
type InitZone struct {
	ZoneId            uint16
	WeatherId         uint16
	ObfuscationSeed1  uint32
	ObfuscationSeed2  uint32
	ActiveFestivalIds [4]uint16
}

func (InitZone) Opcode() Opcode { return OpInitZone }

func (p InitZone) Encode() []byte {
	w := NewWriter(initZoneSize)
	w.U16(p.ZoneId)
	w.U16(p.WeatherId)
	w.U32(p.ObfuscationSeed1)
	w.U32(p.ObfuscationSeed2)
	for _, id := range p.ActiveFestivalIds {
		w.U16(id)
	}
	w.Pad(4)
	return w.Bytes()
}

func DecodeInitZone(body []byte) (InitZone, error) {
	r := NewReader(body)
	var p InitZone
	var err error
	if p.ZoneId, err = r.U16(); err != nil {
		return InitZone{}, err
	}
	if p.WeatherId, err = r.U16(); err != nil {
		return InitZone{}, err
	}
	if p.ObfuscationSeed1, err = r.U32(); err != nil {
		return InitZone{}, err
	}
	if p.ObfuscationSeed2, err = r.U32(); err != nil {
		return InitZone{}, err
	}
	for i := range p.ActiveFestivalIds {
		if p.ActiveFestivalIds[i], err = r.U16(); err != nil {
			return InitZone{}, err
		}
	}
	return p, nil
}
