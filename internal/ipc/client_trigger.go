package ipc

import "github.com/aetherforge/worldserver/internal/constants"

// clientTriggerSize is command_id(4) + 4 u32 params.
const clientTriggerSize = 4 + constants.ClientTriggerParamCount*4

// ClientTrigger is the catch-all client→server RPC (GimmickAccessor,
// CancelCast, and similar one-off commands all arrive this way, §4.6, §8
// scenario 6).
type ClientTrigger struct {
	CommandId uint32
	Params    [constants.ClientTriggerParamCount]uint32
}

func (ClientTrigger) Opcode() Opcode { return OpClientTrigger }

func (p ClientTrigger) Encode() []byte {
	w := NewWriter(clientTriggerSize)
	w.U32(p.CommandId)
	for _, v := range p.Params {
		w.U32(v)
	}
	return w.Bytes()
}

func DecodeClientTrigger(body []byte) (ClientTrigger, error) {
	r := NewReader(body)
	var p ClientTrigger
	var err error
	if p.CommandId, err = r.U32(); err != nil {
		return ClientTrigger{}, err
	}
	for i := range p.Params {
		if p.Params[i], err = r.U32(); err != nil {
			return ClientTrigger{}, err
		}
	}
	return p, nil
}

// Well-known ClientTrigger command ids used by the core (§4.6, §4.8, §8).
const (
	TriggerCancelCast      uint32 = 1
	TriggerGimmickAccessor uint32 = 2
	// TriggerShopSell carries Params = [shop_id, container, slot_index,
	// quantity_unused] for a gil-shop sell-mode request (§8 scenario 5).
	// Quantity isn't independently supplied by the client for a full-stack
	// sell; it's read back off the slot itself.
	TriggerShopSell uint32 = 3

	// Event dispatch commands. Params[0] is always the handler id.
	// TriggerEventTalk opens an event (talking to an NPC, shop, warp).
	// TriggerEventYield answers a running event's prompt (Params[1] is the
	// response). TriggerEventReturn completes a played scene (Params[1] is
	// the scene, Params[2:] its results).
	TriggerEventTalk   uint32 = 4
	TriggerEventYield  uint32 = 5
	TriggerEventReturn uint32 = 6
)
