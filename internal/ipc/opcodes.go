package ipc

import "fmt"

// Opcode identifies a registered IPC payload schema. Numbering here is
// internal to this server; it has no relationship to any client's own
// opcode table, which is proprietary and rotates per patch.
type Opcode uint16

const (
	OpInitRequest  Opcode = 0x0001
	OpInitResponse Opcode = 0x0002
	OpInitZone     Opcode = 0x0003

	OpLoginRequest Opcode = 0x0004
	OpLoginReply   Opcode = 0x0005

	OpPlayerSetup Opcode = 0x0010

	OpPlayerSpawn Opcode = 0x0020
	OpNpcSpawn    Opcode = 0x0021

	OpActorControl       Opcode = 0x0030
	OpActorControlSelf   Opcode = 0x0031
	OpActorControlTarget Opcode = 0x0032

	OpActionRequest Opcode = 0x0040
	OpActionResult  Opcode = 0x0041
	OpEffectResult  Opcode = 0x0042
	OpUpdateHpMpTp  Opcode = 0x0043

	OpWarp      Opcode = 0x0050
	OpActorMove Opcode = 0x0051

	OpUpdateInventorySlot   Opcode = 0x0060
	OpInventoryTransaction  Opcode = 0x0061
	OpInventoryActionAck    Opcode = 0x0062

	OpClientTrigger Opcode = 0x0070

	OpChatMessage     Opcode = 0x0080
	OpShopLogMessage  Opcode = 0x0081

	OpKeepAliveRequest  Opcode = 0x0090
	OpKeepAliveResponse Opcode = 0x0091

	OpEventStart  Opcode = 0x00A0
	OpEventFinish Opcode = 0x00A1
	OpEventScene  Opcode = 0x00A2
)

// Payload is anything the registry can parse and serialize. Opcode returns
// the constant this payload type is registered under; Encode returns its
// wire bytes. The package-level SizeOf gives the declared length of
// fixed-size opcodes; variable-length payloads like ChatMessage have an
// instance-dependent size, len(Encode()).
type Payload interface {
	Opcode() Opcode
	Encode() []byte
}

type decodeFunc func([]byte) (Payload, error)

var registry = map[Opcode]decodeFunc{
	OpInitRequest:  func(b []byte) (Payload, error) { return DecodeInitRequest(b) },
	OpInitResponse: func(b []byte) (Payload, error) { return DecodeInitResponse(b) },
	OpInitZone:     func(b []byte) (Payload, error) { return DecodeInitZone(b) },

	OpLoginRequest: func(b []byte) (Payload, error) { return DecodeLoginRequest(b) },
	OpLoginReply:   func(b []byte) (Payload, error) { return DecodeLoginReply(b) },

	OpPlayerSetup: func(b []byte) (Payload, error) { return DecodePlayerSetup(b) },

	OpPlayerSpawn: func(b []byte) (Payload, error) { return decodeSpawn(b, OpPlayerSpawn) },
	OpNpcSpawn:    func(b []byte) (Payload, error) { return decodeSpawn(b, OpNpcSpawn) },

	OpActorControl:       func(b []byte) (Payload, error) { return decodeActorControl(b, OpActorControl) },
	OpActorControlSelf:   func(b []byte) (Payload, error) { return decodeActorControl(b, OpActorControlSelf) },
	OpActorControlTarget: func(b []byte) (Payload, error) { return decodeActorControl(b, OpActorControlTarget) },

	OpActionRequest: func(b []byte) (Payload, error) { return DecodeActionRequest(b) },
	OpActionResult:  func(b []byte) (Payload, error) { return DecodeActionResult(b) },
	OpEffectResult:  func(b []byte) (Payload, error) { return DecodeEffectResult(b) },
	OpUpdateHpMpTp:  func(b []byte) (Payload, error) { return DecodeUpdateHpMpTp(b) },

	OpWarp:      func(b []byte) (Payload, error) { return DecodeWarp(b) },
	OpActorMove: func(b []byte) (Payload, error) { return DecodeActorMove(b) },

	OpUpdateInventorySlot:  func(b []byte) (Payload, error) { return DecodeUpdateInventorySlot(b) },
	OpInventoryTransaction: func(b []byte) (Payload, error) { return DecodeInventoryTransaction(b) },
	OpInventoryActionAck:   func(b []byte) (Payload, error) { return DecodeInventoryActionAck(b) },

	OpClientTrigger: func(b []byte) (Payload, error) { return DecodeClientTrigger(b) },

	OpChatMessage:    func(b []byte) (Payload, error) { return DecodeChatMessage(b) },
	OpShopLogMessage: func(b []byte) (Payload, error) { return DecodeShopLogMessage(b) },

	OpKeepAliveRequest:  func(b []byte) (Payload, error) { return DecodeKeepAliveRequest(b) },
	OpKeepAliveResponse: func(b []byte) (Payload, error) { return DecodeKeepAliveResponse(b) },

	OpEventStart:  func(b []byte) (Payload, error) { return DecodeEventStart(b) },
	OpEventFinish: func(b []byte) (Payload, error) { return DecodeEventFinish(b) },
	OpEventScene:  func(b []byte) (Payload, error) { return DecodeEventScene(b) },
}

// sizeTable holds the declared byte length for fixed-size opcodes. Variable
// length opcodes (ChatMessage, LoginRequest, LoginReply) are absent here;
// their size is derived from the encoded instance instead.
var sizeTable = map[Opcode]uint32{
	OpInitRequest:  initRequestSize,
	OpInitResponse: initResponseSize,
	OpInitZone:     initZoneSize,

	OpPlayerSetup: playerSetupSize,

	OpPlayerSpawn: spawnSize,
	OpNpcSpawn:    spawnSize,

	OpActorControl:       actorControlSize,
	OpActorControlSelf:   actorControlSize,
	OpActorControlTarget: actorControlTargetSize,

	OpActionRequest: actionRequestSize,
	OpActionResult:  actionResultSize,
	OpEffectResult:  effectResultSize,
	OpUpdateHpMpTp:  updateHpMpTpSize,

	OpWarp:      warpSize,
	OpActorMove: actorMoveSize,

	OpUpdateInventorySlot:  updateInventorySlotSize,
	OpInventoryTransaction: inventoryTransactionSize,
	OpInventoryActionAck:   inventoryActionAckSize,

	OpClientTrigger: clientTriggerSize,

	OpShopLogMessage: shopLogMessageSize,

	OpKeepAliveRequest:  keepAliveRequestSize,
	OpKeepAliveResponse: keepAliveResponseSize,

	OpEventStart:  eventStartSize,
	OpEventFinish: eventFinishSize,
	OpEventScene:  eventSceneSize,
}

// Parse decodes body according to the schema registered for opcode.
func Parse(opcode Opcode, body []byte) (Payload, error) {
	dec, ok := registry[opcode]
	if !ok {
		return nil, fmt.Errorf("ipc: unknown opcode 0x%04X", uint16(opcode))
	}
	return dec(body)
}

// Serialize encodes p back to its wire form.
func Serialize(p Payload) []byte {
	return p.Encode()
}

// SizeOf returns the declared wire length for a fixed-size opcode. For a
// variable-length or unregistered opcode it returns (0, false); callers use
// len(Serialize(p)) there instead, since those sizes are instance-dependent.
func SizeOf(opcode Opcode) (uint32, bool) {
	n, ok := sizeTable[opcode]
	return n, ok
}
