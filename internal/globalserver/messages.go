// Package globalserver implements the single-threaded broker described in
// §4.5: the registry of zone instances and connection handles that receives
// ToServer messages from Connections and dispatches FromServer messages
// back to them. It is grounded on la2go's gameserver broadcast/clients
// machinery (internal/gameserver/broadcast.go, clients.go) - a
// process-wide client table plus a broadcast helper keyed by visibility -
// generalized from la2go's spatial-grid visibility to this spec's
// per-instance "observers of an actor" scoping (§4.5).
package globalserver

import (
	"github.com/aetherforge/worldserver/internal/ipc"
	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
)

// ClientId identifies a live Connection, independent of the ObjectId its
// player actor happens to hold (§4.5: "NewClient(handle), Disconnected(id)").
type ClientId uint64

// ToServer is the tagged union of messages a Connection sends to the
// Global server (§4.5). Concrete types below implement it; the broker
// type-switches on the concrete type rather than a discriminator field,
// which is the idiomatic Go shape for a closed union received off a
// channel.
type ToServer interface{ isToServer() }

type NewClient struct {
	ClientId ClientId
	Mailbox  chan FromServer
}

type Disconnected struct{ ClientId ClientId }

type ZoneLoaded struct {
	ClientId ClientId
	ActorId  model.ObjectId
	Spawn    model.CommonSpawn
	ZoneId   uint16
}

type ChangeZone struct {
	ClientId ClientId
	ActorId  model.ObjectId
	NewZone  uint16
	Pos      *model.Position
	Rot      *float32
}

type EnterZoneJump struct {
	ClientId  ClientId
	ActorId   model.ObjectId
	ExitBoxId uint32
}

type Warp struct {
	ClientId ClientId
	ActorId  model.ObjectId
	WarpId   uint32
}

type WarpAetheryte struct {
	ClientId    ClientId
	ActorId     model.ObjectId
	AetheryteId uint16
}

type MoveToPopRange struct {
	ClientId   ClientId
	ActorId    model.ObjectId
	PopRangeId uint32
	FadeOut    bool
}

type ActorMoved struct {
	ClientId  ClientId
	ActorId   model.ObjectId
	Position  model.Position
	Rotation  float32
	Animation uint16
}

type ActionRequestMsg struct {
	ClientId ClientId
	ActorId  model.ObjectId
	Request  ipc.ActionRequest
}

type ClientTriggerMsg struct {
	ClientId ClientId
	ActorId  model.ObjectId
	Command  ipc.ClientTrigger
}

type KillMsg struct {
	ClientId ClientId
	ActorId  model.ObjectId
}

type LeaveContentMsg struct {
	ClientId ClientId
	ActorId  model.ObjectId
}

type CommenceDuty struct {
	ClientId ClientId
	ActorId  model.ObjectId
}

type GimmickAccessor struct {
	ClientId ClientId
	ActorId  model.ObjectId
	Id       uint32
	Params   []uint32
}

type SetHP struct {
	ActorId model.ObjectId
	HP      uint32
}

type SetMP struct {
	ActorId model.ObjectId
	MP      uint16
}

// ChatConnected registers a Chat-connection mailbox for an actor; the Chat
// socket is separate from the Zone socket, so it announces itself by the
// actor id its handshake carried rather than by ClientId.
type ChatConnected struct {
	ActorId model.ObjectId
	Mailbox chan FromServer
}

type ChatDisconnected struct{ ActorId model.ObjectId }

// ChatMessageMsg carries one inbound chat line for fan-out (§2). The Chat
// connection submits Party and Say lines only.
type ChatMessageMsg struct {
	ActorId model.ObjectId
	Message ipc.ChatMessage
}

func (NewClient) isToServer()        {}
func (Disconnected) isToServer()     {}
func (ZoneLoaded) isToServer()       {}
func (ChangeZone) isToServer()       {}
func (EnterZoneJump) isToServer()    {}
func (Warp) isToServer()             {}
func (WarpAetheryte) isToServer()    {}
func (MoveToPopRange) isToServer()   {}
func (ActorMoved) isToServer()       {}
func (ActionRequestMsg) isToServer() {}
func (ClientTriggerMsg) isToServer() {}
func (KillMsg) isToServer()          {}
func (LeaveContentMsg) isToServer()  {}
func (CommenceDuty) isToServer()     {}
func (GimmickAccessor) isToServer()  {}
func (SetHP) isToServer()            {}
func (SetMP) isToServer()            {}
func (ChatConnected) isToServer()    {}
func (ChatDisconnected) isToServer() {}
func (ChatMessageMsg) isToServer()   {}

// FromServer is the tagged union of messages the Global server delivers to
// a Connection's mailbox (§4.3, §4.5).
type FromServer interface{ isFromServer() }

type ActorSpawnMsg struct {
	ActorId model.ObjectId
	Spawn   model.CommonSpawn
}

type ActorDespawnMsg struct{ ActorId model.ObjectId }

type ActorMoveMsg struct {
	ActorId     model.ObjectId
	Position    model.Position
	Rotation    uint16
	AnimationId uint16
}

type ActorControlMsg struct{ Payload ipc.ActorControl }

type PacketSegmentMsg struct {
	Raw          []byte
	TargetActor  uint32
}

type NewTasksMsg struct{ Tasks []script.Task }

type ChangeZoneMsg struct {
	ZoneId    uint16
	WeatherId uint16
}

type NewPositionMsg struct {
	Position model.Position
	Rotation uint16
}

type LeaveContentFromServer struct{}

type FinishEventMsg struct{ Id uint32 }

type KillFromServer struct{}

type ActionResultMsg struct{ Payload ipc.ActionResult }

type EffectResultMsg struct{ Payload ipc.EffectResult }

// ChatDeliveryMsg is one chat line fanned out to a Chat connection.
type ChatDeliveryMsg struct{ Payload ipc.ChatMessage }

// UpdateHpMpTpMsg refreshes the owning client's resource bars (§4.6 step 6).
type UpdateHpMpTpMsg struct{ Payload ipc.UpdateHpMpTp }

func (ActorSpawnMsg) isFromServer()          {}
func (ActorDespawnMsg) isFromServer()        {}
func (ActorMoveMsg) isFromServer()           {}
func (ActorControlMsg) isFromServer()        {}
func (PacketSegmentMsg) isFromServer()       {}
func (NewTasksMsg) isFromServer()            {}
func (ChangeZoneMsg) isFromServer()          {}
func (NewPositionMsg) isFromServer()         {}
func (LeaveContentFromServer) isFromServer() {}
func (FinishEventMsg) isFromServer()         {}
func (KillFromServer) isFromServer()         {}
func (ActionResultMsg) isFromServer()        {}
func (EffectResultMsg) isFromServer()        {}
func (ChatDeliveryMsg) isFromServer()        {}
func (UpdateHpMpTpMsg) isFromServer()        {}
