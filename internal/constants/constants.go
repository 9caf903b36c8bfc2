// Package constants holds fixed protocol and gameplay sizes shared across
// packages. Values mirror the wire layout described by the zone protocol;
// changing any of them changes the wire format and must be done in lockstep
// with the client.
package constants

import "time"

// Packet framing sizes (§4.1).
const (
	PacketHeaderSize  = 40 // outer packet header
	SegmentHeaderSize = 16 // per-segment prelude
	IPCHeaderSize     = 16 // IPC segment header, nested inside a segment body

	MaxPacketSize = 0x10000 // OversizedPacket threshold
	MinPacketSize = PacketHeaderSize
)

// Blowfish handshake (Lobby connection only, §4.1).
const (
	BlowfishKeyBits  = 56
	BlowfishKeyBytes = 7
	BlowfishBlock    = 8
)

// LobbyAckMagic is the first 4 bytes of the SecurityInitialize acknowledgement,
// decrypted with the freshly derived Blowfish key (§8 scenario 1).
const LobbyAckMagic uint32 = 0xE0003C2A

// ClassJobArraySize is the number of classjob slots in PlayerData.levels/exp (§3).
const ClassJobArraySize = 43

// Bitmask widths for UnlockData (§3), in bytes. Widths are load-bearing: the
// client misreads every subsequent PlayerSetup field if these change.
const (
	AetheryteBitmaskSize     = 30
	MountBitmaskSize         = 22
	MinionBitmaskSize        = 60
	OrchestrionBitmaskSize   = 96
	TripleTriadBitmaskSize   = 30
	OrnamentBitmaskSize      = 20
	GlassesStyleBitmaskSize  = 8
	ChocoboTaxiBitmaskSize   = 8
	BuddyEquipBitmaskSize    = 4
	CaughtFishBitmaskSize    = 50
	CaughtSpearfishBitmaskSize = 20
	AdventureBitmaskSize     = 60
	AetherCurrentBitmaskSize = 40
	QuestBitmaskSize         = 580
	InstanceContentBitmaskSize = 130
	CutsceneBitmaskSize      = 40
	ActiveHelpBitmaskSize    = 60
	GeneralUnlockBitmaskSize = 20
)

// CommonSpawn fixed-size fields (§3).
const (
	EquipModelSlots  = 10
	WeaponModelSlots = 2
	CustomizeSize    = 26
	StatusEffectSlots = 30
	MaxSpawnIndex    = 99 // spawn index domain is [0, MaxSpawnIndex)
)

// Inventory layout (§3).
const (
	MainPageCount   = 4
	MainPageSlots   = 35
	RingArmourySlots = 50
	ArmouryPageCount = 9
	ArmouryPageSlots = 35
	MainHandArmourySlots = 50
	EquippedSlotCount = 13
	BuybackCap        = 10
)

// Timers (§3, §4.3, §5).
const (
	DeadFadeOutTime  = 8 * time.Second
	KeepAliveInterval = 30 * time.Second
	KeepAliveGrace    = 30 * time.Second
	InitHandshakeTimeout = 5 * time.Second
	DeadConnectionTimeout = 5 * time.Minute
	DefaultTickInterval = 200 * time.Millisecond
	EventActionCastDelay = 2 * time.Second
)

// ConnectionType identifies which wire dialect a socket speaks (§4.1).
type ConnectionType uint16

const (
	ConnectionLobby ConnectionType = 1
	ConnectionZone  ConnectionType = 2
	ConnectionChat  ConnectionType = 3
)

// Magic bytes per connection type, checked against the outer packet header.
var ConnectionMagic = map[ConnectionType][16]byte{
	ConnectionLobby: {0x41, 0x61, 0x15, 0x07, 0xB1, 0x8A, 0x81, 0x7A, 0xFF, 0x32, 0x0D, 0x05, 0x73, 0x00, 0x00, 0x00},
	ConnectionZone:  {0x41, 0x61, 0x15, 0x07, 0xB1, 0x8A, 0x81, 0x7A, 0xFF, 0x32, 0x0D, 0x05, 0x73, 0x00, 0x00, 0x01},
	ConnectionChat:  {0x41, 0x61, 0x15, 0x07, 0xB1, 0x8A, 0x81, 0x7A, 0xFF, 0x32, 0x0D, 0x05, 0x73, 0x00, 0x00, 0x02},
}

// ScriptReentryDepthLimit bounds the FinishEvent re-entry chain (§4.9).
const ScriptReentryDepthLimit = 8

// MaxObservedActors is the client's simultaneous actor display cap (§4.5).
const MaxObservedActors = MaxSpawnIndex

// ActorNameCapacity is the fixed, NUL-padded width of an actor's display
// name inside a CommonSpawn payload.
const ActorNameCapacity = 32

// ClientTriggerParamCount is the number of u32 parameters ClientTrigger
// carries alongside its command id.
const ClientTriggerParamCount = 4

// ChatMessageMaxBody bounds the textual body of ChatMessage/ShopLogMessage;
// longer text is truncated before encoding.
const ChatMessageMaxBody = 1024

// ActorControlParamCount is the number of u32 parameters shared by the
// ActorControl/ActorControlSelf/ActorControlTarget wire layout; 5*4 bytes
// matches the 20-byte parameter block every category pads to.
const ActorControlParamCount = 5

// HomepointWarpId is the warp id ReturnToHomepoint submits (§4.9). The
// Global server's warp handler uses warp ids directly as zone ids, so this
// id moves the player to zone 0; no per-player home is looked up.
const HomepointWarpId = 0
