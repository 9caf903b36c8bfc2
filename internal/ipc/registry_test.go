package ipc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/model"
)

// roundTrip asserts parse(serialize(p)) == p and, for fixed-size opcodes,
// len(serialize(p)) == size_of(opcode(p)).
func roundTrip[T Payload](t *testing.T, p T) T {
	t.Helper()
	encoded := p.Encode()
	if declared, ok := SizeOf(p.Opcode()); ok {
		require.EqualValues(t, declared, len(encoded), "declared size mismatch for opcode 0x%04X", uint16(p.Opcode()))
	}
	decoded, err := Parse(p.Opcode(), encoded)
	require.NoError(t, err)
	got, ok := decoded.(T)
	require.True(t, ok)
	require.Equal(t, p, got)
	return got
}

func TestInitMessagesRoundTrip(t *testing.T) {
	roundTrip(t, InitRequest{ContentId: 0xC0FFEE, Seed: 42})
	roundTrip(t, InitResponse{ActorId: 1, ContentId: 0xBEEF})
	roundTrip(t, InitZone{ZoneId: 132, WeatherId: 2, ObfuscationSeed1: 7, ObfuscationSeed2: 9, ActiveFestivalIds: [4]uint16{1, 2, 3, 4}})
}

func TestSpawnRoundTrip(t *testing.T) {
	common := model.CommonSpawn{
		HPCurr: 100, HPMax: 100,
		MPCurr: 50, MPMax: 50,
		ClassJobId: 1,
		Level:      10,
		Kind:       model.KindPlayer,
		Position:   model.Position{X: 1, Y: 2, Z: 3},
		Rotation:   1.5,
		SpawnIndex: 4,
		Mode:       model.ModeNormal,
		Name:       "Test Actor",
	}
	common.StatusEffects[0] = model.StatusEffect{EffectId: 1, Param: 2, Duration: 3.5, SourceId: 1}

	roundTrip(t, NewPlayerSpawn(1, common))
	roundTrip(t, NewNpcSpawn(2, common))
}

func TestActorControlVariantsRoundTrip(t *testing.T) {
	roundTrip(t, NewActorControl(CategorySetMode, 1, 2))
	roundTrip(t, NewActorControlSelf(CategoryCancelCast))
	roundTrip(t, NewActorControlTarget(CategoryGainEffect, 99, 10, 20, 30))
}

func TestActionRoundTrip(t *testing.T) {
	roundTrip(t, ActionRequest{ActionKey: 9, TargetId: 1, Kind: ActionNormal})

	var result ActionResult
	result.ActionId = 9
	result.Effects[0] = EffectEntry{Kind: EffectDamage, Amount: 100}
	result.CasterId = 1
	result.TargetId = 1
	roundTrip(t, result)

	var effect EffectResult
	effect.TargetId = 1
	effect.Effects[0] = EffectEntry{Kind: EffectDamage, Amount: 100}
	effect.HPCurr = 900
	roundTrip(t, effect)

	roundTrip(t, UpdateHpMpTp{ActorId: 1, HP: 900, MP: 50, TP: 1000})
}

func TestMovementRoundTrip(t *testing.T) {
	roundTrip(t, Warp{ActorId: 1, ZoneId: 132, Position: model.Position{X: 1, Y: 2, Z: 3}, Rotation: 10})
	roundTrip(t, ActorMove{ActorId: 1, Position: model.Position{X: 1, Y: 2, Z: 3}, Rotation: 10, AnimationId: 2})
}

func TestInventoryMessagesRoundTrip(t *testing.T) {
	roundTrip(t, UpdateInventorySlot{Container: 0, SlotIndex: 3, ItemId: 5000, Quantity: 1, Sequence: 1})
	roundTrip(t, InventoryTransaction{Op: InventoryOpDiscard, Container: 0, SlotIndex: 3, ItemId: 5000, Quantity: 10, Sequence: 2})
	roundTrip(t, InventoryActionAck{Sequence: 2, Accepted: true})
}

func TestClientTriggerRoundTrip(t *testing.T) {
	roundTrip(t, ClientTrigger{CommandId: TriggerGimmickAccessor, Params: [4]uint32{17, 1, 0, 0}})
}

func TestChatMessagesRoundTrip(t *testing.T) {
	roundTrip(t, ChatMessage{SenderId: 1, Channel: ChatSay, Body: "hello world"})
	roundTrip(t, ShopLogMessage{Type: ShopLogItemSold, Quantity: 10, Total: 50})
}

func TestKeepAliveRoundTrip(t *testing.T) {
	roundTrip(t, KeepAliveRequest{Id: 1, Timestamp: 1000})
	roundTrip(t, KeepAliveResponse{Id: 1, Timestamp: 1000})
}

func TestPlayerSetupRoundTrip(t *testing.T) {
	pd := model.NewPlayerData(1, 0xBEEF, 42)
	pd.Levels[0] = 10
	pd.ZoneId = 132
	pd.HPCurr, pd.HPMax = 1000, 1000
	model.SetBit(pd.Unlocks.Aetherytes[:], 3)

	setup := FromPlayerData(pd)
	roundTrip(t, setup)
}

func TestParseUnknownOpcodeIsNonFatal(t *testing.T) {
	_, err := Parse(Opcode(0xFFFF), nil)
	require.Error(t, err)
}
