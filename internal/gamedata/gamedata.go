// Package gamedata defines the external collaborators the core treats as
// out of scope (§14 Non-goals): the game-data sheet reader, item/equip
// lookups, and cast-time tables a real deployment loads from the client's
// archive. Everything here is a seam; Store's only implementation in this
// module is the in-memory Fake, which tests use and cmd/worldserver wires in
// at boot.
package gamedata

import (
	"context"

	"github.com/aetherforge/worldserver/internal/model"
)

// ItemInfo is the subset of an item sheet row the core consults.
type ItemInfo struct {
	StackSize    uint32
	EquipCategory uint8
	PriceLow     uint32
}

// ActionInfo is the subset of an action sheet row the cast-time lookup and
// action resolution need.
type ActionInfo struct {
	CastTimeCs   uint32 // centiseconds; duration = CastTimeCs * 10ms
	ScriptName   string
}

// ItemActionInfo describes an item's on-use dispatch (§4.6 "Item" kind).
type ItemActionInfo struct {
	ActionType     uint16
	ActionData     uint32
	AdditionalData uint32
}

// NpcSpawnInfo is one row of a zone's NPC spawn table: which base NPC to
// materialize, where, and with what resources.
type NpcSpawnInfo struct {
	BaseId   uint32
	SubKind  uint8
	Name     string
	Level    uint8
	HP       uint32
	MP       uint16
	Position model.Position
	Rotation float32
}

// Store is the read-only game-data collaborator. A production deployment
// backs it with the client's own data archive; this module never implements
// that reader, only the seam.
type Store interface {
	Action(ctx context.Context, actionKey uint32) (ActionInfo, bool)
	Item(ctx context.Context, itemId uint32) (ItemInfo, bool)
	ItemAction(ctx context.Context, itemId uint32) (ItemActionInfo, bool)
	Weather(ctx context.Context, zoneId uint16) (uint16, bool)
	NpcSpawns(ctx context.Context, zoneId uint16) []NpcSpawnInfo
}

// Fake is a small in-memory Store for tests and local boot: no file I/O,
// deterministic content seeded by the caller.
type Fake struct {
	Actions     map[uint32]ActionInfo
	Items       map[uint32]ItemInfo
	ItemActions map[uint32]ItemActionInfo
	Weathers    map[uint16]uint16
	Spawns      map[uint16][]NpcSpawnInfo
}

// NewFake returns an empty Fake ready for test setup to populate.
func NewFake() *Fake {
	return &Fake{
		Actions:     make(map[uint32]ActionInfo),
		Items:       make(map[uint32]ItemInfo),
		ItemActions: make(map[uint32]ItemActionInfo),
		Weathers:    make(map[uint16]uint16),
		Spawns:      make(map[uint16][]NpcSpawnInfo),
	}
}

func (f *Fake) Action(_ context.Context, actionKey uint32) (ActionInfo, bool) {
	info, ok := f.Actions[actionKey]
	return info, ok
}

func (f *Fake) Item(_ context.Context, itemId uint32) (ItemInfo, bool) {
	info, ok := f.Items[itemId]
	return info, ok
}

func (f *Fake) ItemAction(_ context.Context, itemId uint32) (ItemActionInfo, bool) {
	info, ok := f.ItemActions[itemId]
	return info, ok
}

func (f *Fake) Weather(_ context.Context, zoneId uint16) (uint16, bool) {
	w, ok := f.Weathers[zoneId]
	return w, ok
}

func (f *Fake) NpcSpawns(_ context.Context, zoneId uint16) []NpcSpawnInfo {
	return f.Spawns[zoneId]
}
