package model

import (
	"fmt"

	"github.com/aetherforge/worldserver/internal/constants"
)

// ItemSlot is a single inventory slot (§3). An empty slot is quantity == 0.
type ItemSlot struct {
	ItemId    uint32
	Quantity  uint32
	Condition uint16
	StackSize uint32
	ItemLevel uint16
	PriceLow  uint32
}

// Empty reports whether the slot holds no item.
func (s ItemSlot) Empty() bool { return s.Quantity == 0 }

// EquippedSlotName is one of the 13 fixed equipped-gear slots (§3).
type EquippedSlotName uint8

const (
	EquipMainHand EquippedSlotName = iota
	EquipOffHand
	EquipHead
	EquipBody
	EquipHands
	EquipWaist
	EquipLegs
	EquipFeet
	EquipEarring
	EquipNecklace
	EquipBracelet
	EquipRingLeft
	EquipRingRight
)

// Currency holds the player's currency bag (§3).
type Currency struct {
	Gil    uint32
	Tokens map[uint32]uint32
}

// BuybackEntry is one FIFO slot in a per-shop buyback list (§8 scenario 5).
type BuybackEntry struct {
	ItemId   uint32
	Quantity uint32
	PriceLow uint32
}

// Inventory composes the typed storages a player owns (§3): four 35-slot
// main pages (iterated as one logical bag), one 50-slot ring armoury, nine
// 35-slot armoury pages, a 50-slot main-hand armoury, an equipped set, and a
// currency bag. Buyback lists are keyed per shop handler id.
type Inventory struct {
	MainPages     [constants.MainPageCount][constants.MainPageSlots]ItemSlot
	RingArmoury   [constants.RingArmourySlots]ItemSlot
	ArmouryPages  [constants.ArmouryPageCount][constants.ArmouryPageSlots]ItemSlot
	MainHandArmoury [constants.MainHandArmourySlots]ItemSlot
	Equipped      [constants.EquippedSlotCount]ItemSlot
	Currency      Currency
	Buyback       map[uint32][]BuybackEntry // shop handler id -> FIFO list, capped at BuybackCap
	ItemSequence  uint32                    // monotonic, bumped on every authoritative edit (§5 ordering guarantee 5)
}

// NewInventory returns a zero-value inventory with its maps initialized.
func NewInventory() *Inventory {
	return &Inventory{
		Currency: Currency{Tokens: make(map[uint32]uint32)},
		Buyback:  make(map[uint32][]BuybackEntry),
	}
}

// mainBag returns the four main pages as one logical slice of slot pointers,
// in page order, for the "iterated as one logical bag" invariant (§3).
func (inv *Inventory) mainBag() []*ItemSlot {
	out := make([]*ItemSlot, 0, constants.MainPageCount*constants.MainPageSlots)
	for p := range inv.MainPages {
		for i := range inv.MainPages[p] {
			out = append(out, &inv.MainPages[p][i])
		}
	}
	return out
}

// SlotAt returns a copy of the main bag's logical slot at index i, the same
// indexing AddInNextFreeSlot reports. Used by callers that need to mirror a
// slot's post-edit contents back onto the wire (§8 scenario 5).
func (inv *Inventory) SlotAt(i int) ItemSlot {
	bag := inv.mainBag()
	if i < 0 || i >= len(bag) {
		return ItemSlot{}
	}
	return *bag[i]
}

// AddInNextFreeSlot adds qty of an item into the first available slot of the
// main bag, stacking onto an existing partial stack first, then falling back
// to the first empty slot. Returns the slot index within the logical bag, or
// -1 if no room. No slot is ever left holding more than stackSize (§8).
func (inv *Inventory) AddInNextFreeSlot(itemId uint32, qty uint32, stackSize uint32) int {
	if stackSize == 0 {
		stackSize = 1
	}
	bag := inv.mainBag()

	remaining := qty
	firstTouched := -1
	// First pass: top up existing partial stacks of the same item.
	for i, slot := range bag {
		if remaining == 0 {
			break
		}
		if slot.Empty() || slot.ItemId != itemId || slot.Quantity >= stackSize {
			continue
		}
		room := stackSize - slot.Quantity
		add := remaining
		if add > room {
			add = room
		}
		slot.Quantity += add
		remaining -= add
		if firstTouched == -1 {
			firstTouched = i
		}
	}
	// Second pass: fill empty slots with whatever remains, one stack per slot.
	for i, slot := range bag {
		if remaining == 0 {
			break
		}
		if !slot.Empty() {
			continue
		}
		add := remaining
		if add > stackSize {
			add = stackSize
		}
		slot.ItemId = itemId
		slot.Quantity = add
		slot.StackSize = stackSize
		remaining -= add
		if firstTouched == -1 {
			firstTouched = i
		}
	}
	inv.ItemSequence++
	if remaining > 0 {
		return -1 // no room for the whole request; caller decides how to handle partial adds
	}
	return firstTouched
}

// RemoveFromBag removes qty of itemId from the main bag, starting from the
// first slot holding it, returning the quantity actually removed.
func (inv *Inventory) RemoveFromBag(itemId uint32, qty uint32) uint32 {
	bag := inv.mainBag()
	remaining := qty
	for _, slot := range bag {
		if remaining == 0 {
			break
		}
		if slot.Empty() || slot.ItemId != itemId {
			continue
		}
		take := remaining
		if take > slot.Quantity {
			take = slot.Quantity
		}
		slot.Quantity -= take
		remaining -= take
		if slot.Quantity == 0 {
			*slot = ItemSlot{}
		}
	}
	inv.ItemSequence++
	return qty - remaining
}

// ContainerMainBag identifies the four-page main bag in a Container field
// (§8 scenario 5 names only this container for shop sell).
const ContainerMainBag uint8 = 0

// Sell clears slotIndex of the main bag and returns its prior contents plus
// the gil total it's worth (quantity * price_low), pushing a buyback entry
// for shopId so a later shop-open can surface it (§8 scenario 5). Only
// ContainerMainBag is supported; any other container is rejected since the
// spec names no other sellable storage.
func (inv *Inventory) Sell(container uint8, slotIndex uint16, shopId uint32) (ItemSlot, uint32, error) {
	if container != ContainerMainBag {
		return ItemSlot{}, 0, fmt.Errorf("model: unsupported sell container %d", container)
	}
	bag := inv.mainBag()
	i := int(slotIndex)
	if i < 0 || i >= len(bag) {
		return ItemSlot{}, 0, fmt.Errorf("model: sell slot %d out of range", slotIndex)
	}
	slot := bag[i]
	if slot.Empty() {
		return ItemSlot{}, 0, fmt.Errorf("model: sell slot %d is empty", slotIndex)
	}
	sold := *slot
	total := sold.Quantity * sold.PriceLow
	*slot = ItemSlot{}
	inv.ItemSequence++
	inv.Currency.Gil += total
	inv.PushBuyback(shopId, BuybackEntry{ItemId: sold.ItemId, Quantity: sold.Quantity, PriceLow: sold.PriceLow})
	return sold, total, nil
}

// PushBuyback appends a sold item to the shop's buyback list, evicting the
// oldest entry once the list reaches BuybackCap (§8 scenario 5).
func (inv *Inventory) PushBuyback(shopId uint32, entry BuybackEntry) {
	list := inv.Buyback[shopId]
	list = append(list, entry)
	if len(list) > constants.BuybackCap {
		list = list[len(list)-constants.BuybackCap:]
	}
	inv.Buyback[shopId] = list
}

// EquipSlotForCategory returns the fixed equip-category index an item
// occupies. equipCategory is supplied by the game-data collaborator
// (item sheet lookup); this function only encodes the fixed mapping.
func EquipSlotForCategory(equipCategory uint8) (EquippedSlotName, error) {
	if equipCategory > uint8(EquipRingRight) {
		return 0, fmt.Errorf("unknown equip category %d", equipCategory)
	}
	return EquippedSlotName(equipCategory), nil
}
