package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/constants"
)

func TestInventoryAddRemoveRoundTrip(t *testing.T) {
	cases := []struct {
		itemId    uint32
		stackSize uint32
		qty       uint32
	}{
		{itemId: 1, stackSize: 1, qty: 5},
		{itemId: 2, stackSize: 99, qty: 250},
		{itemId: 3, stackSize: 999, qty: 999},
	}

	for _, tc := range cases {
		inv := NewInventory()
		idx := inv.AddInNextFreeSlot(tc.itemId, tc.qty, tc.stackSize)
		require.NotEqual(t, -1, idx, "item %d should fit", tc.itemId)

		for _, slot := range inv.mainBag() {
			require.LessOrEqualf(t, slot.Quantity, tc.stackSize, "slot exceeds stack size for item %d", tc.itemId)
		}

		removed := inv.RemoveFromBag(tc.itemId, tc.qty)
		require.Equal(t, tc.qty, removed)

		for _, slot := range inv.mainBag() {
			require.True(t, slot.Empty(), "inventory should be back to empty state")
		}
	}
}

func TestInventorySellPushesBuybackAndCreditsGil(t *testing.T) {
	inv := NewInventory()
	idx := inv.AddInNextFreeSlot(5000, 10, 99)
	require.Equal(t, 0, idx)
	inv.mainBag()[idx].PriceLow = 5

	sold, total, err := inv.Sell(ContainerMainBag, uint16(idx), 262176)
	require.NoError(t, err)
	require.Equal(t, uint32(10), sold.Quantity)
	require.Equal(t, uint32(50), total)
	require.Equal(t, uint32(50), inv.Currency.Gil)
	require.True(t, inv.SlotAt(idx).Empty())

	list := inv.Buyback[262176]
	require.Len(t, list, 1)
	require.Equal(t, uint32(5000), list[0].ItemId)
	require.Equal(t, uint32(10), list[0].Quantity)

	_, _, err = inv.Sell(ContainerMainBag, uint16(idx), 262176)
	require.Error(t, err, "re-selling an emptied slot must fail")
}

func TestInventorySellUnsupportedContainer(t *testing.T) {
	inv := NewInventory()
	inv.AddInNextFreeSlot(5000, 1, 99)
	_, _, err := inv.Sell(1, 0, 262176)
	require.Error(t, err)
}

func TestInventoryNoRoomReturnsNegativeOne(t *testing.T) {
	inv := NewInventory()
	totalSlots := uint32(constants.MainPageCount * constants.MainPageSlots)
	// Fill every slot with a distinct item so nothing can stack.
	for i := uint32(0); i < totalSlots; i++ {
		idx := inv.AddInNextFreeSlot(100+i, 1, 1)
		require.NotEqual(t, -1, idx)
	}
	idx := inv.AddInNextFreeSlot(999, 1, 1)
	require.Equal(t, -1, idx)
}

func TestPushBuybackCapsAtTenFIFO(t *testing.T) {
	inv := NewInventory()
	for i := uint32(0); i < 15; i++ {
		inv.PushBuyback(1, BuybackEntry{ItemId: i, Quantity: 1, PriceLow: 5})
	}
	list := inv.Buyback[1]
	require.Len(t, list, constants.BuybackCap)
	// FIFO eviction: oldest 5 entries (ids 0..4) should be gone, newest kept.
	require.Equal(t, uint32(5), list[0].ItemId)
	require.Equal(t, uint32(14), list[len(list)-1].ItemId)
}
