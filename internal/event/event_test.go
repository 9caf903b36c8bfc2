package event

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/model"
	"github.com/aetherforge/worldserver/internal/script"
)

const gilShopId = 262176 // 0x40020, the §8 scenario 5 shop

func newTestContext() Context {
	pd := model.NewPlayerData(1, 0xBEEF, 0)
	pd.Inventory.Currency.Gil = 1000
	return Context{Player: pd}
}

func TestKindOfUsesUpperBits(t *testing.T) {
	require.Equal(t, KindGilShop, KindOf(gilShopId))
	require.Equal(t, KindQuest, KindOf(0x10001))
	require.Equal(t, KindWarp, KindOf(0x20005))
	require.Equal(t, KindDefaultTalk, KindOf(0x30002))
	require.Equal(t, KindCustomTalk, KindOf(0x50002))
	require.Equal(t, KindTopicSelect, KindOf(0x60001))
	require.Equal(t, KindDefaultTalk, KindOf(0xFF0000), "unknown kind bits fall back to talk")
}

func TestGilShopOpenSurfacesBuyback(t *testing.T) {
	ctx := newTestContext()
	ctx.Player.Inventory.PushBuyback(gilShopId, model.BuybackEntry{ItemId: 4551, Quantity: 10, PriceLow: 5})

	res := GilShopHandler{}.OnTalk(ctx, gilShopId)
	require.True(t, res.PlayScene)
	require.Equal(t, uint16(shopSceneMain), res.Scene)

	// [shop_entry, gil, buyback_count, (item, qty, price)...]
	require.Equal(t, []uint32{0x20, 1000, 1, 4551, 10, 5}, res.SceneParams)
}

func TestGilShopOpenWithEmptyBuyback(t *testing.T) {
	res := GilShopHandler{}.OnTalk(newTestContext(), gilShopId)
	require.Equal(t, []uint32{0x20, 1000, 0}, res.SceneParams)
}

func TestGilShopBuybackRepurchase(t *testing.T) {
	ctx := newTestContext()
	ctx.Player.Inventory.PushBuyback(gilShopId, model.BuybackEntry{ItemId: 4551, Quantity: 10, PriceLow: 5})

	res := GilShopHandler{}.OnYield(ctx, gilShopId, 0)
	require.Len(t, res.Tasks, 2)
	require.Equal(t, script.TaskModifyCurrency, res.Tasks[0].Kind)
	require.Equal(t, int32(-50), res.Tasks[0].Amount)
	require.Equal(t, script.TaskAddItem, res.Tasks[1].Kind)
	require.Equal(t, uint32(4551), res.Tasks[1].Id)
	require.Empty(t, ctx.Player.Inventory.Buyback[gilShopId], "repurchased entry leaves the list")
}

func TestGilShopBuybackRejectsUnaffordable(t *testing.T) {
	ctx := newTestContext()
	ctx.Player.Inventory.Currency.Gil = 10
	ctx.Player.Inventory.PushBuyback(gilShopId, model.BuybackEntry{ItemId: 4551, Quantity: 10, PriceLow: 5})

	res := GilShopHandler{}.OnYield(ctx, gilShopId, 0)
	require.Empty(t, res.Tasks)
	require.Len(t, ctx.Player.Inventory.Buyback[gilShopId], 1, "entry stays when the player cannot pay")
}

func TestGilShopBuybackRejectsBadIndex(t *testing.T) {
	res := GilShopHandler{}.OnYield(newTestContext(), gilShopId, 7)
	require.Empty(t, res.Tasks)
}

func TestWarpHandlerForwardsEntryId(t *testing.T) {
	res := WarpHandler{}.OnTalk(newTestContext(), 0x20005)
	require.Len(t, res.Tasks, 1)
	require.Equal(t, script.TaskWarp, res.Tasks[0].Kind)
	require.Equal(t, uint32(5), res.Tasks[0].Id)
}

func TestRegistryDefaultsByKind(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())

	require.Equal(t, KindGilShop, r.Resolve(gilShopId).Kind())
	require.Equal(t, KindWarp, r.Resolve(0x20005).Kind())
	require.Equal(t, KindQuest, r.Resolve(0x10001).Kind())
}

func TestRegistryExplicitRegistrationWins(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())
	r.Register(gilShopId, WarpHandler{})
	require.Equal(t, KindWarp, r.Resolve(gilShopId).Kind())
}

func TestRegistryCachesDefaults(t *testing.T) {
	r := NewRegistry(nil, zap.NewNop())
	first := r.Resolve(0x10001)
	second := r.Resolve(0x10001)
	require.Same(t, first.(*ScriptHandler), second.(*ScriptHandler))
}

func TestBaseHooksAreNoops(t *testing.T) {
	var b Base
	ctx := newTestContext()
	require.Equal(t, Result{}, b.OnTalk(ctx, 1))
	require.Equal(t, Result{}, b.OnYield(ctx, 1, 0))
	require.Equal(t, Result{}, b.OnReturn(ctx, 1, 0, nil))
	require.Equal(t, Result{}, b.OnEnterTerritory(ctx, 1, 132))
	require.Equal(t, Result{}, b.OnWithinRange(ctx, 1, 2))
	require.Equal(t, Result{}, b.OnOutsideRange(ctx, 1, 2))
	require.Equal(t, Result{}, b.OnGimmickAccessor(ctx, 1, nil))
}
