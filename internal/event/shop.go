package event

import (
	"github.com/aetherforge/worldserver/internal/script"
)

// shopSceneMain is the scene a gil shop plays on open: the client renders
// the buy/sell window from the parameter block, which carries the player's
// gil and the buyback listing for this shop (§8 scenario 5: "the next
// shop-open surfaces the sold item in the buyback scene parameters").
const shopSceneMain = 0

// GilShopHandler is the Go-native handler for gil shops. Selling is routed
// through the connection's inventory directly (it never needs a scene), so
// this handler's job is the open-scene parameter block and buyback
// repurchase.
type GilShopHandler struct {
	Base
}

func (GilShopHandler) Kind() Kind { return KindGilShop }

// OnTalk opens the shop: scene parameters are
// [shop_entry, gil, buyback_count, (item_id, quantity, price_low)...].
func (GilShopHandler) OnTalk(ctx Context, handlerId uint32) Result {
	inv := ctx.Player.Inventory
	buyback := inv.Buyback[handlerId]

	params := make([]uint32, 0, 3+len(buyback)*3)
	params = append(params, handlerId&0xFFFF, inv.Currency.Gil, uint32(len(buyback)))
	for _, e := range buyback {
		params = append(params, e.ItemId, e.Quantity, e.PriceLow)
	}
	return Result{PlayScene: true, Scene: shopSceneMain, SceneParams: params}
}

// OnYield handles a buyback selection: response is the index into this
// shop's buyback list. The repurchase is expressed as ordinary tasks
// (debit gil, re-add the item) so the connection applies it through the
// same interpreter every script-queued mutation goes through.
func (GilShopHandler) OnYield(ctx Context, handlerId uint32, response uint32) Result {
	inv := ctx.Player.Inventory
	buyback := inv.Buyback[handlerId]
	if int(response) >= len(buyback) {
		return Result{}
	}
	e := buyback[response]
	cost := e.Quantity * e.PriceLow
	if inv.Currency.Gil < cost {
		return Result{}
	}
	inv.Buyback[handlerId] = append(buyback[:response], buyback[response+1:]...)
	return Result{Tasks: []script.Task{
		{Kind: script.TaskModifyCurrency, Id: 0, Amount: -int32(cost)},
		{Kind: script.TaskAddItem, Id: e.ItemId, Quantity: e.Quantity, On: true},
	}}
}
