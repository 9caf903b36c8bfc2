package ipc

import "github.com/aetherforge/worldserver/internal/constants"

// ChatChannel identifies which channel a ChatMessage belongs to.
type ChatChannel uint8

const (
	ChatSay ChatChannel = iota
	ChatParty
	ChatShout
	ChatTell
	ChatSystem
)

// ChatMessage is a textual chat event, sent in both directions (§4.2).
// Its wire length is instance-dependent: declared_size(ChatMessage) is
// always len(Encode()) for that specific message, never a fixed constant.
type ChatMessage struct {
	SenderId uint32 // an ObjectId on the wire
	Channel  ChatChannel
	Body     string
}

func (ChatMessage) Opcode() Opcode { return OpChatMessage }

func (p ChatMessage) Encode() []byte {
	body := []byte(p.Body)
	if len(body) > constants.ChatMessageMaxBody {
		body = body[:constants.ChatMessageMaxBody]
	}
	w := NewWriter(4 + 1 + 3 + 2 + len(body))
	w.U32(p.SenderId)
	w.U8(uint8(p.Channel))
	w.Pad(3)
	w.U16(uint16(len(body)))
	w.Raw(body)
	return w.Bytes()
}

func DecodeChatMessage(body []byte) (ChatMessage, error) {
	r := NewReader(body)
	var p ChatMessage
	var err error
	if p.SenderId, err = r.U32(); err != nil {
		return ChatMessage{}, err
	}
	ch, err := r.U8()
	if err != nil {
		return ChatMessage{}, err
	}
	p.Channel = ChatChannel(ch)
	if _, err = r.Bytes(3); err != nil {
		return ChatMessage{}, err
	}
	n, err := r.U16()
	if err != nil {
		return ChatMessage{}, err
	}
	text, err := r.Bytes(int(n))
	if err != nil {
		return ChatMessage{}, err
	}
	p.Body = string(text)
	return p, nil
}

// ShopLogType distinguishes ShopLogMessage's event kind (§8 scenario 5).
type ShopLogType uint8

const (
	ShopLogItemSold ShopLogType = iota
	ShopLogItemBought
	ShopLogItemBoughtBack
)

// ShopLogMessage reports a completed shop transaction to the client (§8 scenario 5).
type ShopLogMessage struct {
	Type     ShopLogType
	Quantity uint32
	Total    uint32
}

func (ShopLogMessage) Opcode() Opcode { return OpShopLogMessage }

const shopLogMessageSize = 1 + 3 + 4 + 4

func (p ShopLogMessage) Encode() []byte {
	w := NewWriter(shopLogMessageSize)
	w.U8(uint8(p.Type))
	w.Pad(3)
	w.U32(p.Quantity)
	w.U32(p.Total)
	return w.Bytes()
}

func DecodeShopLogMessage(body []byte) (ShopLogMessage, error) {
	r := NewReader(body)
	var p ShopLogMessage
	typ, err := r.U8()
	if err != nil {
		return ShopLogMessage{}, err
	}
	p.Type = ShopLogType(typ)
	if _, err = r.Bytes(3); err != nil {
		return ShopLogMessage{}, err
	}
	if p.Quantity, err = r.U32(); err != nil {
		return ShopLogMessage{}, err
	}
	if p.Total, err = r.U32(); err != nil {
		return ShopLogMessage{}, err
	}
	return p, nil
}
