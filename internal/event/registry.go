package event

import (
	"sync"

	"go.uber.org/zap"

	"github.com/aetherforge/worldserver/internal/script"
)

// Registry resolves handler ids to Handler values. Explicit registrations
// win; an unregistered id falls back to a default built from its kind bits
// (Go-native for shops and warps, script-backed otherwise), so content can
// be added as data plus a Lua file without touching Go code.
type Registry struct {
	mu       sync.RWMutex
	handlers map[uint32]Handler
	host     *script.Host
	log      *zap.Logger
}

// NewRegistry builds a Registry whose script-backed fallbacks dispatch
// through host.
func NewRegistry(host *script.Host, log *zap.Logger) *Registry {
	return &Registry{
		handlers: make(map[uint32]Handler),
		host:     host,
		log:      log,
	}
}

// Register binds h to handlerId, replacing any previous binding.
func (r *Registry) Register(handlerId uint32, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[handlerId] = h
}

// Resolve returns the handler bound to handlerId, building and caching a
// kind-appropriate default if none was registered.
func (r *Registry) Resolve(handlerId uint32) Handler {
	r.mu.RLock()
	h, ok := r.handlers[handlerId]
	r.mu.RUnlock()
	if ok {
		return h
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok = r.handlers[handlerId]; ok {
		return h
	}
	h = r.defaultFor(handlerId)
	r.handlers[handlerId] = h
	return h
}

func (r *Registry) defaultFor(handlerId uint32) Handler {
	switch KindOf(handlerId) {
	case KindGilShop:
		return GilShopHandler{}
	case KindWarp:
		return WarpHandler{}
	default:
		return NewScriptHandler(KindOf(handlerId), defaultScriptName(handlerId), r.host, r.log)
	}
}
