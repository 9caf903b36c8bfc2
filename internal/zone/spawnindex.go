package zone

import "github.com/aetherforge/worldserver/internal/model"

// spawnIndexPool tracks which of [0, cap) indices a single observer has
// handed out to the actors currently visible to it (§4.5: assignment is
// per-observer, not global).
type spawnIndexPool struct {
	assigned map[model.ObjectId]uint8
	free     []uint8
}

func newSpawnIndexPool(capacity uint8) *spawnIndexPool {
	free := make([]uint8, capacity)
	for i := range free {
		// Reverse order, so the lowest free index starts at the back; show
		// scans for the lowest free index wherever it sits.
		free[i] = capacity - 1 - uint8(i)
	}
	return &spawnIndexPool{
		assigned: make(map[model.ObjectId]uint8),
		free:     free,
	}
}

// show assigns actor the lowest free index in this observer's pool. ok is
// false if the pool is exhausted (Oversubscribed, §7: drop the new spawn
// for this observer only).
func (p *spawnIndexPool) show(actor model.ObjectId) (index uint8, ok bool) {
	if idx, already := p.assigned[actor]; already {
		return idx, true
	}
	if len(p.free) == 0 {
		return 0, false
	}
	lowest := len(p.free) - 1
	for i, v := range p.free {
		if v < p.free[lowest] {
			lowest = i
		}
	}
	idx := p.free[lowest]
	p.free = append(p.free[:lowest], p.free[lowest+1:]...)
	p.assigned[actor] = idx
	return idx, true
}

// hide releases actor's index back to the free pool, if it held one.
func (p *spawnIndexPool) hide(actor model.ObjectId) {
	idx, ok := p.assigned[actor]
	if !ok {
		return
	}
	delete(p.assigned, actor)
	p.free = append(p.free, idx)
}

// SpawnIndexAllocator owns one spawnIndexPool per observing connection
// within an instance.
type SpawnIndexAllocator struct {
	capacity uint8
	pools    map[model.ObjectId]*spawnIndexPool
}

// NewSpawnIndexAllocator returns an allocator whose per-observer pools span
// [0, capacity).
func NewSpawnIndexAllocator(capacity uint8) *SpawnIndexAllocator {
	return &SpawnIndexAllocator{capacity: capacity, pools: make(map[model.ObjectId]*spawnIndexPool)}
}

func (a *SpawnIndexAllocator) pool(observer model.ObjectId) *spawnIndexPool {
	p, ok := a.pools[observer]
	if !ok {
		p = newSpawnIndexPool(a.capacity)
		a.pools[observer] = p
	}
	return p
}

// Show assigns actor a spawn index within observer's pool.
func (a *SpawnIndexAllocator) Show(observer, actor model.ObjectId) (index uint8, ok bool) {
	return a.pool(observer).show(actor)
}

// Hide releases actor's spawn index within observer's pool.
func (a *SpawnIndexAllocator) Hide(observer, actor model.ObjectId) {
	a.pool(observer).hide(actor)
}

// DropObserver discards an observer's whole pool, e.g. on disconnect.
func (a *SpawnIndexAllocator) DropObserver(observer model.ObjectId) {
	delete(a.pools, observer)
}
