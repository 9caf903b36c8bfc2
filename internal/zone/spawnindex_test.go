package zone

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aetherforge/worldserver/internal/model"
)

func TestSpawnIndexUniquePerObserver(t *testing.T) {
	a := NewSpawnIndexAllocator(4)
	observer := model.ObjectId(1)

	seen := make(map[uint8]bool)
	for actor := model.ObjectId(100); actor < 104; actor++ {
		idx, ok := a.Show(observer, actor)
		require.True(t, ok)
		require.False(t, seen[idx], "index %d handed out twice to the same observer", idx)
		seen[idx] = true
	}
}

func TestSpawnIndexReassignIsIdempotent(t *testing.T) {
	a := NewSpawnIndexAllocator(4)
	observer, actor := model.ObjectId(1), model.ObjectId(100)

	first, ok := a.Show(observer, actor)
	require.True(t, ok)
	second, ok := a.Show(observer, actor)
	require.True(t, ok)
	require.Equal(t, first, second)
}

func TestSpawnIndexOversubscriptionDropsSpawn(t *testing.T) {
	a := NewSpawnIndexAllocator(2)
	observer := model.ObjectId(1)

	_, ok := a.Show(observer, 100)
	require.True(t, ok)
	_, ok = a.Show(observer, 101)
	require.True(t, ok)

	_, ok = a.Show(observer, 102)
	require.False(t, ok, "third spawn must be dropped once the pool is exhausted")
}

func TestSpawnIndexReuseAfterHide(t *testing.T) {
	a := NewSpawnIndexAllocator(1)
	observer := model.ObjectId(1)

	idx, ok := a.Show(observer, 100)
	require.True(t, ok)

	a.Hide(observer, 100)

	reused, ok := a.Show(observer, 101)
	require.True(t, ok)
	require.Equal(t, idx, reused)
}

func TestSpawnIndexPoolsAreIndependentPerObserver(t *testing.T) {
	a := NewSpawnIndexAllocator(1)

	_, ok := a.Show(1, 100)
	require.True(t, ok)

	// A different observer has its own pool, so index 0 is still free there.
	_, ok = a.Show(2, 100)
	require.True(t, ok)
}
