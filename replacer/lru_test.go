package replacer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUEvictsInAccessOrder(t *testing.T) {
	r := NewLRU(3, nil)
	r.Access(0)
	r.Access(1)
	r.Access(2)

	id, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 0, id)

	id, ok = r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, id)

	id, ok = r.Evict()
	require.True(t, ok)
	require.Equal(t, 2, id)

	_, ok = r.Evict()
	require.False(t, ok)
}

func TestLRUNonEvictableIsSkippedAndDiscardedPermanently(t *testing.T) {
	r := NewLRU(3, nil)
	r.Access(0)
	r.Access(1)
	r.Access(2)
	r.SetEvictable(0, false)
	r.SetEvictable(1, false)
	r.SetEvictable(2, false)

	_, ok := r.Evict()
	require.False(t, ok, "all frames are non-evictable")

	// Re-accessing restores eligibility.
	r.Access(0)
	r.Access(1)
	r.Access(2)

	id, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 0, id)
	id, ok = r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, id)
	id, ok = r.Evict()
	require.True(t, ok)
	require.Equal(t, 2, id)
}

func TestLRUSetEvictablePartialMix(t *testing.T) {
	r := NewLRU(3, nil)
	r.Access(0)
	r.Access(1)
	r.Access(2)
	r.SetEvictable(0, false)
	r.SetEvictable(1, false)

	id, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 2, id)

	r.SetEvictable(0, true)
	r.SetEvictable(1, true)

	id, ok = r.Evict()
	require.True(t, ok)
	require.Equal(t, 0, id)
	id, ok = r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, id)
}

func TestLRUResetRemovesUnconditionally(t *testing.T) {
	r := NewLRU(3, nil)
	r.Access(0)
	r.Access(1)
	r.Reset(0)

	id, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, id)
	_, ok = r.Evict()
	require.False(t, ok)
}

func TestLRULenTracksEvictableCount(t *testing.T) {
	r := NewLRU(7, nil)
	for i := 1; i <= 6; i++ {
		r.Access(i)
	}
	require.Equal(t, 6, r.Len())

	r.SetEvictable(1, true)
	r.SetEvictable(2, true)
	r.SetEvictable(3, true)
	r.SetEvictable(4, true)
	r.SetEvictable(5, true)
	r.SetEvictable(6, false)
	require.Equal(t, 5, r.Len())

	r.Access(1)
	require.Equal(t, 5, r.Len())
}

func TestLRUAccessOnAlreadyTrackedMovesToBack(t *testing.T) {
	r := NewLRU(3, nil)
	r.Access(0)
	r.Access(1)
	r.Access(0)

	id, ok := r.Evict()
	require.True(t, ok)
	require.Equal(t, 1, id, "re-accessed id 0 moved to the back")
}
