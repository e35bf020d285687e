package index

import (
	"testing"

	"github.com/stretchr/testify/require"

	"pinedb/buffer"
	"pinedb/storage"
)

func newTestTree(t *testing.T) *BPlusTree {
	t.Helper()
	backend := storage.NewMemoryBackend(256, nil)
	pool := buffer.NewPool(backend, 16)
	tree, err := NewBPlusTree("primary", pool, buffer.InvalidPageID)
	require.NoError(t, err)
	return tree
}

func TestBPlusTreeInsertAndGet(t *testing.T) {
	tree := newTestTree(t)

	for i := 0; i < 20; i++ {
		require.True(t, tree.Insert(i, RecordId{Page: i, Slot: 0}), "insert %d", i)
	}

	for i := 0; i < 20; i++ {
		rid, ok := tree.Get(i)
		require.True(t, ok, "get %d", i)
		require.Equal(t, i, rid.Page)
	}
}

func TestBPlusTreeGetMissingKey(t *testing.T) {
	tree := newTestTree(t)
	require.True(t, tree.Insert(1, RecordId{Page: 1}))

	_, ok := tree.Get(999)
	require.False(t, ok)
}

func TestBPlusTreeRejectsDuplicateKey(t *testing.T) {
	tree := newTestTree(t)
	require.True(t, tree.Insert(5, RecordId{Page: 5}))
	require.False(t, tree.Insert(5, RecordId{Page: 50}))

	rid, ok := tree.Get(5)
	require.True(t, ok)
	require.Equal(t, 5, rid.Page)
}

func TestRecordIdRoundTripsThroughEncoding(t *testing.T) {
	rid := RecordId{Page: 1234, Slot: 7}
	require.Equal(t, rid, DecodeRecordId(rid.Encode()))
}
