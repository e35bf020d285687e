package storage

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryBackendPageIDsStartAtOne(t *testing.T) {
	b := NewMemoryBackend(128, nil)
	p1 := b.CreateNewPage()
	p2 := b.CreateNewPage()
	require.Equal(t, int32(1), p1)
	require.Equal(t, int32(2), p2)
}

func TestMemoryBackendFreshPagesAreZero(t *testing.T) {
	b := NewMemoryBackend(128, nil)
	id := b.CreateNewPage()

	buf := make([]byte, 128)
	for i := range buf {
		buf[i] = 0xFF
	}
	require.True(t, b.ReadPage(id, buf))
	require.Equal(t, make([]byte, 128), buf)
}

func TestMemoryBackendRoundTrip(t *testing.T) {
	b := NewMemoryBackend(128, nil)
	id := b.CreateNewPage()

	write := make([]byte, 128)
	for i := range write {
		write[i] = byte(i)
	}
	require.True(t, b.WritePage(id, write))

	read := make([]byte, 128)
	require.True(t, b.ReadPage(id, read))
	require.Equal(t, write, read)
}

func TestMemoryBackendReadUnknownPageFails(t *testing.T) {
	b := NewMemoryBackend(128, nil)
	buf := make([]byte, 128)
	require.False(t, b.ReadPage(999, buf))
}

func TestMemoryBackendDeleteIsIdempotentFalseOnSecondCall(t *testing.T) {
	b := NewMemoryBackend(128, nil)
	id := b.CreateNewPage()

	require.True(t, b.DeletePage(id))
	require.False(t, b.DeletePage(id))

	buf := make([]byte, 128)
	require.False(t, b.ReadPage(id, buf))
}

func TestMemoryBackendDeleteUnknownPageFails(t *testing.T) {
	b := NewMemoryBackend(128, nil)
	require.False(t, b.DeletePage(9999))
}
