package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "pinedb_test.db")
}

func TestDiskBackendCreateNewPageIsZeroed(t *testing.T) {
	path := tempDBPath(t)
	pageSize := 4096

	b := NewDiskBackend(path, pageSize)
	id := b.CreateNewPage()
	require.Equal(t, int32(0), id, "disk backend ids begin at 0")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(pageSize), info.Size())

	buf := make([]byte, pageSize)
	require.True(t, b.ReadPage(id, buf))
	require.Equal(t, make([]byte, pageSize), buf)
	require.True(t, b.Close())
}

func TestDiskBackendCreatesMultiplePages(t *testing.T) {
	path := tempDBPath(t)
	pageSize := 4096

	b := NewDiskBackend(path, pageSize)
	p1 := b.CreateNewPage()
	p2 := b.CreateNewPage()
	p3 := b.CreateNewPage()
	require.Equal(t, []int32{0, 1, 2}, []int32{p1, p2, p3})
	require.Equal(t, pageSize, b.PageSize())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(pageSize*3), info.Size())
	require.True(t, b.Close())
}

func TestDiskBackendRoundTrip(t *testing.T) {
	path := tempDBPath(t)
	pageSize := 4096

	b := NewDiskBackend(path, pageSize)
	id := b.CreateNewPage()

	write := make([]byte, pageSize)
	for i := range write {
		write[i] = byte(i % 256)
	}
	require.True(t, b.WritePage(id, write))

	read := make([]byte, pageSize)
	require.True(t, b.ReadPage(id, read))
	require.Equal(t, write, read)
	require.True(t, b.Close())
}

func TestDiskBackendDeleteZeroesInPlace(t *testing.T) {
	path := tempDBPath(t)
	pageSize := 128

	b := NewDiskBackend(path, pageSize)
	p1 := b.CreateNewPage()
	p2 := b.CreateNewPage()

	buf := make([]byte, pageSize)
	for i := range buf {
		buf[i] = 0xAB
	}
	require.True(t, b.WritePage(p1, buf))
	require.True(t, b.WritePage(p2, buf))

	require.True(t, b.DeletePage(p1))

	read := make([]byte, pageSize)
	require.True(t, b.ReadPage(p1, read))
	require.Equal(t, make([]byte, pageSize), read)

	// p2's contents are untouched by deleting p1.
	require.True(t, b.ReadPage(p2, read))
	require.Equal(t, buf, read)
	require.True(t, b.Close())
}

func TestDiskBackendPersistsAcrossSessions(t *testing.T) {
	path := tempDBPath(t)
	pageSize := 4096

	b := NewDiskBackend(path, pageSize)
	p1 := b.CreateNewPage()
	p2 := b.CreateNewPage()

	buf1 := make([]byte, pageSize)
	buf2 := make([]byte, pageSize)
	for i := range buf1 {
		buf1[i] = byte(i % 256)
		buf2[i] = byte((3 * i) % 256)
	}
	require.True(t, b.WritePage(p1, buf1))
	require.True(t, b.WritePage(p2, buf2))
	require.True(t, b.Close())

	reopened := NewDiskBackend(path, pageSize)
	read1 := make([]byte, pageSize)
	read2 := make([]byte, pageSize)
	require.True(t, reopened.ReadPage(p1, read1))
	require.True(t, reopened.ReadPage(p2, read2))
	require.Equal(t, buf1, read1)
	require.Equal(t, buf2, read2)
	require.True(t, reopened.Close())
}

func TestDiskBackendCloseIsIdempotent(t *testing.T) {
	path := tempDBPath(t)
	b := NewDiskBackend(path, 4096)
	require.True(t, b.Close())
	require.True(t, b.Close())
}

func TestDiskBackendNextPageIDResumesFromFileLength(t *testing.T) {
	path := tempDBPath(t)
	pageSize := 256

	b := NewDiskBackend(path, pageSize)
	b.CreateNewPage()
	b.CreateNewPage()
	require.True(t, b.Close())

	reopened := NewDiskBackend(path, pageSize)
	id := reopened.CreateNewPage()
	require.Equal(t, int32(2), id)
	require.True(t, reopened.Close())
}
