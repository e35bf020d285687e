package storage

import (
	"sync"

	"github.com/sirupsen/logrus"

	"pinedb/logging"
)

// MemoryBackend is a transient, map-backed storage backend. Page ids
// begin at 1 and increment — deliberately different from DiskBackend's
// 0-based numbering. Callers that need backend-agnostic code must not
// assume a particular starting id.
type MemoryBackend struct {
	mu         sync.Mutex
	pageSize   int
	nextPageID int32
	pages      map[int32][]byte
	closed     bool
	lastErr    error
	log        *logrus.Logger
}

// Err returns the structured *Error behind the most recent false/-1
// return from this backend, or nil if the last operation succeeded.
func (m *MemoryBackend) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// NewMemoryBackend constructs an in-memory backend with the given page
// size. An optional logger may be supplied; nil uses the package default.
func NewMemoryBackend(pageSize int, log *logrus.Logger) *MemoryBackend {
	return &MemoryBackend{
		pageSize: pageSize,
		pages:    make(map[int32][]byte),
		log:      logging.Or(log),
	}
}

// CreateNewPage inserts a new zero vector at the next page id (1-based)
// and returns it.
func (m *MemoryBackend) CreateNewPage() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Warn("memory backend: create on closed backend")
		m.lastErr = newError(AlreadyClosed, nil)
		return InvalidPageID
	}

	m.nextPageID++
	id := m.nextPageID
	m.pages[id] = make([]byte, m.pageSize)
	m.lastErr = nil
	m.log.WithField("page_id", id).Info("memory backend: created new page")
	return id
}

// ReadPage copies the stored page's bytes into buf. Returns false if id
// is not a known page.
func (m *MemoryBackend) ReadPage(id int32, buf []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Warn("memory backend: read on closed backend")
		m.lastErr = newError(AlreadyClosed, nil)
		return false
	}

	data, ok := m.pages[id]
	if !ok {
		m.lastErr = newError(NoSuchPage, nil)
		return false
	}
	copy(buf[:m.pageSize], data)
	m.lastErr = nil
	return true
}

// WritePage overwrites the stored page's bytes. Returns false if id is
// not a known page.
func (m *MemoryBackend) WritePage(id int32, buf []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Warn("memory backend: write on closed backend")
		m.lastErr = newError(AlreadyClosed, nil)
		return false
	}

	data, ok := m.pages[id]
	if !ok {
		m.lastErr = newError(NoSuchPage, nil)
		return false
	}
	copy(data, buf[:m.pageSize])
	m.lastErr = nil
	return true
}

// DeletePage removes the mapping entry for id. Returns false if id was
// not present.
func (m *MemoryBackend) DeletePage(id int32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.pages[id]; !ok {
		m.lastErr = newError(NoSuchPage, nil)
		return false
	}
	delete(m.pages, id)
	m.lastErr = nil
	return true
}

// PageSize returns the constant page size of this backend.
func (m *MemoryBackend) PageSize() int {
	return m.pageSize
}

// Close clears the backing map. Idempotent.
func (m *MemoryBackend) Close() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		m.log.Warn("memory backend: close called on already-closed backend")
		return true
	}
	m.closed = true
	m.pages = nil
	return true
}
