// Package buffer implements the buffer pool: a bounded, in-memory view
// over a storage.Backend with pin/dirty/flush semantics and pluggable
// eviction via a replacer.Replacer.
package buffer

import (
	"sync"

	"github.com/sirupsen/logrus"

	"pinedb/logging"
	"pinedb/replacer"
	"pinedb/storage"
)

// InvalidPageID mirrors storage.InvalidPageID for callers that only
// import buffer.
const InvalidPageID = storage.InvalidPageID

// Pool owns a contiguous buffer of NumFrames*PageSize bytes partitioned
// into equal-size frames, and mediates all access to the backend's
// pages through that buffer.
type Pool struct {
	mu sync.Mutex

	backend   storage.Backend
	replacer  replacer.Replacer
	numFrames int
	pageSize  int

	buf         []byte
	pageToFrame map[int32]int
	frameToPage map[int]int32
	dirty       []bool
	freeFrames  []int

	lastErr error
	log     *logrus.Logger
}

// Err returns the structured *Error recorded by the most recent pool
// operation that set one: NoFreeFrame when NewPage or FetchPage could
// not obtain a frame, NotMapped when SetDirty, FlushPage, PinPage or
// UnpinPage named an unmapped page or when DeletePage's backend call
// failed. Those operations reset it to nil on success. A backend
// failure inside NewPage (create) or FetchPage (read) leaves it
// unchanged, so Err does not report those failures.
func (p *Pool) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Option configures optional aspects of a Pool.
type Option func(*poolOptions)

type poolOptions struct {
	logger   *logrus.Logger
	replacer replacer.Replacer
}

// WithLogger injects a logger, replacing the default package logger.
func WithLogger(l *logrus.Logger) Option {
	return func(o *poolOptions) { o.logger = l }
}

// WithReplacer overrides the default LRU replacer with another
// implementation of replacer.Replacer. The pool holds only the
// capability reference and never inspects the replacer's internals.
func WithReplacer(r replacer.Replacer) Option {
	return func(o *poolOptions) { o.replacer = r }
}

// NewPool constructs a buffer pool of numFrames frames over backend.
// The pool never shrinks or grows numFrames after construction.
func NewPool(backend storage.Backend, numFrames int, opts ...Option) *Pool {
	o := poolOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.Or(o.logger)

	pageSize := backend.PageSize()
	free := make([]int, numFrames)
	for i := range free {
		free[i] = i
	}

	rep := o.replacer
	if rep == nil {
		rep = replacer.NewLRU(numFrames, log)
	}

	return &Pool{
		backend:     backend,
		replacer:    rep,
		numFrames:   numFrames,
		pageSize:    pageSize,
		buf:         make([]byte, numFrames*pageSize),
		pageToFrame: make(map[int32]int),
		frameToPage: make(map[int]int32),
		dirty:       make([]bool, numFrames),
		freeFrames:  free,
		log:         log,
	}
}

func (p *Pool) framePtr(f int) []byte {
	return p.buf[f*p.pageSize : (f+1)*p.pageSize]
}

// NewPage allocates a fresh page, installs it in a free (or evicted)
// frame zero-filled, and returns its id, or InvalidPageID if no frame
// could be made available.
func (p *Pool) NewPage() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.takeFrameLocked()
	if !ok {
		p.lastErr = newErr(NoFreeFrame)
		p.log.Warn("buffer pool: no free frame available for new page")
		return InvalidPageID
	}

	pageID := p.backend.CreateNewPage()
	if pageID == storage.InvalidPageID {
		p.freeFrames = append(p.freeFrames, frameID)
		p.log.Error("buffer pool: backend could not create new page")
		return InvalidPageID
	}

	ptr := p.framePtr(frameID)
	for i := range ptr {
		ptr[i] = 0
	}
	p.installLocked(pageID, frameID)
	p.lastErr = nil
	p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
		Info("buffer pool: created new page")
	return pageID
}

// FetchPage returns the frame's byte slice for pageID, reading the page
// through the backend on a cache miss. It returns nil if eviction is
// impossible or the backend read fails.
func (p *Pool) FetchPage(pageID int32) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.pageToFrame[pageID]; ok {
		p.replacer.Access(frameID)
		p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
			Debug("buffer pool: fetch hit")
		return p.framePtr(frameID)
	}

	frameID, ok := p.takeFrameLocked()
	if !ok {
		p.lastErr = newErr(NoFreeFrame)
		p.log.WithField("page_id", pageID).Warn("buffer pool: no free frame for fetch")
		return nil
	}

	ptr := p.framePtr(frameID)
	if !p.backend.ReadPage(pageID, ptr) {
		p.freeFrames = append(p.freeFrames, frameID)
		p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
			Warn("buffer pool: backend read failed on fetch")
		return nil
	}

	p.installLocked(pageID, frameID)
	p.lastErr = nil
	p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
		Debug("buffer pool: fetch miss, loaded from backend")
	return ptr
}

// DeletePage removes pageID's in-memory mapping (if any) and the
// backend's copy. Buffer-side cleanup happens even if the backend call
// fails.
func (p *Pool) DeletePage(pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if frameID, ok := p.pageToFrame[pageID]; ok {
		delete(p.pageToFrame, pageID)
		delete(p.frameToPage, frameID)
		p.dirty[frameID] = false
		p.replacer.Reset(frameID)
		p.freeFrames = append(p.freeFrames, frameID)
	}
	ok := p.backend.DeletePage(pageID)
	if !ok {
		p.lastErr = newErr(NotMapped)
	} else {
		p.lastErr = nil
	}
	return ok
}

// FlushPage writes pageID's frame through the backend if dirty.
// Returns false if pageID is not mapped.
func (p *Pool) FlushPage(pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked(pageID)
}

func (p *Pool) flushLocked(pageID int32) bool {
	frameID, ok := p.pageToFrame[pageID]
	if !ok {
		p.lastErr = newErr(NotMapped)
		p.log.WithField("page_id", pageID).Debug("buffer pool: flush of unmapped page")
		return false
	}
	p.lastErr = nil
	if !p.dirty[frameID] {
		return true
	}
	p.dirty[frameID] = false
	p.replacer.Access(frameID)
	ok = p.backend.WritePage(pageID, p.framePtr(frameID))
	if !ok {
		p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
			Error("buffer pool: flush write failed")
	}
	return ok
}

// SetDirty marks pageID's frame dirty. This is the only way a frame
// becomes dirty; mutating the returned byte slice alone does not.
func (p *Pool) SetDirty(pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageToFrame[pageID]
	if !ok {
		p.lastErr = newErr(NotMapped)
		return false
	}
	p.lastErr = nil
	p.dirty[frameID] = true
	return true
}

// PinPage marks pageID's frame non-evictable. Returns false if pageID
// is not mapped.
func (p *Pool) PinPage(pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageToFrame[pageID]
	if !ok {
		p.lastErr = newErr(NotMapped)
		return false
	}
	p.lastErr = nil
	p.replacer.SetEvictable(frameID, false)
	return true
}

// UnpinPage marks pageID's frame evictable again. Returns false if
// pageID is not mapped.
func (p *Pool) UnpinPage(pageID int32) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	frameID, ok := p.pageToFrame[pageID]
	if !ok {
		p.lastErr = newErr(NotMapped)
		return false
	}
	p.lastErr = nil
	p.replacer.SetEvictable(frameID, true)
	return true
}

// FlushAll flushes every dirty mapped frame. There is no ordering
// guarantee among pages; a write failure is logged but does not abort
// the iteration.
func (p *Pool) FlushAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for pageID := range p.pageToFrame {
		p.flushLocked(pageID)
	}
}

// NumFrames returns the fixed frame count this pool was constructed
// with.
func (p *Pool) NumFrames() int {
	return p.numFrames
}

// installLocked records a fresh page->frame mapping and records an
// access in the replacer. Caller holds p.mu.
func (p *Pool) installLocked(pageID int32, frameID int) {
	p.pageToFrame[pageID] = frameID
	p.frameToPage[frameID] = pageID
	p.dirty[frameID] = false
	p.replacer.Access(frameID)
}

// takeFrameLocked returns a free frame, running the eviction protocol
// if none is free. Caller holds p.mu.
func (p *Pool) takeFrameLocked() (int, bool) {
	if n := len(p.freeFrames); n > 0 {
		f := p.freeFrames[n-1]
		p.freeFrames = p.freeFrames[:n-1]
		return f, true
	}
	return p.evictLocked()
}

// evictLocked asks the replacer for a victim, writes it through the
// backend if dirty, and returns the now free frame to the caller. A
// write-back failure is logged and absorbed rather than propagated:
// the frame is still reclaimed, since refusing to evict would stall
// every future allocation on one bad page.
func (p *Pool) evictLocked() (int, bool) {
	frameID, ok := p.replacer.Evict()
	if !ok {
		p.log.Warn("buffer pool: eviction requested but no evictable frame exists")
		return 0, false
	}

	pageID, mapped := p.frameToPage[frameID]
	if mapped && p.dirty[frameID] {
		p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
			Info("buffer pool: evicting dirty frame, writing through")
		if !p.backend.WritePage(pageID, p.framePtr(frameID)) {
			p.log.WithFields(logrus.Fields{"page_id": pageID, "frame_id": frameID}).
				Warn("buffer pool: eviction write-back failed, proceeding anyway")
		}
		p.dirty[frameID] = false
	}

	if mapped {
		delete(p.pageToFrame, pageID)
		delete(p.frameToPage, frameID)
	}
	return frameID, true
}
