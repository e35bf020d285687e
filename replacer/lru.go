package replacer

import (
	"container/list"
	"sync"

	"github.com/sirupsen/logrus"

	"pinedb/logging"
)

// LRU implements the Replacer interface using least-recently-used
// ordering: the front of the internal queue is the oldest access, the
// back is the newest. When Evict walks the queue and finds a
// non-evictable id at the head, it removes that id from tracking
// permanently rather than skipping over it; callers must re-register
// such ids via Access or SetEvictable(id, true) to make them eligible
// again.
type LRU struct {
	mu       sync.Mutex
	maxSize  int
	queue    *list.List
	elems    map[int]*list.Element
	evict    map[int]bool
	evicSize int
	log      *logrus.Logger
}

// NewLRU constructs an LRU replacer bounded to maxSize tracked ids
// (the buffer pool's frame count).
func NewLRU(maxSize int, log *logrus.Logger) *LRU {
	return &LRU{
		maxSize: maxSize,
		queue:   list.New(),
		elems:   make(map[int]*list.Element),
		evict:   make(map[int]bool),
		log:     logging.Or(log),
	}
}

// Access records a use of id, moving it to the most-recently-used end
// and marking it evictable.
func (r *LRU) Access(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessLocked(id)
}

func (r *LRU) accessLocked(id int) {
	if elem, ok := r.elems[id]; ok {
		r.queue.Remove(elem)
	} else if r.queue.Len() >= r.maxSize {
		r.log.WithField("frame_id", id).Warn("lru replacer: tracked set at capacity, tracking beyond configured maximum")
	}
	r.elems[id] = r.queue.PushBack(id)
	if !r.evict[id] {
		r.evicSize++
	}
	r.evict[id] = true
}

// Evict returns the least-recently-accessed evictable id, permanently
// discarding any non-evictable ids it passes over along the way.
func (r *LRU) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		front := r.queue.Front()
		if front == nil {
			return 0, false
		}
		id := front.Value.(int)
		if !r.evict[id] {
			r.removeLocked(id)
			continue
		}
		r.removeLocked(id)
		r.log.WithField("frame_id", id).Debug("lru replacer: evicted")
		return id, true
	}
}

// Reset removes id from tracking unconditionally.
func (r *LRU) Reset(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(id)
}

// SetEvictable updates id's evictable bit. If evictable is true and id
// is not tracked, this is equivalent to Access(id).
func (r *LRU) SetEvictable(id int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.elems[id]; !ok {
		if evictable {
			r.accessLocked(id)
		}
		return
	}
	if r.evict[id] != evictable {
		if evictable {
			r.evicSize++
		} else {
			r.evicSize--
		}
		r.evict[id] = evictable
	}
}

// Len returns the number of ids currently marked evictable.
func (r *LRU) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evicSize
}

func (r *LRU) removeLocked(id int) {
	elem, ok := r.elems[id]
	if !ok {
		return
	}
	r.queue.Remove(elem)
	delete(r.elems, id)
	if r.evict[id] {
		r.evicSize--
	}
	delete(r.evict, id)
}
