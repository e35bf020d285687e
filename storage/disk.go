package storage

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"pinedb/logging"
)

// DiskBackend persists pages contiguously in a single file: page N lives
// at byte offset N*PageSize, with no header and no metadata. The file
// length is always a multiple of PageSize after a successful
// CreateNewPage.
type DiskBackend struct {
	mu         sync.Mutex
	path       string
	file       *os.File
	pageSize   int
	nextPageID int32
	closed     bool
	lastErr    error
	log        *logrus.Logger
}

// Err returns the structured *Error behind the most recent false/-1
// return from this backend, or nil if the last operation succeeded.
// It is not reset to nil on success of an operation that doesn't set
// it; callers that want a fresh read should check it immediately after
// the call whose outcome they care about.
func (d *DiskBackend) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// DiskOption configures optional, non-core capabilities of a DiskBackend,
// such as sync durability and direct I/O, layered on top of the backend's
// required contract.
type DiskOption func(*diskOptions)

type diskOptions struct {
	sync     bool
	directIO bool
	logger   *logrus.Logger
}

// WithSync opens the backing file with O_SYNC so every write is flushed
// to stable storage before returning.
func WithSync() DiskOption {
	return func(o *diskOptions) { o.sync = true }
}

// WithDirectIO requests direct I/O where the platform supports it. It is
// best-effort: platforms without the capability silently ignore it.
func WithDirectIO() DiskOption {
	return func(o *diskOptions) { o.directIO = true }
}

// WithLogger injects a logger, replacing the default package logger.
func WithLogger(l *logrus.Logger) DiskOption {
	return func(o *diskOptions) { o.logger = l }
}

// NewDiskBackend opens path create-or-existing, read/write, and derives
// the next page id from the current file length divided by pageSize. A
// construction failure is fatal: it panics, since there is no valid
// zero-value backend to return and the caller cannot proceed without one.
func NewDiskBackend(path string, pageSize int, opts ...DiskOption) *DiskBackend {
	o := diskOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	log := logging.Or(o.logger)

	flags := os.O_CREATE | os.O_RDWR
	if o.sync {
		flags |= os.O_SYNC
	}
	applyDirectIO(&flags, o.directIO)

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		log.WithFields(logrus.Fields{"path": path, "error": err}).
			Error("disk backend: could not open database file")
		panic(wrap(IoOpenFailed, err, "open "+path))
	}

	info, err := f.Stat()
	if err != nil {
		log.WithFields(logrus.Fields{"path": path, "error": err}).
			Error("disk backend: could not stat database file")
		panic(wrap(IoOpenFailed, err, "stat "+path))
	}

	next := int32(info.Size() / int64(pageSize))
	log.WithFields(logrus.Fields{"path": path, "page_size": pageSize, "next_page_id": next}).
		Info("disk backend: opened")

	return &DiskBackend{
		path:       path,
		file:       f,
		pageSize:   pageSize,
		nextPageID: next,
		log:        log,
	}
}

// CreateNewPage appends a zero-filled page to the file and returns its
// id, computed as the end offset divided by PageSize before the write.
func (d *DiskBackend) CreateNewPage() int32 {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn("disk backend: create on closed backend")
		d.lastErr = newError(AlreadyClosed, nil)
		return InvalidPageID
	}

	off, err := d.file.Seek(0, io.SeekEnd)
	if err != nil {
		d.log.WithError(err).Error("disk backend: seek to end failed")
		d.lastErr = wrap(IoSeekFailed, err, "seek to end")
		return InvalidPageID
	}

	id := int32(off / int64(d.pageSize))
	buf := make([]byte, d.pageSize)
	n, err := d.file.Write(buf)
	if err != nil || n != d.pageSize {
		d.log.WithFields(logrus.Fields{"page_id": id, "error": err}).
			Error("disk backend: could not write new zero page")
		d.lastErr = wrap(IoWriteFailed, err, "write new zero page")
		return InvalidPageID
	}

	d.nextPageID = id + 1
	d.lastErr = nil
	d.log.WithField("page_id", id).Info("disk backend: created new page")
	return id
}

// ReadPage copies PageSize bytes of page id into buf.
func (d *DiskBackend) ReadPage(id int32, buf []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn("disk backend: read on closed backend")
		d.lastErr = newError(AlreadyClosed, nil)
		return false
	}

	off := int64(id) * int64(d.pageSize)
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		d.log.WithFields(logrus.Fields{"page_id": id, "error": err}).
			Error("disk backend: seek failed")
		d.lastErr = wrap(IoSeekFailed, err, "seek to page offset")
		return false
	}

	n, err := readFull(d.file, buf[:d.pageSize])
	if err != nil {
		d.log.WithFields(logrus.Fields{"page_id": id, "error": err}).
			Error("disk backend: read failed")
		d.lastErr = wrap(IoReadFailed, err, "read page")
		return false
	}
	if n != d.pageSize {
		d.log.WithFields(logrus.Fields{"page_id": id, "bytes_read": n}).
			Error("disk backend: short read")
		d.lastErr = newError(IoShortRead, nil)
		return false
	}
	d.lastErr = nil
	return true
}

// WritePage overwrites page id with PageSize bytes from buf, ensuring a
// full write; short writes are reported, not retried.
func (d *DiskBackend) WritePage(id int32, buf []byte) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn("disk backend: write on closed backend")
		d.lastErr = newError(AlreadyClosed, nil)
		return false
	}

	off := int64(id) * int64(d.pageSize)
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		d.log.WithFields(logrus.Fields{"page_id": id, "error": err}).
			Error("disk backend: seek failed")
		d.lastErr = wrap(IoSeekFailed, err, "seek to page offset")
		return false
	}

	n, err := d.file.Write(buf[:d.pageSize])
	if err != nil || n != d.pageSize {
		d.log.WithFields(logrus.Fields{"page_id": id, "bytes_written": n, "error": err}).
			Error("disk backend: short or failed write")
		if err != nil {
			d.lastErr = wrap(IoWriteFailed, err, "write page")
		} else {
			d.lastErr = newError(IoShortWrite, nil)
		}
		return false
	}
	d.lastErr = nil
	return true
}

// DeletePage overwrites the PageSize bytes at id's offset with zeros.
// There is no free-list reuse; the space is retained in the file.
func (d *DiskBackend) DeletePage(id int32) bool {
	zero := make([]byte, d.pageSize)
	return d.WritePage(id, zero)
}

// PageSize returns the constant page size of this backend.
func (d *DiskBackend) PageSize() int {
	return d.pageSize
}

// Close closes the file handle. Idempotent: a second call returns true
// but logs a warning.
func (d *DiskBackend) Close() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		d.log.Warn("disk backend: close called on already-closed backend")
		return true
	}
	d.closed = true
	if err := d.file.Close(); err != nil {
		d.log.WithError(err).Error("disk backend: close failed")
		return false
	}
	return true
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err == io.EOF {
			return total, nil
		}
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, nil
		}
	}
	return total, nil
}
