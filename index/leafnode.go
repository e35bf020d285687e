package index

import (
	"encoding/binary"
	"fmt"
	"slices"

	"pinedb/buffer"
)

/*
A leaf node in a B+ tree stores pairs of n keys and n record ids pointing
to the relevant records in the underlying table, plus a pointer to its
right sibling. Every leaf node is serialized onto exactly one page.

Leaf page layout (header copied from the CMU db implementation this
structure is modeled on):

	 ---------
	| HEADER  |
	 ---------
	 ---------------------------------
	| KEY(1) | KEY(2) | ... | KEY(n) |
	 ---------------------------------
	 ---------------------------------
	| RID(1) | RID(2) | ... | RID(n) |
	 ---------------------------------

	Header format (12 bytes total):
	 -----------------------------------------------
	| PageType (4) | KeyCount (4) | RightSibling (4) |
	 -----------------------------------------------
*/

const LeafPageHeaderSize = 12

var ErrBufferFrameTooSmall = fmt.Errorf("index: page smaller than leaf header size")

type leafNode struct {
	pool         *buffer.Pool
	pageID       int32
	keys         []int
	recordIds    []RecordId
	rightSibling int32 // InvalidPageID when absent
}

func newLeafNode(p *buffer.Pool) *leafNode {
	pageID := p.NewPage()
	return &leafNode{
		pool:         p,
		pageID:       pageID,
		keys:         make([]int, 0),
		recordIds:    make([]RecordId, 0),
		rightSibling: buffer.InvalidPageID,
	}
}

func loadLeafNode(p *buffer.Pool, pageID int32) (*leafNode, error) {
	data := p.FetchPage(pageID)
	if data == nil {
		return nil, fmt.Errorf("index: could not fetch leaf page %d", pageID)
	}
	defer p.UnpinPage(pageID)

	l := &leafNode{pool: p, pageID: pageID}
	if err := l.fromBytes(data); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *leafNode) isLeaf() bool     { return true }
func (l *leafNode) getPageId() int32 { return l.pageID }

// getSize returns the number of key/record-id pairs currently stored.
func (l *leafNode) getSize() int { return len(l.keys) }

// getMaxSize bounds a leaf to a small fan-out so splitting logic
// exercises in ordinary tests without needing thousands of keys.
func (l *leafNode) getMaxSize() int { return 4 }

// insert adds (k, rid) in sorted position. Returns false if the leaf is
// full and a caller-driven split is required instead, or if k already
// exists (this tree supports unique keys only).
func (l *leafNode) insert(k int, rid RecordId) bool {
	if l == nil {
		return false
	}
	pos, found := slices.BinarySearch(l.keys, k)
	if found {
		return false
	}
	if l.getSize() >= l.getMaxSize() {
		return false
	}
	l.keys = slices.Insert(l.keys, pos, k)
	l.recordIds = slices.Insert(l.recordIds, pos, rid)
	return l.persist()
}

// get returns the record id associated with key, if present.
func (l *leafNode) get(key int) (RecordId, bool) {
	idx, ok := slices.BinarySearch(l.keys, key)
	if !ok {
		return RecordId{}, false
	}
	return l.recordIds[idx], true
}

// split moves the upper half of this leaf's entries into a new leaf
// node, links the two as siblings, and returns the new node together
// with the separator key that should be pushed into the parent.
func (l *leafNode) split() (*leafNode, int, bool) {
	right := newLeafNode(l.pool)
	if right.pageID == buffer.InvalidPageID {
		return nil, 0, false
	}

	mid := len(l.keys) / 2
	right.keys = append(right.keys, l.keys[mid:]...)
	right.recordIds = append(right.recordIds, l.recordIds[mid:]...)
	right.rightSibling = l.rightSibling

	l.keys = l.keys[:mid]
	l.recordIds = l.recordIds[:mid]
	l.rightSibling = right.pageID

	if !right.persist() || !l.persist() {
		return nil, 0, false
	}
	return right, right.keys[0], true
}

func (l *leafNode) persist() bool {
	ptr := l.pool.FetchPage(l.pageID)
	if ptr == nil {
		return false
	}
	defer l.pool.UnpinPage(l.pageID)

	if err := l.toBytes(ptr); err != nil {
		return false
	}
	return l.pool.SetDirty(l.pageID)
}

func (l *leafNode) toBytes(buf []byte) error {
	if l == nil {
		return ErrNilNode
	}
	if len(buf) < LeafPageHeaderSize {
		return ErrBufferFrameTooSmall
	}
	for i := range buf {
		buf[i] = 0
	}

	binary.BigEndian.PutUint32(buf[0:], 1)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(l.keys)))
	binary.BigEndian.PutUint32(buf[8:], uint32(l.rightSibling))

	keyOffset := LeafPageHeaderSize
	for i, k := range l.keys {
		binary.BigEndian.PutUint64(buf[keyOffset+KeySize*i:], uint64(int64(k)))
	}
	ridOffset := keyOffset + len(l.keys)*KeySize
	for i, r := range l.recordIds {
		binary.BigEndian.PutUint64(buf[ridOffset+RecordIdSize*i:], r.Encode())
	}
	return nil
}

func (l *leafNode) fromBytes(data []byte) error {
	if len(data) < LeafPageHeaderSize {
		return fmt.Errorf("index: leaf page shorter than its fixed header")
	}
	pageType := binary.BigEndian.Uint32(data[0:4])
	if pageType != 1 {
		return fmt.Errorf("index: page %d is not a leaf page", l.pageID)
	}
	count := binary.BigEndian.Uint32(data[4:8])
	rightSibling := int32(binary.BigEndian.Uint32(data[8:12]))

	keys := make([]int, 0, count)
	recordIds := make([]RecordId, 0, count)
	keyOffset := LeafPageHeaderSize
	for i := 0; i < int(count); i++ {
		keys = append(keys, int(int64(binary.BigEndian.Uint64(data[keyOffset+KeySize*i:]))))
	}
	ridOffset := keyOffset + int(count)*KeySize
	for i := 0; i < int(count); i++ {
		recordIds = append(recordIds, DecodeRecordId(binary.BigEndian.Uint64(data[ridOffset+RecordIdSize*i:])))
	}

	l.keys = keys
	l.recordIds = recordIds
	l.rightSibling = rightSibling
	return nil
}
