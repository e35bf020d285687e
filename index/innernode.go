package index

import (
	"encoding/binary"
	"fmt"
	"slices"

	"pinedb/buffer"
)

/*
An inner node stores n ordered separator keys and n+1 child page
pointers. Pointer i leads to the subtree holding keys K such that
keys[i-1] <= K < keys[i] (with keys[-1] and keys[n] treated as -inf/+inf).

Inner page layout (header copied from the CMU db implementation this
structure is modeled on):

	 ---------
	| HEADER  |
	 ---------
	 ------------------------------------------
	| KEY(1) | KEY(2) | ... | KEY(n)           |
	 ------------------------------------------
	 ---------------------------------------------
	| PAGE_ID(1) | PAGE_ID(2) | ... | PAGE_ID(n+1) |
	 ---------------------------------------------
*/

const InnerPageHeaderSize = 8

type innerNode struct {
	pool     *buffer.Pool
	pageID   int32
	keys     []int
	children []int32 // len(children) == len(keys)+1
}

func newInnerNode(p *buffer.Pool) *innerNode {
	pageID := p.NewPage()
	return &innerNode{
		pool:     p,
		pageID:   pageID,
		keys:     make([]int, 0),
		children: make([]int32, 0),
	}
}

func loadInnerNode(p *buffer.Pool, pageID int32) (*innerNode, error) {
	data := p.FetchPage(pageID)
	if data == nil {
		return nil, fmt.Errorf("index: could not fetch inner page %d", pageID)
	}
	defer p.UnpinPage(pageID)

	n := &innerNode{pool: p, pageID: pageID}
	if err := n.fromBytes(data); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *innerNode) isLeaf() bool     { return false }
func (n *innerNode) getPageId() int32 { return n.pageID }
func (n *innerNode) getSize() int     { return len(n.keys) }
func (n *innerNode) getMaxSize() int  { return 4 }

// childFor returns the index into children that should be followed to
// reach key.
func (n *innerNode) childFor(key int) int {
	pos, found := slices.BinarySearch(n.keys, key)
	if found {
		pos++
	}
	return pos
}

// insertChild adds a (key, rightChild) separator pair produced by a
// split one level below. Returns false if the node is already full.
func (n *innerNode) insertChild(key int, rightChild int32) bool {
	if n.getSize() >= n.getMaxSize() {
		return false
	}
	pos, found := slices.BinarySearch(n.keys, key)
	if found {
		return false
	}
	n.keys = slices.Insert(n.keys, pos, key)
	n.children = slices.Insert(n.children, pos+1, rightChild)
	return n.persist()
}

// split moves the upper half of this node's keys/children into a new
// inner node, returning the new node, the separator key pushed to the
// parent (removed from both halves, per standard B+ tree inner splits),
// and whether the split succeeded.
func (n *innerNode) split() (*innerNode, int, bool) {
	right := newInnerNode(n.pool)
	if right.pageID == buffer.InvalidPageID {
		return nil, 0, false
	}

	mid := len(n.keys) / 2
	splitKey := n.keys[mid]

	right.keys = append(right.keys, n.keys[mid+1:]...)
	right.children = append(right.children, n.children[mid+1:]...)

	n.keys = n.keys[:mid]
	n.children = n.children[:mid+1]

	if !right.persist() || !n.persist() {
		return nil, 0, false
	}
	return right, splitKey, true
}

func (n *innerNode) persist() bool {
	ptr := n.pool.FetchPage(n.pageID)
	if ptr == nil {
		return false
	}
	defer n.pool.UnpinPage(n.pageID)

	if err := n.toBytes(ptr); err != nil {
		return false
	}
	return n.pool.SetDirty(n.pageID)
}

func (n *innerNode) toBytes(buf []byte) error {
	if len(buf) < InnerPageHeaderSize {
		return ErrBufferFrameTooSmall
	}
	for i := range buf {
		buf[i] = 0
	}

	binary.BigEndian.PutUint32(buf[0:], 0)
	binary.BigEndian.PutUint32(buf[4:], uint32(len(n.keys)))

	keyOffset := InnerPageHeaderSize
	for i, k := range n.keys {
		binary.BigEndian.PutUint64(buf[keyOffset+KeySize*i:], uint64(int64(k)))
	}
	childOffset := keyOffset + len(n.keys)*KeySize
	for i, c := range n.children {
		binary.BigEndian.PutUint32(buf[childOffset+4*i:], uint32(c))
	}
	return nil
}

func (n *innerNode) fromBytes(data []byte) error {
	if len(data) < InnerPageHeaderSize {
		return fmt.Errorf("index: inner page shorter than its fixed header")
	}
	pageType := binary.BigEndian.Uint32(data[0:4])
	if pageType != 0 {
		return fmt.Errorf("index: page %d is not an inner page", n.pageID)
	}
	count := binary.BigEndian.Uint32(data[4:8])

	keys := make([]int, 0, count)
	keyOffset := InnerPageHeaderSize
	for i := 0; i < int(count); i++ {
		keys = append(keys, int(int64(binary.BigEndian.Uint64(data[keyOffset+KeySize*i:]))))
	}
	childOffset := keyOffset + int(count)*KeySize
	children := make([]int32, 0, count+1)
	for i := 0; i < int(count)+1; i++ {
		children = append(children, int32(binary.BigEndian.Uint32(data[childOffset+4*i:])))
	}

	n.keys = keys
	n.children = children
	return nil
}
