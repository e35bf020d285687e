package index

import (
	"fmt"

	"pinedb/buffer"
)

/*
A B+Tree is a perfectly balanced search tree in which internal pages
direct the search and leaf pages contain the actual data entries. The
index provides efficient lookups and ordered scans without needing to
search every row in a table.

This implementation supports unique keys, insertion with node
splitting, and point lookups. Every node is a single fixed-size page
fetched through a *buffer.Pool, so the tree never holds more
pages in memory than the pool's frame count allows.
*/

type BPlusTree struct {
	pool       *buffer.Pool
	indexName  string
	rootPageID int32
}

// NewBPlusTree opens indexName rooted at rootPageID, or creates a fresh
// empty leaf root when rootPageID is buffer.InvalidPageID. Any other
// rootPageID is used as given, without checking that it names a page.
func NewBPlusTree(indexName string, pool *buffer.Pool, rootPageID int32) (*BPlusTree, error) {
	t := &BPlusTree{pool: pool, indexName: indexName, rootPageID: rootPageID}

	if rootPageID == buffer.InvalidPageID {
		leaf := newLeafNode(pool)
		if leaf.pageID == buffer.InvalidPageID {
			return nil, fmt.Errorf("index: could not allocate root page for %q", indexName)
		}
		if !leaf.persist() {
			return nil, fmt.Errorf("index: could not persist empty root for %q", indexName)
		}
		t.rootPageID = leaf.pageID
	}
	return t, nil
}

// RootPageID returns the current root page, so callers can persist it
// as index metadata across process restarts.
func (t *BPlusTree) RootPageID() int32 {
	return t.rootPageID
}

func (t *BPlusTree) loadNode(pageID int32) (BPlusTreeNode, error) {
	data := t.pool.FetchPage(pageID)
	if data == nil {
		return nil, fmt.Errorf("index: could not fetch page %d", pageID)
	}
	isLeaf := len(data) >= 4 && data[3] == 1
	t.pool.UnpinPage(pageID)

	if isLeaf {
		return loadLeafNode(t.pool, pageID)
	}
	return loadInnerNode(t.pool, pageID)
}

// Insert adds a (key, recordId) pair. Returns false if the key already
// exists or a page could not be allocated.
func (t *BPlusTree) Insert(k int, rid RecordId) bool {
	root, err := t.loadNode(t.rootPageID)
	if err != nil {
		return false
	}

	sepKey, newChildPage, split, ok := t.insertInto(root, k, rid)
	if !ok {
		return false
	}
	if split {
		newRoot := newInnerNode(t.pool)
		if newRoot.pageID == buffer.InvalidPageID {
			return false
		}
		newRoot.keys = []int{sepKey}
		newRoot.children = []int32{root.getPageId(), newChildPage}
		if !newRoot.persist() {
			return false
		}
		t.rootPageID = newRoot.pageID
	}
	return true
}

// insertInto recursively descends to the leaf that should hold (k, rid),
// inserting it there and propagating a split upward as needed. When
// split is true, sepKey/newChildPage describe the new right sibling
// that the caller must link into its own node (or, at the root, wrap in
// a fresh root).
func (t *BPlusTree) insertInto(node BPlusTreeNode, k int, rid RecordId) (sepKey int, newChildPage int32, split bool, ok bool) {
	switch n := node.(type) {
	case *leafNode:
		if _, exists := n.get(k); exists {
			return 0, 0, false, false
		}
		if n.insert(k, rid) {
			return 0, 0, false, true
		}
		right, pushUp, ok2 := n.split()
		if !ok2 {
			return 0, 0, false, false
		}
		target := n
		if k >= pushUp {
			target = right
		}
		if !target.insert(k, rid) {
			return 0, 0, false, false
		}
		return pushUp, right.pageID, true, true

	case *innerNode:
		idx := n.childFor(k)
		child, err := t.loadNode(n.children[idx])
		if err != nil {
			return 0, 0, false, false
		}
		childSep, childNewPage, childSplit, ok2 := t.insertInto(child, k, rid)
		if !ok2 {
			return 0, 0, false, false
		}
		if !childSplit {
			return 0, 0, false, true
		}
		if n.insertChild(childSep, childNewPage) {
			return 0, 0, false, true
		}
		right, pushUp, ok3 := n.split()
		if !ok3 {
			return 0, 0, false, false
		}
		target := n
		if childSep >= pushUp {
			target = right
		}
		target.insertChild(childSep, childNewPage)
		return pushUp, right.pageID, true, true

	default:
		return 0, 0, false, false
	}
}

// Get returns the record id associated with key, if present.
func (t *BPlusTree) Get(k int) (RecordId, bool) {
	node, err := t.loadNode(t.rootPageID)
	if err != nil {
		return RecordId{}, false
	}

	for {
		switch n := node.(type) {
		case *leafNode:
			return n.get(k)
		case *innerNode:
			idx := n.childFor(k)
			next, err := t.loadNode(n.children[idx])
			if err != nil {
				return RecordId{}, false
			}
			node = next
		default:
			return RecordId{}, false
		}
	}
}

// PrettyPrint recursively renders the tree structure for debugging.
func PrettyPrint(t *BPlusTree, pageID int32, prefix string, isLast bool) {
	connector, childPrefix := "├── ", "│   "
	if isLast {
		connector, childPrefix = "└── ", "    "
	}

	node, err := t.loadNode(pageID)
	if err != nil {
		fmt.Printf("%s%s<error loading page %d: %v>\n", prefix, connector, pageID, err)
		return
	}

	switch n := node.(type) {
	case *innerNode:
		fmt.Printf("%s%sinner(page=%d keys=%v children=%v)\n", prefix, connector, n.pageID, n.keys, n.children)
		for i, child := range n.children {
			PrettyPrint(t, child, prefix+childPrefix, i == len(n.children)-1)
		}
	case *leafNode:
		fmt.Printf("%s%sleaf(page=%d keys=%v sibling=%d)\n", prefix, connector, n.pageID, n.keys, n.rightSibling)
	default:
		fmt.Printf("%s%s<unknown node type>\n", prefix, connector)
	}
}
