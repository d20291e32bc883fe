package btree

import (
	"sort"

	"coredb/internal/page"
)

// Insert adds (key, value) to the tree. A duplicate key is silently
// ignored and reported as success, per the engine's API semantics.
func (t *Tree) Insert(key int64, value []byte, trxTag uint16) error {
	if len(value) == 0 {
		return page.ErrValueEmpty
	}
	if len(value) > page.MaxValueSize {
		return page.ErrValueTooLarge
	}

	_, _, found, err := t.lookupExact(key)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	root := t.table.RootPage()
	if root == 0 {
		pageNum, err := t.table.AllocPage()
		if err != nil {
			return err
		}
		buf := make([]byte, page.Size)
		l := page.InitLeaf(buf, 0)
		if err := l.InsertRecord(key, value, trxTag); err != nil {
			return err
		}
		if err := t.writePage(pageNum, buf); err != nil {
			return err
		}
		return t.table.SetRootPage(pageNum)
	}

	leafNum, err := t.FindLeaf(key)
	if err != nil {
		return err
	}
	buf, err := t.readPage(leafNum, autoTrx, true)
	if err != nil {
		return err
	}
	l := page.NewLeaf(buf)

	if int(l.NumKeys()) < page.MaxLockableSlots && l.FreeSpace() >= page.RecordSpace(len(value)) {
		if err := l.InsertRecord(key, value, trxTag); err != nil {
			return err
		}
		return t.writePage(leafNum, buf)
	}
	return t.splitLeaf(leafNum, l, key, value, trxTag)
}

// splitLeaf gathers leaf's existing records plus the new one, sorts by
// key, and finds the smallest split point whose left side reaches half
// of the leaf body in bytes, per spec.md's split_leaf algorithm.
func (t *Tree) splitLeaf(leafNum uint64, l page.Leaf, key int64, value []byte, trxTag uint16) error {
	records := l.AllRecords()
	records = append(records, page.Record{Key: key, Value: value, TrxID: trxTag})
	sort.Slice(records, func(i, j int) bool { return records[i].Key < records[j].Key })

	splitStart := len(records) - 1
	cum := 0
	for i, r := range records {
		cum += page.RecordSpace(len(r.Value))
		if cum >= page.Body/2 {
			splitStart = i + 1
			break
		}
	}
	if splitStart >= len(records) {
		splitStart = len(records) - 1
	}

	leftRecords := records[:splitStart]
	rightRecords := records[splitStart:]

	newNum, err := t.table.AllocPage()
	if err != nil {
		return err
	}
	oldNext := l.NextSibling()

	l.Rebuild(leftRecords)
	l.SetNextSibling(newNum)
	if err := t.writePage(leafNum, l.Bytes()); err != nil {
		return err
	}

	newBuf := make([]byte, page.Size)
	nl := page.InitLeaf(newBuf, l.ParentPage())
	nl.Rebuild(rightRecords)
	nl.SetNextSibling(oldNext)
	if err := t.writePage(newNum, newBuf); err != nil {
		return err
	}

	return t.insertIntoParent(leafNum, rightRecords[0].Key, newNum)
}

// insertIntoParent inserts (key, right) into left's parent, creating a
// new root if left was the root, and splitting the parent if it is full.
func (t *Tree) insertIntoParent(left uint64, key int64, right uint64) error {
	lbuf, err := t.readPage(left, 0, false)
	if err != nil {
		return err
	}
	parent := page.NewHeader(lbuf).ParentPage()

	if parent == 0 {
		newRootNum, err := t.table.AllocPage()
		if err != nil {
			return err
		}
		buf := make([]byte, page.Size)
		n := page.InitInternal(buf, 0, left)
		if err := n.InsertBranch(key, right); err != nil {
			return err
		}
		if err := t.writePage(newRootNum, buf); err != nil {
			return err
		}
		if err := t.setParent(left, newRootNum); err != nil {
			return err
		}
		if err := t.setParent(right, newRootNum); err != nil {
			return err
		}
		return t.table.SetRootPage(newRootNum)
	}

	if err := t.setParent(right, parent); err != nil {
		return err
	}
	buf, err := t.readPage(parent, autoTrx, true)
	if err != nil {
		return err
	}
	n := page.NewInternal(buf)
	if int(n.NumKeys()) < page.MaxBranches {
		if err := n.InsertBranch(key, right); err != nil {
			return err
		}
		return t.writePage(parent, buf)
	}
	return t.splitInternal(parent, n, key, right)
}

// splitInternal admits a 249th branch, keeps the first 124 in node,
// promotes entry 124's key to node's parent with entry 124's child as
// the new sibling's leftmost child, and moves entries 125..248 to the
// new sibling.
func (t *Tree) splitInternal(nodeNum uint64, n page.Internal, newKey int64, newRightChild uint64) error {
	branches := append(n.Branches(), page.Branch{Key: newKey, Child: newRightChild})
	sort.Slice(branches, func(i, j int) bool { return branches[i].Key < branches[j].Key })

	leftBranches := branches[:page.InternalRedistributeThreshold]
	promoted := branches[page.InternalRedistributeThreshold]
	rightBranches := branches[page.InternalRedistributeThreshold+1:]

	leftmost := n.LeftmostChild()
	n.RebuildFromSorted(leftmost, leftBranches)
	if err := t.writePage(nodeNum, n.Bytes()); err != nil {
		return err
	}

	newNum, err := t.table.AllocPage()
	if err != nil {
		return err
	}
	newBuf := make([]byte, page.Size)
	newNode := page.InitInternal(newBuf, n.ParentPage(), promoted.Child)
	newNode.RebuildFromSorted(promoted.Child, rightBranches)
	if err := t.writePage(newNum, newBuf); err != nil {
		return err
	}

	if err := t.setParent(promoted.Child, newNum); err != nil {
		return err
	}
	for _, b := range rightBranches {
		if err := t.setParent(b.Child, newNum); err != nil {
			return err
		}
	}

	return t.insertIntoParent(nodeNum, promoted.Key, newNum)
}
