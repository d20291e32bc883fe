package btree

import "coredb/internal/page"

// FindLeaf descends from the table's root to the leaf that would
// contain key, following the largest-branch-key <= key rule at each
// internal page. Returns 0 if the tree is empty.
func (t *Tree) FindLeaf(key int64) (uint64, error) {
	root := t.table.RootPage()
	if root == 0 {
		return 0, nil
	}
	cur := root
	for {
		buf, err := t.readPage(cur, 0, false)
		if err != nil {
			return 0, err
		}
		h := page.NewHeader(buf)
		if h.IsLeaf() {
			return cur, nil
		}
		cur = page.NewInternal(buf).FindChild(key)
	}
}

// FindByKey looks up key and, if trx is non-zero and locker non-nil,
// acquires an S-lock on the owning slot before returning the value.
func (t *Tree) FindByKey(key int64, trx int64, locker Locker) ([]byte, bool, error) {
	leafNum, pos, found, err := t.lookupExact(key)
	if err != nil || !found {
		return nil, false, err
	}

	if trx != 0 && locker != nil {
		if !locker.AcquireS(t.table, leafNum, pos, trx) {
			return nil, false, ErrDeadlock
		}
	}

	buf, err := t.readPage(leafNum, 0, false)
	if err != nil {
		return nil, false, err
	}
	l := page.NewLeaf(buf)
	_, v, _ := l.GetRecord(pos)
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}
