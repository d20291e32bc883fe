// Package btree is the index manager: a disk-resident B+ tree with
// slotted leaf pages storing variable-length values, layered on top of
// internal/bufmgr and internal/dsm. It holds no lock-manager state of
// its own; callers that need row-lock serialization supply a Locker.
package btree

import (
	"errors"

	"coredb/internal/bufmgr"
	"coredb/internal/dsm"
	"coredb/internal/page"
)

// ErrKeyNotFound is returned by Update when the requested key is
// absent.
var ErrKeyNotFound = errors.New("btree: key not found")

// ErrDeadlock is returned by FindByKey/Update when the supplied Locker
// detects a deadlock and aborts the caller's lock request.
var ErrDeadlock = errors.New("btree: lock acquisition deadlocked")

// autoTrx tags buffer-pool pins taken for the duration of a single
// structural mutation (split, coalesce, redistribute) that is not
// itself attributable to a user transaction. Pins on pages that stay
// in the tree are released (via Apply, or Release when the page is left
// unchanged) before the call returns; the pin on a right sibling that a
// coalesce frees is not released.
const autoTrx int64 = -1

// Locker is the row-lock interface the index manager calls into for
// find_by_key and update's S/X-lock acquisition. Implemented by
// internal/txn.Manager.
type Locker interface {
	AcquireS(table *dsm.Table, pageNum uint64, slot int, trx int64) bool
	AcquireX(table *dsm.Table, pageNum uint64, slot int, trx int64) bool
}

// Tree is a B+ tree index over one table file.
type Tree struct {
	pool  *bufmgr.Pool
	table *dsm.Table
}

// Open returns a Tree over table, using pool for all page access.
func Open(pool *bufmgr.Pool, table *dsm.Table) *Tree {
	return &Tree{pool: pool, table: table}
}

func (t *Tree) readPage(pageNum uint64, trx int64, pin bool) ([]byte, error) {
	buf := make([]byte, page.Size)
	if _, err := t.pool.Load(t.table, pageNum, buf, trx, pin); err != nil {
		return nil, err
	}
	return buf, nil
}

func (t *Tree) writePage(pageNum uint64, buf []byte) error {
	return t.pool.Apply(t.table, pageNum, buf)
}

func (t *Tree) setParent(pageNum, newParent uint64) error {
	buf, err := t.readPage(pageNum, autoTrx, true)
	if err != nil {
		return err
	}
	page.NewHeader(buf).SetParentPage(newParent)
	return t.writePage(pageNum, buf)
}

// lookupExact descends to key's leaf and returns its slot position if
// present. found is false if the tree is empty (leaf and pos are then
// zero) or the key is absent (leaf and pos then name where key would
// go).
func (t *Tree) lookupExact(key int64) (leafNum uint64, pos int, found bool, err error) {
	leafNum, err = t.FindLeaf(key)
	if err != nil || leafNum == 0 {
		return 0, 0, false, err
	}
	buf, err := t.readPage(leafNum, 0, false)
	if err != nil {
		return 0, 0, false, err
	}
	l := page.NewLeaf(buf)
	pos = l.FindPosition(key)
	if pos >= int(l.NumKeys()) {
		return leafNum, pos, false, nil
	}
	k, _, _ := l.GetRecord(pos)
	return leafNum, pos, k == key, nil
}
