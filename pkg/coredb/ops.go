package coredb

import (
	"errors"

	"coredb/internal/btree"
	"coredb/internal/dsm"
)

// Insert adds (key, value) to table. A duplicate key is treated as
// success, per the engine's semantics.
func (db *DB) Insert(table int, key int64, value []byte) error {
	h, err := db.handle(table)
	if err != nil {
		return err
	}
	return h.tree.Insert(key, value, 0)
}

// Find looks up key in table. trx may be 0 for an unlocked, autocommit
// read; a non-zero trx acquires an S-lock on the owning slot first.
func (db *DB) Find(table int, key int64, trx int64) ([]byte, error) {
	h, err := db.handle(table)
	if err != nil {
		return nil, err
	}
	value, found, err := h.tree.FindByKey(key, trx, db.txns)
	if err != nil {
		return nil, db.translateLockErr(err)
	}
	if !found {
		return nil, ErrKeyNotFound
	}
	return value, nil
}

// Update overwrites key's value under trx's X-lock, logs the old value
// to trx's undo log, and returns the old value's size. A deadlock
// aborts trx automatically, replaying its undo log before returning
// ErrDeadlock.
func (db *DB) Update(table int, key int64, value []byte, trx int64) (int, error) {
	h, err := db.handle(table)
	if err != nil {
		return -1, err
	}

	old, err := h.tree.Update(key, value, trx, db.txns)
	if err != nil {
		if errors.Is(err, btree.ErrDeadlock) {
			db.abortFor(trx)
			return -1, ErrDeadlock
		}
		return -1, db.translateLockErr(err)
	}

	if err := db.txns.LogUpdate(trx, h.table, key, old); err != nil {
		return -1, ErrInactiveTrx
	}
	return len(old), nil
}

// Delete removes key from table.
func (db *DB) Delete(table int, key int64) error {
	h, err := db.handle(table)
	if err != nil {
		return err
	}
	ok, err := h.tree.Delete(key)
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyNotFound
	}
	return nil
}

// Begin starts a new transaction and returns its id.
func (db *DB) Begin() int64 {
	return db.txns.Begin()
}

// Commit releases trx's locks, fsyncs every open table, and retires
// the transaction. Returns the committed id, or 0 if trx was not
// running.
func (db *DB) Commit(trx int64) int64 {
	id := db.txns.Commit(trx)
	if id == 0 {
		return 0
	}
	db.mu.Lock()
	tables := append([]*tableHandle(nil), db.tables...)
	db.mu.Unlock()
	for _, h := range tables {
		h.table.Sync()
	}
	return id
}

// Shutdown flushes every dirty buffer frame and closes every table
// file (shutdown_db).
func (db *DB) Shutdown() error {
	return db.pool.Shutdown(db.dsmMgr)
}

// abortFor replays trx's undo log and releases its locks after a
// deadlock victim is chosen at lock_acquire time.
func (db *DB) abortFor(trx int64) {
	db.txns.Abort(trx, func(table *dsm.Table, key int64, oldValue []byte) error {
		db.mu.Lock()
		tree := db.treeByTable[table]
		db.mu.Unlock()
		if tree == nil {
			return nil
		}
		return tree.Restore(key, oldValue)
	})
}

// Abort aborts trx explicitly, replaying its undo log in reverse.
func (db *DB) Abort(trx int64) error {
	db.abortFor(trx)
	return nil
}

func (db *DB) translateLockErr(err error) error {
	if errors.Is(err, btree.ErrDeadlock) {
		return ErrDeadlock
	}
	if errors.Is(err, btree.ErrKeyNotFound) {
		return ErrKeyNotFound
	}
	return err
}
