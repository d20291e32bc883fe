// Package coredb is the thin façade that orchestrates the disk space
// manager, buffer manager, index manager, and transaction manager
// behind a small table-id-based API: open a table, insert/find/
// update/delete rows, and begin/commit transactions around them.
package coredb

import (
	"errors"
	"path/filepath"
	"sync"

	"coredb/internal/btree"
	"coredb/internal/bufmgr"
	"coredb/internal/dsm"
	"coredb/internal/page"
	"coredb/internal/txn"
)

// Options configures a DB at Open time.
type Options struct {
	// NumBuffers is the buffer pool's frame count. 0 selects
	// bufmgr.DefaultFrames.
	NumBuffers int
}

var (
	ErrUnknownTable  = errors.New("coredb: unknown table id")
	ErrKeyNotFound   = errors.New("coredb: key not found")
	ErrDeadlock      = errors.New("coredb: transaction aborted to break a deadlock")
	ErrInactiveTrx   = errors.New("coredb: transaction is not active")
	ErrTooManyTables = dsm.ErrTooManyTables
	ErrTableLocked   = dsm.ErrTableLocked
	ErrValueTooLarge = page.ErrValueTooLarge
	ErrValueEmpty    = page.ErrValueEmpty
)

type tableHandle struct {
	table *dsm.Table
	tree  *btree.Tree
}

// DB is a single open engine instance: one buffer pool and lock/
// transaction manager shared by every table opened through it.
type DB struct {
	mu     sync.Mutex
	dsmMgr *dsm.Manager
	pool   *bufmgr.Pool
	txns   *txn.Manager

	tables      []*tableHandle
	byPath      map[string]int
	treeByTable map[*dsm.Table]*btree.Tree
}

// Open starts a new engine instance (init_db). It does not open any
// table files until OpenTable is called.
func Open(opts Options) *DB {
	return &DB{
		dsmMgr:      dsm.NewManager(),
		pool:        bufmgr.NewPool(opts.NumBuffers),
		txns:        txn.NewManager(),
		byPath:      make(map[string]int),
		treeByTable: make(map[*dsm.Table]*btree.Tree),
	}
}

// OpenTable resolves path to its absolute form (filepath.Abs; symbolic
// links are not resolved) and returns its table id, creating and
// initializing the file if necessary. Reopening an already-open path
// returns the same id.
func (db *DB) OpenTable(path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return -1, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if id, ok := db.byPath[abs]; ok {
		return id, nil
	}

	table, err := db.dsmMgr.OpenTable(abs)
	if err != nil {
		return -1, err
	}
	tree := btree.Open(db.pool, table)
	db.tables = append(db.tables, &tableHandle{table: table, tree: tree})
	id := len(db.tables) - 1
	db.byPath[abs] = id
	db.treeByTable[table] = tree
	return id, nil
}

func (db *DB) handle(id int) (*tableHandle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if id < 0 || id >= len(db.tables) {
		return nil, ErrUnknownTable
	}
	return db.tables[id], nil
}
