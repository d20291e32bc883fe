// Package txn is the transaction and lock manager: shared/exclusive
// record locks at (table, page, slot) granularity, wait-for graph
// deadlock detection, per-transaction lock lists, and an undo log with
// rollback. Lock records live in an arena indexed by stable ints
// rather than as a pointer graph, per the engine's design notes.
package txn

import (
	"errors"
	"sync"

	"coredb/internal/dsm"
)

// State is a transaction's position in its lifecycle.
type State int

const (
	Running State = iota
	Waiting
	Committing
	Aborting
	Committed
	Aborted
)

// ErrUnknownTransaction is returned by Abort/LogUpdate for a
// transaction id that is not tracked (already committed, aborted, or
// never issued by Begin). Commit reports the same case by returning 0.
var ErrUnknownTransaction = errors.New("txn: unknown or inactive transaction")

// UndoEntry is one reverse-chained undo-log record: the pre-update
// bytes for (table, key), sufficient to replay an UPDATE's inverse.
type UndoEntry struct {
	Table    *dsm.Table
	Key      int64
	OldValue []byte
}

// Transaction is one in-flight unit of work. Its lock chain lives in
// the Manager's lock arena, referenced by lockHead; its undo log is a
// plain per-transaction vector, per the design notes' "stable indices
// instead of pointer-linked records."
type Transaction struct {
	ID       int64
	State    State
	Log      []UndoEntry
	lockHead int
}

// Manager owns every open transaction, the lock arena, and the
// wait-for graph. txMu guards the transaction table and id counter;
// lockMu guards the lock arena, per-location lists, and trxWait, per
// the specification's three-mutex concurrency model (the third, the
// buffer manager mutex, lives in internal/bufmgr).
type Manager struct {
	txMu   sync.Mutex
	nextID int64
	txns   map[int64]*Transaction

	lockMu  sync.Mutex
	locks   []lockRecord
	freeIdx []int
	lists   map[locKey]lockList
	trxWait map[int64]map[int64]bool
}

type locKey struct {
	table *dsm.Table
	page  uint64
}

type lockList struct {
	head, tail int
}

// NewManager returns an empty transaction/lock manager.
func NewManager() *Manager {
	return &Manager{
		txns:    make(map[int64]*Transaction),
		lists:   make(map[locKey]lockList),
		trxWait: make(map[int64]map[int64]bool),
	}
}

// Begin assigns a fresh positive transaction id in the RUNNING state.
func (m *Manager) Begin() int64 {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.nextID++
	id := m.nextID
	m.txns[id] = &Transaction{ID: id, State: Running, lockHead: -1}
	return id
}

// LogUpdate appends an undo entry to trx's log, to be replayed in
// reverse by Abort.
func (m *Manager) LogUpdate(trx int64, table *dsm.Table, key int64, oldValue []byte) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	tr, ok := m.txns[trx]
	if !ok {
		return ErrUnknownTransaction
	}
	tr.Log = append(tr.Log, UndoEntry{Table: table, Key: key, OldValue: oldValue})
	return nil
}

// Commit releases every lock trx holds and retires the transaction.
// Returns the committed id, or 0 if trx was not running.
func (m *Manager) Commit(trx int64) int64 {
	m.txMu.Lock()
	tr, ok := m.txns[trx]
	if !ok || tr.State != Running {
		m.txMu.Unlock()
		return 0
	}
	tr.State = Committing
	m.txMu.Unlock()

	m.releaseAll(trx)

	m.txMu.Lock()
	tr.State = Committed
	delete(m.txns, trx)
	m.txMu.Unlock()
	return trx
}

// Abort replays trx's undo log in reverse via apply, then releases its
// locks and retires it. apply is expected to write oldValue back for
// key without acquiring any new lock — the aborting transaction already
// holds the necessary X-locks.
func (m *Manager) Abort(trx int64, apply func(table *dsm.Table, key int64, oldValue []byte) error) error {
	m.txMu.Lock()
	tr, ok := m.txns[trx]
	if !ok {
		m.txMu.Unlock()
		return ErrUnknownTransaction
	}
	tr.State = Aborting
	log := tr.Log
	m.txMu.Unlock()

	for i := len(log) - 1; i >= 0; i-- {
		e := log[i]
		if err := apply(e.Table, e.Key, e.OldValue); err != nil {
			return err
		}
	}

	m.releaseAll(trx)

	m.txMu.Lock()
	tr.State = Aborted
	delete(m.txns, trx)
	m.txMu.Unlock()
	return nil
}

// StateOf reports trx's current state and whether it is known at all.
func (m *Manager) StateOf(trx int64) (State, bool) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	tr, ok := m.txns[trx]
	if !ok {
		return 0, false
	}
	return tr.State, true
}

func (m *Manager) setState(trx int64, s State) {
	m.txMu.Lock()
	if tr, ok := m.txns[trx]; ok {
		tr.State = s
	}
	m.txMu.Unlock()
}

// Stats is a point-in-time snapshot of the manager's load, surfaced in
// place of logging per the engine's silent-by-design ambient stack.
type Stats struct {
	ActiveTransactions int
	HeldLocks          int
}

// Stats reports how many transactions are currently tracked and how
// many lock-arena slots are in use (acquired or waiting) across all of
// them.
func (m *Manager) Stats() Stats {
	m.txMu.Lock()
	active := len(m.txns)
	m.txMu.Unlock()

	m.lockMu.Lock()
	held := 0
	for _, r := range m.locks {
		if r.inUse {
			held++
		}
	}
	m.lockMu.Unlock()

	return Stats{ActiveTransactions: active, HeldLocks: held}
}
