package txn

import (
	"path/filepath"
	"testing"
	"time"

	"coredb/internal/dsm"
)

func newTestTable(t *testing.T) (*dsm.Manager, *dsm.Table) {
	t.Helper()
	mgr := dsm.NewManager()
	tbl, err := mgr.OpenTable(filepath.Join(t.TempDir(), "a.tbl"))
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	return mgr, tbl
}

func TestConcurrentSharedLocksDoNotBlock(t *testing.T) {
	mgr, tbl := newTestTable(t)
	defer mgr.Close()
	m := NewManager()

	t1, t2 := m.Begin(), m.Begin()
	if !m.AcquireS(tbl, 5, 3, t1) {
		t.Fatal("AcquireS(t1) failed")
	}
	if !m.AcquireS(tbl, 5, 3, t2) {
		t.Fatal("AcquireS(t2) should succeed: S-locks are compatible")
	}
}

func TestExclusiveLockBlocksUntilReleased(t *testing.T) {
	mgr, tbl := newTestTable(t)
	defer mgr.Close()
	m := NewManager()

	t1, t2 := m.Begin(), m.Begin()
	if !m.AcquireX(tbl, 5, 3, t1) {
		t.Fatal("AcquireX(t1) failed")
	}

	done := make(chan bool)
	go func() { done <- m.AcquireX(tbl, 5, 3, t2) }()

	select {
	case <-done:
		t.Fatal("AcquireX(t2) returned before t1 released")
	case <-time.After(50 * time.Millisecond):
	}

	m.releaseAll(t1)

	select {
	case ok := <-done:
		if !ok {
			t.Fatal("AcquireX(t2) returned false after t1's lock was released")
		}
	case <-time.After(time.Second):
		t.Fatal("AcquireX(t2) never woke after release")
	}
}

func TestAcquireRejectsOutOfRangeSlot(t *testing.T) {
	mgr, tbl := newTestTable(t)
	defer mgr.Close()
	m := NewManager()
	trx := m.Begin()
	if m.AcquireS(tbl, 1, -1, trx) {
		t.Fatal("AcquireS with negative slot should fail")
	}
	if m.AcquireS(tbl, 1, MaxSlot, trx) {
		t.Fatal("AcquireS with slot == MaxSlot should fail")
	}
}

func TestDeadlockIsDetectedAndBreaks(t *testing.T) {
	mgr, tbl := newTestTable(t)
	defer mgr.Close()
	m := NewManager()

	t1, t2 := m.Begin(), m.Begin()
	if !m.AcquireX(tbl, 1, 0, t1) {
		t.Fatal("AcquireX(t1, slot 0) failed")
	}
	if !m.AcquireX(tbl, 1, 1, t2) {
		t.Fatal("AcquireX(t2, slot 1) failed")
	}

	t2BlockedOnSlot0 := make(chan bool, 1)
	go func() { t2BlockedOnSlot0 <- m.AcquireX(tbl, 1, 0, t2) }()

	// Give t2's request time to register as a waiter before t1 asks for
	// slot 1, closing the cycle t1 -> t2 -> t1.
	time.Sleep(50 * time.Millisecond)

	ok := m.AcquireX(tbl, 1, 1, t1)
	if ok {
		t.Fatal("AcquireX(t1, slot 1) should fail: it closes a wait-for cycle")
	}

	// t1 is the victim; releasing its locks is how it backs off.
	m.releaseAll(t1)

	select {
	case got := <-t2BlockedOnSlot0:
		if !got {
			t.Fatal("t2's request should have succeeded once t1 backed off")
		}
	case <-time.After(time.Second):
		t.Fatal("t2 never resolved")
	}
}

func TestCommitReleasesLocksAndRetiresTransaction(t *testing.T) {
	mgr, tbl := newTestTable(t)
	defer mgr.Close()
	m := NewManager()

	trx := m.Begin()
	if !m.AcquireX(tbl, 1, 0, trx) {
		t.Fatal("AcquireX failed")
	}
	if id := m.Commit(trx); id != trx {
		t.Fatalf("Commit() = %d, want %d", id, trx)
	}
	if _, ok := m.StateOf(trx); ok {
		t.Fatal("transaction still tracked after Commit")
	}

	other := m.Begin()
	if !m.AcquireX(tbl, 1, 0, other) {
		t.Fatal("lock was not released by Commit")
	}
}

func TestAbortReplaysUndoLogInReverse(t *testing.T) {
	mgr, tbl := newTestTable(t)
	defer mgr.Close()
	m := NewManager()

	trx := m.Begin()
	if err := m.LogUpdate(trx, tbl, 1, []byte("v0")); err != nil {
		t.Fatalf("LogUpdate: %v", err)
	}
	if err := m.LogUpdate(trx, tbl, 1, []byte("v1")); err != nil {
		t.Fatalf("LogUpdate: %v", err)
	}

	var replayed []string
	err := m.Abort(trx, func(table *dsm.Table, key int64, oldValue []byte) error {
		replayed = append(replayed, string(oldValue))
		return nil
	})
	if err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if len(replayed) != 2 || replayed[0] != "v1" || replayed[1] != "v0" {
		t.Fatalf("Abort replayed %v, want [v1 v0] (reverse order)", replayed)
	}

	if _, ok := m.StateOf(trx); ok {
		t.Fatal("transaction still tracked after Abort")
	}
}

func TestLogUpdateUnknownTransaction(t *testing.T) {
	m := NewManager()
	if err := m.LogUpdate(999, nil, 1, nil); err != ErrUnknownTransaction {
		t.Fatalf("LogUpdate(unknown) = %v, want ErrUnknownTransaction", err)
	}
}
