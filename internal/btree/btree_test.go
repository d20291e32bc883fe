package btree

import (
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"coredb/internal/bufmgr"
	"coredb/internal/dsm"
)

func newTestTree(t *testing.T) (*dsm.Manager, *Tree) {
	t.Helper()
	mgr := dsm.NewManager()
	tbl, err := mgr.OpenTable(filepath.Join(t.TempDir(), "a.tbl"))
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	pool := bufmgr.NewPool(32)
	return mgr, Open(pool, tbl)
}

func TestInsertFindSequential(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	const n = 500
	for i := int64(0); i < n; i++ {
		if err := tree.Insert(i, []byte(fmt.Sprintf("value-%d", i)), 0); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	for i := int64(0); i < n; i++ {
		v, found, err := tree.FindByKey(i, 0, nil)
		if err != nil {
			t.Fatalf("FindByKey(%d): %v", i, err)
		}
		if !found {
			t.Fatalf("FindByKey(%d): not found", i)
		}
		if want := fmt.Sprintf("value-%d", i); string(v) != want {
			t.Fatalf("FindByKey(%d) = %q, want %q", i, v, want)
		}
	}

	if _, found, err := tree.FindByKey(n+1, 0, nil); err != nil || found {
		t.Fatalf("FindByKey(missing) = (found=%v, err=%v)", found, err)
	}
}

func TestInsertFindRandomOrder(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	const n = 400
	keys := rand.New(rand.NewSource(1)).Perm(n)
	for _, k := range keys {
		if err := tree.Insert(int64(k), []byte(fmt.Sprintf("v%d", k)), 0); err != nil {
			t.Fatalf("Insert(%d): %v", k, err)
		}
	}
	for _, k := range keys {
		v, found, err := tree.FindByKey(int64(k), 0, nil)
		if err != nil || !found {
			t.Fatalf("FindByKey(%d) = found=%v err=%v", k, found, err)
		}
		if want := fmt.Sprintf("v%d", k); string(v) != want {
			t.Fatalf("FindByKey(%d) = %q, want %q", k, v, want)
		}
	}
}

func TestInsertDuplicateIsNoOp(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	if err := tree.Insert(1, []byte("first"), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := tree.Insert(1, []byte("second"), 0); err != nil {
		t.Fatalf("Insert (dup): %v", err)
	}
	v, found, err := tree.FindByKey(1, 0, nil)
	if err != nil || !found {
		t.Fatalf("FindByKey: found=%v err=%v", found, err)
	}
	if string(v) != "first" {
		t.Fatalf("duplicate insert overwrote value: got %q, want %q", v, "first")
	}
}

func TestInsertRejectsOversizedAndEmptyValues(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	if err := tree.Insert(1, nil, 0); err == nil {
		t.Fatal("Insert with empty value did not error")
	}
	if err := tree.Insert(1, make([]byte, 200), 0); err == nil {
		t.Fatal("Insert with oversized value did not error")
	}
}

func TestDeleteSequentialThenVerifyRemaining(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	const n = 300
	for i := int64(0); i < n; i++ {
		if err := tree.Insert(i, []byte(fmt.Sprintf("v%d", i)), 0); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}

	deleted := make(map[int64]bool)
	r := rand.New(rand.NewSource(2))
	for i := 0; i < n/2; i++ {
		k := int64(r.Intn(n))
		ok, err := tree.Delete(k)
		if err != nil {
			t.Fatalf("Delete(%d): %v", k, err)
		}
		if ok {
			deleted[k] = true
		}
	}

	for i := int64(0); i < n; i++ {
		_, found, err := tree.FindByKey(i, 0, nil)
		if err != nil {
			t.Fatalf("FindByKey(%d): %v", i, err)
		}
		if deleted[i] && found {
			t.Fatalf("key %d still present after delete", i)
		}
		if !deleted[i] && !found {
			t.Fatalf("key %d missing but was never deleted", i)
		}
	}
}

func TestDeleteAllEmptiesTree(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	const n = 100
	for i := int64(0); i < n; i++ {
		if err := tree.Insert(i, []byte("x"), 0); err != nil {
			t.Fatalf("Insert(%d): %v", i, err)
		}
	}
	for i := int64(0); i < n; i++ {
		ok, err := tree.Delete(i)
		if err != nil || !ok {
			t.Fatalf("Delete(%d) = ok=%v err=%v", i, ok, err)
		}
	}
	if tree.table.RootPage() != 0 {
		t.Fatalf("RootPage() = %d after deleting everything, want 0", tree.table.RootPage())
	}
}

func TestUpdateSameSizeInPlaceAndDifferentSize(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	if err := tree.Insert(1, []byte("abc"), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	old, err := tree.Update(1, []byte("xyz"), 7, nil)
	if err != nil {
		t.Fatalf("Update (same size): %v", err)
	}
	if string(old) != "abc" {
		t.Fatalf("Update returned old=%q, want %q", old, "abc")
	}
	v, found, _ := tree.FindByKey(1, 0, nil)
	if !found || string(v) != "xyz" {
		t.Fatalf("after same-size update: v=%q found=%v", v, found)
	}

	old2, err := tree.Update(1, []byte("a much longer replacement value"), 7, nil)
	if err != nil {
		t.Fatalf("Update (different size): %v", err)
	}
	if string(old2) != "xyz" {
		t.Fatalf("Update returned old=%q, want %q", old2, "xyz")
	}
	v2, found, _ := tree.FindByKey(1, 0, nil)
	if !found || string(v2) != "a much longer replacement value" {
		t.Fatalf("after resize update: v=%q found=%v", v2, found)
	}
}

func TestRestoreReplaysWithoutLocker(t *testing.T) {
	mgr, tree := newTestTree(t)
	defer mgr.Close()

	if err := tree.Insert(1, []byte("original"), 0); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := tree.Update(1, []byte("changed"), 1, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := tree.Restore(1, []byte("original")); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	v, found, _ := tree.FindByKey(1, 0, nil)
	if !found || string(v) != "original" {
		t.Fatalf("after Restore: v=%q found=%v", v, found)
	}
}
