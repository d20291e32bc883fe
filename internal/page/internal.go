package page

import (
	"encoding/binary"
	"errors"
)

// ErrInternalFull is returned by InsertBranch when the page already
// holds MaxBranches entries.
var ErrInternalFull = errors.New("page: internal page is full")

// Branch is one (key, child page) entry of an internal page: keys less
// than Key route to an earlier child; Key itself routes to Child.
type Branch struct {
	Key   int64
	Child uint64
}

// Internal is a view over an internal (non-leaf) B+ tree page. An
// internal page with k keys logically has k+1 children: LeftmostChild
// plus the Child of each of its k branches, in ascending key order.
type Internal struct {
	Header
	buf []byte
}

// NewInternal wraps an existing internal page's buffer.
func NewInternal(buf []byte) Internal {
	return Internal{Header: NewHeader(buf), buf: buf}
}

// InitInternal resets buf into an empty internal page.
func InitInternal(buf []byte, parent uint64, leftmost uint64) Internal {
	Reset(buf, false)
	n := Internal{Header: NewHeader(buf), buf: buf}
	n.SetParentPage(parent)
	n.SetNumKeys(0)
	n.SetLeftmostChild(leftmost)
	return n
}

// Bytes returns the page's underlying buffer, for callers that need to
// hand the whole page to a writer after mutating it through this view.
func (n Internal) Bytes() []byte { return n.buf }

func (n Internal) LeftmostChild() uint64    { return n.footer2() }
func (n Internal) SetLeftmostChild(p uint64) { n.setFooter2(p) }

func (n Internal) branchOffset(i int) int { return HeaderSize + i*BranchSize }

// KeyAt returns the key of branch i (0-based, i < NumKeys()).
func (n Internal) KeyAt(i int) int64 {
	off := n.branchOffset(i)
	return int64(binary.LittleEndian.Uint64(n.buf[off:]))
}

// ChildAt returns the child page pointed to by branch i.
func (n Internal) ChildAt(i int) uint64 {
	off := n.branchOffset(i)
	return binary.LittleEndian.Uint64(n.buf[off+8:])
}

func (n Internal) setBranch(i int, b Branch) {
	off := n.branchOffset(i)
	binary.LittleEndian.PutUint64(n.buf[off:], uint64(b.Key))
	binary.LittleEndian.PutUint64(n.buf[off+8:], b.Child)
}

// Branches returns a copy of all branches in key order.
func (n Internal) Branches() []Branch {
	count := int(n.NumKeys())
	out := make([]Branch, count)
	for i := 0; i < count; i++ {
		out[i] = Branch{Key: n.KeyAt(i), Child: n.ChildAt(i)}
	}
	return out
}

// FindChild returns the child page to descend into for key, following
// spec.md's "largest branch whose key <= key, else leftmost" rule.
func (n Internal) FindChild(key int64) uint64 {
	count := int(n.NumKeys())
	child := n.LeftmostChild()
	for i := 0; i < count; i++ {
		if n.KeyAt(i) <= key {
			child = n.ChildAt(i)
		} else {
			break
		}
	}
	return child
}

// IndexOfChild returns the branch index whose Child equals child, or -1
// if child is the leftmost child.
func (n Internal) IndexOfChild(child uint64) int {
	if n.LeftmostChild() == child {
		return -1
	}
	count := int(n.NumKeys())
	for i := 0; i < count; i++ {
		if n.ChildAt(i) == child {
			return i
		}
	}
	return -1
}

// InsertBranch inserts (key, child) in sorted position, shifting later
// branches right. Returns ErrInternalFull if the page is already at
// MaxBranches.
func (n Internal) InsertBranch(key int64, child uint64) error {
	count := int(n.NumKeys())
	if count >= MaxBranches {
		return ErrInternalFull
	}
	pos := 0
	for pos < count && n.KeyAt(pos) < key {
		pos++
	}
	for i := count; i > pos; i-- {
		b := Branch{Key: n.KeyAt(i - 1), Child: n.ChildAt(i - 1)}
		n.setBranch(i, b)
	}
	n.setBranch(pos, Branch{Key: key, Child: child})
	n.SetNumKeys(uint32(count + 1))
	return nil
}

// RemoveBranchAt deletes branch i, shifting later branches left.
func (n Internal) RemoveBranchAt(i int) {
	count := int(n.NumKeys())
	for j := i; j < count-1; j++ {
		b := Branch{Key: n.KeyAt(j + 1), Child: n.ChildAt(j + 1)}
		n.setBranch(j, b)
	}
	n.SetNumKeys(uint32(count - 1))
}

// RebuildFromSorted overwrites the page's branch area with branches (in
// ascending key order) and the given leftmost child. Used after split
// and coalesce to lay out a node's final contents in one pass.
func (n Internal) RebuildFromSorted(leftmost uint64, branches []Branch) {
	n.SetLeftmostChild(leftmost)
	for i, b := range branches {
		n.setBranch(i, b)
	}
	n.SetNumKeys(uint32(len(branches)))
}

// UpdateChildAt rewrites the child pointer of branch i in place.
func (n Internal) UpdateChildAt(i int, child uint64) {
	b := Branch{Key: n.KeyAt(i), Child: child}
	n.setBranch(i, b)
}

// UpdateKeyAt rewrites the separator key of branch i in place, used
// when redistribution shifts a record across a leaf/node boundary.
func (n Internal) UpdateKeyAt(i int, key int64) {
	b := Branch{Key: key, Child: n.ChildAt(i)}
	n.setBranch(i, b)
}
