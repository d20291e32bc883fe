// Package page defines the in-memory byte layout of the four page kinds
// that make up a table file: the file header page, free pages, B+ tree
// internal pages, and B+ tree leaf pages. It holds no file descriptors,
// no locks, and performs no I/O — it only interprets and mutates raw
// 4096-byte buffers handed to it by the disk space manager and buffer
// manager.
package page

import "errors"

const (
	// Size is the fixed on-disk size of every page, in bytes.
	Size = 4096

	// HeaderSize is the size of the common 128-byte header carried by
	// every B+ tree page (internal or leaf).
	HeaderSize = 128

	// Body is the number of bytes available for branches/slots+values
	// after the common header.
	Body = Size - HeaderSize

	// MaxBranches is the maximum number of (key, child) branches an
	// internal page can hold.
	MaxBranches = 248

	// BranchSize is the encoded size of one internal-page branch entry:
	// an 8-byte signed key plus an 8-byte child page number.
	BranchSize = 16

	// MaxValueSize is the maximum size, in bytes, of a leaf record value.
	MaxValueSize = 112

	// SlotSize is the encoded size of one leaf slot-directory entry:
	// 8-byte key, 2-byte value offset, 1-byte value size, 2-byte trx id.
	SlotSize = 13

	// RedistributeThreshold is a leaf free-space threshold (in bytes): a
	// leaf left with less free space than this after a deletion is not
	// rebalanced, and redistribution moves records into a leaf only
	// while its free space is at least this. Whether two leaves coalesce
	// or redistribute depends on their combined free space, not on it.
	RedistributeThreshold = 2500

	// InternalRedistributeThreshold is the minimum key count an internal
	// page must retain before it needs to borrow from or merge with a
	// sibling (half of MaxBranches).
	InternalRedistributeThreshold = MaxBranches / 2

	// InitialFileSize is the size, in bytes, a freshly created table
	// file is grown to before first use (10 MiB).
	InitialFileSize = 10 * 1024 * 1024

	// InitialPageCount is InitialFileSize expressed in pages.
	InitialPageCount = InitialFileSize / Size

	// MaxTables bounds the number of table files one process may have
	// open simultaneously.
	MaxTables = 32

	// MaxLockableSlots bounds the number of independently lockable
	// records per page — tighter than the physical leaf capacity, so
	// splits must respect it as well as the byte-capacity constraints.
	MaxLockableSlots = 64
)

var (
	// ErrValueTooLarge is returned when a caller supplies a record value
	// larger than MaxValueSize.
	ErrValueTooLarge = errors.New("page: value exceeds maximum record size")
	// ErrValueEmpty is returned when a caller supplies a zero-length value.
	ErrValueEmpty = errors.New("page: value must be at least 1 byte")
)

func init() {
	if HeaderSize+MaxBranches*BranchSize != Size {
		panic("page: internal page geometry does not fill a page")
	}
}
