package page

import "encoding/binary"

// FileHeader is page 0 of every table file: the free-list head, the
// reserved page count, and the B+ tree's root page.
type FileHeader struct {
	buf []byte
}

const (
	offFreeHead  = 0
	offPageCount = 8
	offRootPage  = 16
)

// NewFileHeader wraps page 0's buffer.
func NewFileHeader(buf []byte) FileHeader { return FileHeader{buf: buf} }

// InitFileHeader zeroes buf and writes the initial header fields for a
// freshly created table file: an empty free list, a single reserved
// page (the header itself), and no tree yet.
func InitFileHeader(buf []byte) FileHeader {
	for i := range buf {
		buf[i] = 0
	}
	h := FileHeader{buf: buf}
	h.SetFreeHead(0)
	h.SetPageCount(1)
	h.SetRootPage(0)
	return h
}

func (h FileHeader) FreeHead() uint64 { return binary.LittleEndian.Uint64(h.buf[offFreeHead:]) }
func (h FileHeader) SetFreeHead(p uint64) {
	binary.LittleEndian.PutUint64(h.buf[offFreeHead:], p)
}

func (h FileHeader) PageCount() uint64 { return binary.LittleEndian.Uint64(h.buf[offPageCount:]) }
func (h FileHeader) SetPageCount(n uint64) {
	binary.LittleEndian.PutUint64(h.buf[offPageCount:], n)
}

func (h FileHeader) RootPage() uint64 { return binary.LittleEndian.Uint64(h.buf[offRootPage:]) }
func (h FileHeader) SetRootPage(p uint64) {
	binary.LittleEndian.PutUint64(h.buf[offRootPage:], p)
}

// FreePage is the on-disk representation of a page sitting on the free
// list: a single pointer to the next free page, or 0 if it is the tail.
type FreePage struct {
	buf []byte
}

// NewFreePage wraps a page buffer for free-list access.
func NewFreePage(buf []byte) FreePage { return FreePage{buf: buf} }

// InitFreePage zeroes buf and sets its next-free pointer.
func InitFreePage(buf []byte, next uint64) FreePage {
	for i := range buf {
		buf[i] = 0
	}
	f := FreePage{buf: buf}
	f.SetNextFree(next)
	return f
}

func (f FreePage) NextFree() uint64 { return binary.LittleEndian.Uint64(f.buf[0:]) }
func (f FreePage) SetNextFree(p uint64) { binary.LittleEndian.PutUint64(f.buf[0:], p) }
