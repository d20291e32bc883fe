package page

import "encoding/binary"

// Header-field byte offsets shared by internal and leaf pages.
const (
	offIsLeaf     = 0
	offParentPage = 4
	offNumKeys    = 12
	offFooter1    = 16
	offFooter2    = 24
)

// Header is a thin view over the first HeaderSize bytes of a B+ tree
// page. Internal and leaf pages share this layout; what footer1/footer2
// mean depends on IsLeaf.
type Header struct {
	buf []byte
}

// NewHeader wraps a 4096-byte page buffer for header access.
func NewHeader(buf []byte) Header {
	return Header{buf: buf}
}

func (h Header) IsLeaf() bool { return h.buf[offIsLeaf] != 0 }

func (h Header) SetLeaf(leaf bool) {
	if leaf {
		h.buf[offIsLeaf] = 1
	} else {
		h.buf[offIsLeaf] = 0
	}
}

func (h Header) ParentPage() uint64 {
	return binary.LittleEndian.Uint64(h.buf[offParentPage:])
}

func (h Header) SetParentPage(p uint64) {
	binary.LittleEndian.PutUint64(h.buf[offParentPage:], p)
}

func (h Header) NumKeys() uint32 {
	return binary.LittleEndian.Uint32(h.buf[offNumKeys:])
}

func (h Header) SetNumKeys(n uint32) {
	binary.LittleEndian.PutUint32(h.buf[offNumKeys:], n)
}

// footer1 holds free_space_bytes on a leaf page; unused on internal pages.
func (h Header) footer1() uint64 {
	return binary.LittleEndian.Uint64(h.buf[offFooter1:])
}

func (h Header) setFooter1(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[offFooter1:], v)
}

// footer2 holds next_sibling on a leaf page, leftmost_child on an internal page.
func (h Header) footer2() uint64 {
	return binary.LittleEndian.Uint64(h.buf[offFooter2:])
}

func (h Header) setFooter2(v uint64) {
	binary.LittleEndian.PutUint64(h.buf[offFooter2:], v)
}

// Reset zeroes the page and marks it as the given kind, ready for the
// Internal/Leaf wrapper's own initializer to fill in the rest.
func Reset(buf []byte, leaf bool) {
	for i := range buf {
		buf[i] = 0
	}
	NewHeader(buf).SetLeaf(leaf)
}
