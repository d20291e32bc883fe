package page

import (
	"encoding/binary"
	"errors"
)

// ErrLeafFull is returned by InsertRecord when there is not enough free
// space for the new slot and value.
var ErrLeafFull = errors.New("page: leaf page is full")

// Record is a decoded (key, value, last-writer trx id) leaf entry.
type Record struct {
	Key   int64
	Value []byte
	TrxID uint16
}

// Leaf is a view over a B+ tree leaf page. Slots (sorted by key) grow
// forward from the header; values grow backward from the page end and
// are kept compacted so the free region is always one contiguous gap.
type Leaf struct {
	Header
	buf []byte
}

// NewLeaf wraps an existing leaf page's buffer.
func NewLeaf(buf []byte) Leaf {
	return Leaf{Header: NewHeader(buf), buf: buf}
}

// InitLeaf resets buf into an empty leaf page.
func InitLeaf(buf []byte, parent uint64) Leaf {
	Reset(buf, true)
	l := Leaf{Header: NewHeader(buf), buf: buf}
	l.SetParentPage(parent)
	l.SetNumKeys(0)
	l.setFooter1(uint64(Body))
	l.SetNextSibling(0)
	return l
}

// Bytes returns the page's underlying buffer, for callers that need to
// hand the whole page to a writer after mutating it through this view.
func (l Leaf) Bytes() []byte { return l.buf }

func (l Leaf) NextSibling() uint64     { return l.footer2() }
func (l Leaf) SetNextSibling(p uint64) { l.setFooter2(p) }

// FreeSpace returns the number of bytes not occupied by slots or values.
func (l Leaf) FreeSpace() int { return int(l.footer1()) }

func (l Leaf) setFreeSpace(n int) { l.setFooter1(uint64(n)) }

func (l Leaf) slotOffset(i int) int { return HeaderSize + i*SlotSize }

func (l Leaf) slotKey(i int) int64 {
	return int64(binary.LittleEndian.Uint64(l.buf[l.slotOffset(i):]))
}

func (l Leaf) slotValueOffset(i int) int {
	return int(binary.LittleEndian.Uint16(l.buf[l.slotOffset(i)+8:]))
}

func (l Leaf) slotValueSize(i int) int {
	return int(l.buf[l.slotOffset(i)+10])
}

func (l Leaf) slotTrxID(i int) uint16 {
	return binary.LittleEndian.Uint16(l.buf[l.slotOffset(i)+11:])
}

func (l Leaf) setSlot(i int, key int64, valueOffset, valueSize int, trxID uint16) {
	off := l.slotOffset(i)
	binary.LittleEndian.PutUint64(l.buf[off:], uint64(key))
	binary.LittleEndian.PutUint16(l.buf[off+8:], uint16(valueOffset))
	l.buf[off+10] = byte(valueSize)
	binary.LittleEndian.PutUint16(l.buf[off+11:], trxID)
}

// valuesUsed returns how many bytes of the value area (growing backward
// from Size) are currently occupied.
func (l Leaf) valuesUsed() int {
	count := int(l.NumKeys())
	return Body - l.FreeSpace() - count*SlotSize
}

// FindPosition returns the slot index where key belongs (binary search);
// if the key is present, it is the matching index.
func (l Leaf) FindPosition(key int64) int {
	count := int(l.NumKeys())
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		if l.slotKey(mid) < key {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// GetRecord returns slot i's key, value and trx id without copying the
// value (callers that retain it across mutation must copy it).
func (l Leaf) GetRecord(i int) (key int64, value []byte, trxID uint16) {
	off := l.slotValueOffset(i)
	size := l.slotValueSize(i)
	return l.slotKey(i), l.buf[off : off+size], l.slotTrxID(i)
}

// AllRecords decodes every record on the page, copying each value.
func (l Leaf) AllRecords() []Record {
	count := int(l.NumKeys())
	out := make([]Record, count)
	for i := 0; i < count; i++ {
		k, v, trx := l.GetRecord(i)
		cp := make([]byte, len(v))
		copy(cp, v)
		out[i] = Record{Key: k, Value: cp, TrxID: trx}
	}
	return out
}

// RecordSpace returns the number of bytes a record of the given value
// size consumes in total (slot directory entry plus value bytes) — the
// quantity spec.md's leaf-capacity and split-threshold arithmetic sums.
func RecordSpace(valueSize int) int { return SlotSize + valueSize }

// InsertRecord inserts (key, value) in sorted position. Returns
// ErrLeafFull if there is not enough free space; callers are expected
// to split and retry in that case. The caller must have already
// rejected duplicate keys.
func (l Leaf) InsertRecord(key int64, value []byte, trxID uint16) error {
	need := RecordSpace(len(value))
	if l.FreeSpace() < need {
		return ErrLeafFull
	}
	pos := l.FindPosition(key)
	count := int(l.NumKeys())

	valueOffset := Size - l.valuesUsed() - len(value)
	copy(l.buf[valueOffset:valueOffset+len(value)], value)

	for i := count; i > pos; i-- {
		k := l.slotKey(i - 1)
		vo := l.slotValueOffset(i - 1)
		vs := l.slotValueSize(i - 1)
		tx := l.slotTrxID(i - 1)
		l.setSlot(i, k, vo, vs, tx)
	}
	l.setSlot(pos, key, valueOffset, len(value), trxID)
	l.SetNumKeys(uint32(count + 1))
	l.setFreeSpace(l.FreeSpace() - need)
	return nil
}

// DeleteRecordAt removes slot i, compacting the value area so the free
// region stays one contiguous gap, then removes the slot-directory
// entry and shifts later slots left.
func (l Leaf) DeleteRecordAt(i int) {
	removedOffset := l.slotValueOffset(i)
	removedSize := l.slotValueSize(i)
	regionStart := Size - l.valuesUsed()

	if removedOffset > regionStart {
		copy(l.buf[regionStart+removedSize:removedOffset+removedSize], l.buf[regionStart:removedOffset])
		count := int(l.NumKeys())
		for j := 0; j < count; j++ {
			if j == i {
				continue
			}
			vo := l.slotValueOffset(j)
			if vo < removedOffset {
				k := l.slotKey(j)
				vs := l.slotValueSize(j)
				tx := l.slotTrxID(j)
				l.setSlot(j, k, vo+removedSize, vs, tx)
			}
		}
	}

	count := int(l.NumKeys())
	for j := i; j < count-1; j++ {
		k := l.slotKey(j + 1)
		vo := l.slotValueOffset(j + 1)
		vs := l.slotValueSize(j + 1)
		tx := l.slotTrxID(j + 1)
		l.setSlot(j, k, vo, vs, tx)
	}
	l.SetNumKeys(uint32(count - 1))
	l.setFreeSpace(l.FreeSpace() + removedSize + SlotSize)
}

// Rebuild clears the page's slot/value area and rewrites it from
// records (assumed already sorted by key). Used by split and
// redistribute, which compute a whole new record set up front.
func (l Leaf) Rebuild(records []Record) {
	count := int(l.NumKeys())
	for i := 0; i < count; i++ {
		l.setSlot(i, 0, 0, 0, 0)
	}
	l.SetNumKeys(0)
	l.setFreeSpace(Body)

	valuesUsed := 0
	for i, r := range records {
		valueOffset := Size - valuesUsed - len(r.Value)
		copy(l.buf[valueOffset:valueOffset+len(r.Value)], r.Value)
		l.setSlot(i, r.Key, valueOffset, len(r.Value), r.TrxID)
		valuesUsed += len(r.Value)
	}
	l.SetNumKeys(uint32(len(records)))
	used := 0
	for _, r := range records {
		used += RecordSpace(len(r.Value))
	}
	l.setFreeSpace(Body - used)
}

// UpdateValueInPlace overwrites slot i's value bytes without touching
// the slot directory or value-area layout. Only valid when the new
// value is exactly the same size as the old one.
func (l Leaf) UpdateValueInPlace(i int, value []byte, trxID uint16) {
	off := l.slotValueOffset(i)
	copy(l.buf[off:off+len(value)], value)
	k := l.slotKey(i)
	l.setSlot(i, k, off, len(value), trxID)
}
