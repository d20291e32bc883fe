package dsm

import "coredb/internal/page"

// AllocPage pops a page off the free list, extending capacity first if
// the list is empty, writes back the updated header, and fsyncs. The
// returned page number is always > 0; 0 is only returned alongside a
// non-nil error, when extension failed.
func (t *Table) AllocPage() (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrTableClosed
	}

	hdr := page.NewFileHeader(t.header[:])
	if hdr.FreeHead() == 0 {
		if err := t.extendCapacityLocked(0); err != nil {
			return 0, err
		}
		hdr = page.NewFileHeader(t.header[:])
	}

	popped := hdr.FreeHead()
	var fp [page.Size]byte
	if err := readAt(t.file, popped, fp[:]); err != nil {
		return 0, err
	}
	hdr.SetFreeHead(page.NewFreePage(fp[:]).NextFree())

	if err := writeAt(t.file, 0, t.header[:]); err != nil {
		return 0, err
	}
	if err := syncFile(t.file); err != nil {
		return 0, err
	}
	return popped, nil
}

// FreePage pushes page_num onto the head of the free list and fsyncs
// the updated header.
func (t *Table) FreePage(pageNum uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}

	hdr := page.NewFileHeader(t.header[:])
	var fp [page.Size]byte
	page.InitFreePage(fp[:], hdr.FreeHead())
	if err := writeAt(t.file, pageNum, fp[:]); err != nil {
		return err
	}
	hdr.SetFreeHead(pageNum)
	if err := writeAt(t.file, 0, t.header[:]); err != nil {
		return err
	}
	return syncFile(t.file)
}

// ExtendCapacity grows the table to newSize pages (doubling the current
// page count when newSize is 0 and the free list is empty), chaining the
// new pages onto the free list, and fsyncs the header.
func (t *Table) ExtendCapacity(newSize uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	return t.extendCapacityLocked(newSize)
}

// extendCapacityLocked implements ExtendCapacity; t.mu must be held.
func (t *Table) extendCapacityLocked(newSize uint64) error {
	hdr := page.NewFileHeader(t.header[:])
	pageCount := hdr.PageCount()

	if newSize == 0 {
		if hdr.FreeHead() != 0 {
			return nil
		}
		newSize = 2 * pageCount
	}
	if newSize <= pageCount {
		return nil
	}

	if err := t.file.Truncate(int64(newSize) * page.Size); err != nil {
		return err
	}

	for p := pageCount; p < newSize; p++ {
		next := p + 1
		if next == newSize {
			next = 0
		}
		var fp [page.Size]byte
		page.InitFreePage(fp[:], next)
		if err := writeAt(t.file, p, fp[:]); err != nil {
			return err
		}
	}

	hdr.SetFreeHead(pageCount)
	hdr.SetPageCount(newSize)
	if err := writeAt(t.file, 0, t.header[:]); err != nil {
		return err
	}
	return syncFile(t.file)
}

// ReadPage reads page pageNum into out, which must be exactly
// page.Size bytes.
func (t *Table) ReadPage(pageNum uint64, out []byte) error {
	if len(out) != page.Size {
		return ErrBadPageSize
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	return readAt(t.file, pageNum, out)
}

// WritePage writes in, which must be exactly page.Size bytes, to page
// pageNum. It does not fsync; callers that need durability call Sync.
func (t *Table) WritePage(pageNum uint64, in []byte) error {
	if len(in) != page.Size {
		return ErrBadPageSize
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTableClosed
	}
	return writeAt(t.file, pageNum, in)
}
