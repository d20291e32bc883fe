package bufmgr

import (
	"coredb/internal/dsm"
	"coredb/internal/page"
)

// Load brings (table, pageNum) into the pool, pinning it for trx if
// pin is true, and copies the page's bytes into out (if out is
// non-nil). It returns a frame reference to pass to Apply/Release, or
// NoFrame if the pool had no evictable frame and fell back to a direct
// DSM read.
func (p *Pool) Load(table *dsm.Table, pageNum uint64, out []byte, trx int64, pin bool) (int, error) {
	key := frameKey{table, pageNum}

	p.mu.Lock()
	if i, ok := p.index[key]; ok {
		f := &p.frames[i]
		for pin && f.pinned {
			f.waiters++
			f.cond.Wait()
			f.waiters--
		}
		if pin {
			f.pinned = true
			f.pinOwner = trx
		}
		p.moveToHead(i)
		if out != nil {
			copy(out, f.buf[:])
		}
		p.hits++
		p.mu.Unlock()
		return i, nil
	}
	p.misses++

	idx, err := p.evict()
	if err != nil {
		p.mu.Unlock()
		return NoFrame, err
	}
	if idx == NoFrame {
		p.mu.Unlock()
		if out != nil {
			return NoFrame, table.ReadPage(pageNum, out)
		}
		return NoFrame, nil
	}

	// Read happens with the pool mutex released: the spec requires disk
	// I/O never be performed while holding the manager mutex. evict()
	// already marked the frame at idx pinned before releasing the lock,
	// so a concurrent evict() cannot repurpose it out from under us; we
	// are the only path that can clear that reservation, which happens
	// below once the frame is fully repopulated.
	p.mu.Unlock()
	var buf [page.Size]byte
	readErr := table.ReadPage(pageNum, buf[:])
	p.mu.Lock()
	if readErr != nil {
		f := &p.frames[idx]
		f.pinned = false
		f.cond.Signal()
		p.mu.Unlock()
		return NoFrame, readErr
	}

	f := &p.frames[idx]
	f.buf = buf
	f.table = table
	f.pageNum = pageNum
	f.valid = true
	f.dirty = false
	f.waiters = 0
	if pin {
		f.pinOwner = trx
	} else {
		f.pinned = false
		f.pinOwner = NoOwner
	}
	p.index[key] = idx
	p.moveToHead(idx)
	if out != nil {
		copy(out, buf[:])
	}
	if !pin {
		f.cond.Signal()
	}
	p.mu.Unlock()
	return idx, nil
}

// Apply stores bytes as the new content of (table, pageNum). If the
// page is resident, it is updated in the frame, marked dirty, unpinned,
// and one waiter is woken; the disk copy is written later, on eviction
// or Shutdown. Otherwise the write goes straight to DSM.
func (p *Pool) Apply(table *dsm.Table, pageNum uint64, bytes []byte) error {
	key := frameKey{table, pageNum}

	p.mu.Lock()
	if i, ok := p.index[key]; ok {
		f := &p.frames[i]
		copy(f.buf[:], bytes)
		f.dirty = true
		f.pinned = false
		f.pinOwner = NoOwner
		f.cond.Signal()
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return table.WritePage(pageNum, bytes)
}

// Release clears the pin on (table, pageNum) without writing back,
// waking one waiter. Used after a speculative read that decided not to
// mutate the page.
func (p *Pool) Release(table *dsm.Table, pageNum uint64) {
	key := frameKey{table, pageNum}

	p.mu.Lock()
	defer p.mu.Unlock()
	i, ok := p.index[key]
	if !ok {
		return
	}
	f := &p.frames[i]
	f.pinned = false
	f.pinOwner = NoOwner
	f.cond.Signal()
}
