package bufmgr

// unlink removes frame i from the LRU chain. p.mu must be held.
func (p *Pool) unlink(i int) {
	f := &p.frames[i]
	if f.prev != -1 {
		p.frames[f.prev].next = f.next
	} else {
		p.head = f.next
	}
	if f.next != -1 {
		p.frames[f.next].prev = f.prev
	} else {
		p.tail = f.prev
	}
	f.prev, f.next = -1, -1
}

// moveToHead splices frame i to the front of the LRU chain in O(1).
// p.mu must be held.
func (p *Pool) moveToHead(i int) {
	if p.head == i {
		return
	}
	p.unlink(i)
	f := &p.frames[i]
	f.next = p.head
	f.prev = -1
	if p.head != -1 {
		p.frames[p.head].prev = i
	}
	p.head = i
	if p.tail == -1 {
		p.tail = i
	}
}

// evict walks the LRU chain from tail toward head and returns the index
// of the first unpinned, unwaited frame, flushing it first if dirty.
// Returns NoFrame if every frame is pinned or waited on. p.mu must be
// held; this releases and reacquires it around the DSM flush.
//
// The chosen frame is marked pinned before the mutex is released for
// the flush, so a second evict() racing on the same tail frame skips it
// instead of selecting it too. The caller is responsible for clearing
// pinned (or leaving it set, if it is keeping the frame pinned for its
// own load) once the frame has been repopulated.
func (p *Pool) evict() (int, error) {
	for i := p.tail; i != -1; i = p.frames[i].prev {
		f := &p.frames[i]
		if f.pinned || f.waiters != 0 {
			continue
		}
		f.pinned = true
		if f.valid && f.dirty {
			table, pageNum := f.table, f.pageNum
			buf := f.buf
			p.mu.Unlock()
			err := table.WritePage(pageNum, buf[:])
			p.mu.Lock()
			if err != nil {
				f.pinned = false
				f.cond.Signal()
				return NoFrame, err
			}
		}
		if f.valid {
			delete(p.index, frameKey{f.table, f.pageNum})
		}
		f.valid = false
		f.dirty = false
		p.evictions++
		return i, nil
	}
	return NoFrame, nil
}
