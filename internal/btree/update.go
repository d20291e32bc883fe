package btree

import "coredb/internal/page"

// Update overwrites key's value after acquiring an X-lock on its slot,
// returning the pre-update bytes so the caller's transaction log can
// record them for rollback. A same-size value is overwritten in place;
// otherwise the old slot is removed and the new value is reinserted,
// which may split the leaf.
func (t *Tree) Update(key int64, newValue []byte, trx int64, locker Locker) ([]byte, error) {
	if len(newValue) == 0 {
		return nil, page.ErrValueEmpty
	}
	if len(newValue) > page.MaxValueSize {
		return nil, page.ErrValueTooLarge
	}

	leafNum, pos, found, err := t.lookupExact(key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrKeyNotFound
	}

	if locker != nil {
		if !locker.AcquireX(t.table, leafNum, pos, trx) {
			return nil, ErrDeadlock
		}
	}

	buf, err := t.readPage(leafNum, trx, true)
	if err != nil {
		return nil, err
	}
	l := page.NewLeaf(buf)
	_, oldValue, _ := l.GetRecord(pos)
	oldCopy := append([]byte(nil), oldValue...)

	if len(newValue) == len(oldValue) {
		l.UpdateValueInPlace(pos, newValue, uint16(trx))
		if err := t.writePage(leafNum, buf); err != nil {
			return nil, err
		}
		return oldCopy, nil
	}

	l.DeleteRecordAt(pos)
	if err := t.writePage(leafNum, buf); err != nil {
		return nil, err
	}
	if err := t.Insert(key, newValue, uint16(trx)); err != nil {
		return nil, err
	}
	return oldCopy, nil
}

// Restore overwrites key's value with oldValue and acquires no lock. It
// is used to replay undo-log entries during transaction rollback, where
// the aborting transaction already holds the necessary X-lock. The pin
// it takes on the page is tagged with autoTrx, not a bare 0, so the
// frame's owner label does not read as bufmgr's NoOwner.
func (t *Tree) Restore(key int64, oldValue []byte) error {
	_, err := t.Update(key, oldValue, autoTrx, nil)
	return err
}
