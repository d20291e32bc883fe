package btree

import "coredb/internal/page"

// Delete removes key from the tree. Returns false if the key was not
// present.
func (t *Tree) Delete(key int64) (bool, error) {
	leafNum, pos, found, err := t.lookupExact(key)
	if err != nil || !found {
		return false, err
	}

	buf, err := t.readPage(leafNum, autoTrx, true)
	if err != nil {
		return false, err
	}
	l := page.NewLeaf(buf)
	l.DeleteRecordAt(pos)
	if err := t.writePage(leafNum, buf); err != nil {
		return false, err
	}

	root := t.table.RootPage()
	if leafNum == root {
		return true, t.adjustRoot(leafNum)
	}
	if l.FreeSpace() < page.RedistributeThreshold {
		return true, nil
	}
	return true, t.rebalanceLeaf(leafNum, l)
}

// rebalanceLeaf picks a sibling (right via next_sibling, else the left
// sibling found by scanning the parent) and coalesces or redistributes
// with it depending on their combined free space.
func (t *Tree) rebalanceLeaf(leafNum uint64, l page.Leaf) error {
	parentNum := l.ParentPage()
	if parentNum == 0 {
		return nil
	}

	rightSib := l.NextSibling()
	var siblingNum uint64
	var isRight bool
	if rightSib != 0 {
		siblingNum = rightSib
		isRight = true
	} else {
		siblingNum = t.leftSiblingOf(parentNum, leafNum)
		isRight = false
		if siblingNum == 0 {
			return nil
		}
	}

	sbuf, err := t.readPage(siblingNum, autoTrx, true)
	if err != nil {
		return err
	}
	sl := page.NewLeaf(sbuf)

	if l.FreeSpace()+sl.FreeSpace() >= page.Body {
		if isRight {
			return t.coalesceLeafNodes(leafNum, l, siblingNum, sl)
		}
		return t.coalesceLeafNodes(siblingNum, sl, leafNum, l)
	}
	if isRight {
		return t.redistributeLeaves(leafNum, l, siblingNum, sl, true)
	}
	return t.redistributeLeaves(siblingNum, sl, leafNum, l, false)
}

// leftSiblingOf scans parentNum's branches for the child immediately
// before childNum in key order.
func (t *Tree) leftSiblingOf(parentNum, childNum uint64) uint64 {
	buf, err := t.readPage(parentNum, 0, false)
	if err != nil {
		return 0
	}
	n := page.NewInternal(buf)
	idx := n.IndexOfChild(childNum)
	if idx == -1 {
		return 0
	}
	if idx == 0 {
		return n.LeftmostChild()
	}
	return n.Branches()[idx-1].Child
}

// coalesceLeafNodes merges right's records into left, unlinks right
// from the sibling chain, frees it, and removes its separator entry
// from the parent.
func (t *Tree) coalesceLeafNodes(leftNum uint64, left page.Leaf, rightNum uint64, right page.Leaf) error {
	merged := append(left.AllRecords(), right.AllRecords()...)
	left.Rebuild(merged)
	left.SetNextSibling(right.NextSibling())
	if err := t.writePage(leftNum, left.Bytes()); err != nil {
		return err
	}

	rightParent := right.ParentPage()
	if err := t.table.FreePage(rightNum); err != nil {
		return err
	}
	return t.deleteInternalKey(rightParent, rightNum)
}

// redistributeLeaves moves records one at a time from the donor to the
// receiver (the receiver is left if rightIsDonor, else right) while the
// receiver's free space is at least RedistributeThreshold, updating the
// shifted separator key in the parent afterward. rightIsDonor is true
// when the donor (the sibling with spare records) is on the right.
func (t *Tree) redistributeLeaves(leftNum uint64, left page.Leaf, rightNum uint64, right page.Leaf, rightIsDonor bool) error {
	if rightIsDonor {
		for left.FreeSpace() >= page.RedistributeThreshold && right.NumKeys() > 0 {
			k, v, trx := right.GetRecord(0)
			vc := append([]byte(nil), v...)
			right.DeleteRecordAt(0)
			if err := left.InsertRecord(k, vc, trx); err != nil {
				break
			}
		}
		if err := t.writePage(leftNum, left.Bytes()); err != nil {
			return err
		}
		if err := t.writePage(rightNum, right.Bytes()); err != nil {
			return err
		}
		if right.NumKeys() > 0 {
			k, _, _ := right.GetRecord(0)
			return t.updateSeparatorForChild(right.ParentPage(), rightNum, k)
		}
		return nil
	}

	for right.FreeSpace() >= page.RedistributeThreshold && left.NumKeys() > 0 {
		last := int(left.NumKeys()) - 1
		k, v, trx := left.GetRecord(last)
		vc := append([]byte(nil), v...)
		left.DeleteRecordAt(last)
		if err := right.InsertRecord(k, vc, trx); err != nil {
			break
		}
	}
	if err := t.writePage(leftNum, left.Bytes()); err != nil {
		return err
	}
	if err := t.writePage(rightNum, right.Bytes()); err != nil {
		return err
	}
	if right.NumKeys() > 0 {
		k, _, _ := right.GetRecord(0)
		return t.updateSeparatorForChild(right.ParentPage(), rightNum, k)
	}
	return nil
}

func (t *Tree) updateSeparatorForChild(parentNum, childNum uint64, newKey int64) error {
	if parentNum == 0 {
		return nil
	}
	buf, err := t.readPage(parentNum, autoTrx, true)
	if err != nil {
		return err
	}
	n := page.NewInternal(buf)
	idx := n.IndexOfChild(childNum)
	if idx == -1 {
		t.pool.Release(t.table, parentNum)
		return nil
	}
	n.UpdateKeyAt(idx, newKey)
	return t.writePage(parentNum, buf)
}

// deleteInternalKey removes the branch pointing at childNum from
// parentNum, then rebalances parentNum if it has dropped below the
// internal redistribution threshold.
func (t *Tree) deleteInternalKey(parentNum, childNum uint64) error {
	buf, err := t.readPage(parentNum, autoTrx, true)
	if err != nil {
		return err
	}
	n := page.NewInternal(buf)
	idx := n.IndexOfChild(childNum)
	if idx == -1 {
		// childNum is parentNum's leftmost child: promote branch 0's
		// child to leftmost and drop branch 0, discarding its key. Only
		// reachable when a sibling chain crosses a parent boundary.
		if n.NumKeys() == 0 {
			t.pool.Release(t.table, parentNum)
			return nil
		}
		first := n.Branches()[0]
		n.SetLeftmostChild(first.Child)
		n.RemoveBranchAt(0)
	} else {
		n.RemoveBranchAt(idx)
	}
	if err := t.writePage(parentNum, buf); err != nil {
		return err
	}

	root := t.table.RootPage()
	if parentNum == root {
		return t.adjustRoot(parentNum)
	}
	if int(n.NumKeys()) >= page.InternalRedistributeThreshold {
		return nil
	}
	return t.rebalanceInternal(parentNum, n)
}

// rebalanceInternal picks a same-parent sibling (preferring the right
// neighbor) and coalesces or rotates a branch through the parent
// depending on the pair's combined key count.
func (t *Tree) rebalanceInternal(nodeNum uint64, n page.Internal) error {
	parentNum := n.ParentPage()
	if parentNum == 0 {
		return nil
	}
	pbuf, err := t.readPage(parentNum, 0, false)
	if err != nil {
		return err
	}
	pn := page.NewInternal(pbuf)
	idx := pn.IndexOfChild(nodeNum)

	var siblingNum uint64
	nodeIsLeft := true
	switch {
	case idx == -1:
		if int(pn.NumKeys()) == 0 {
			return nil
		}
		siblingNum = pn.Branches()[0].Child
		nodeIsLeft = true
	case idx == int(pn.NumKeys())-1:
		if idx == 0 {
			siblingNum = pn.LeftmostChild()
		} else {
			siblingNum = pn.Branches()[idx-1].Child
		}
		nodeIsLeft = false
	default:
		siblingNum = pn.Branches()[idx+1].Child
		nodeIsLeft = true
	}

	sbuf, err := t.readPage(siblingNum, autoTrx, true)
	if err != nil {
		return err
	}
	sn := page.NewInternal(sbuf)

	var leftNum, rightNum uint64
	var left, right page.Internal
	if nodeIsLeft {
		leftNum, left, rightNum, right = nodeNum, n, siblingNum, sn
	} else {
		leftNum, left, rightNum, right = siblingNum, sn, nodeNum, n
	}

	if int(left.NumKeys())+int(right.NumKeys())+1 < page.MaxBranches {
		return t.coalesceInternalNodes(leftNum, left, rightNum, right)
	}
	return t.redistributeInternal(leftNum, left, rightNum, right)
}

// coalesceInternalNodes pulls the parent's separator key between left
// and right down as a new branch, appends right's contents onto left,
// reparents right's children, frees right, and removes the separator
// from the parent.
func (t *Tree) coalesceInternalNodes(leftNum uint64, left page.Internal, rightNum uint64, right page.Internal) error {
	parentNum := left.ParentPage()
	pbuf, err := t.readPage(parentNum, 0, false)
	if err != nil {
		return err
	}
	pn := page.NewInternal(pbuf)
	var sepKey int64
	if idx := pn.IndexOfChild(rightNum); idx != -1 {
		sepKey = pn.KeyAt(idx)
	}

	merged := append(left.Branches(), page.Branch{Key: sepKey, Child: right.LeftmostChild()})
	merged = append(merged, right.Branches()...)
	leftmost := left.LeftmostChild()
	left.RebuildFromSorted(leftmost, merged)
	if err := t.writePage(leftNum, left.Bytes()); err != nil {
		return err
	}

	if err := t.setParent(right.LeftmostChild(), leftNum); err != nil {
		return err
	}
	for _, b := range right.Branches() {
		if err := t.setParent(b.Child, leftNum); err != nil {
			return err
		}
	}

	if err := t.table.FreePage(rightNum); err != nil {
		return err
	}
	return t.deleteInternalKey(parentNum, rightNum)
}

// redistributeInternal rotates one branch from the larger node through
// the parent to the smaller one, keeping both above the minimum.
func (t *Tree) redistributeInternal(leftNum uint64, left page.Internal, rightNum uint64, right page.Internal) error {
	parentNum := left.ParentPage()
	pbuf, err := t.readPage(parentNum, autoTrx, true)
	if err != nil {
		return err
	}
	pn := page.NewInternal(pbuf)
	idx := pn.IndexOfChild(rightNum)
	if idx == -1 {
		return nil
	}
	sepKey := pn.KeyAt(idx)

	if int(left.NumKeys()) < page.InternalRedistributeThreshold {
		// borrow right's leftmost child, demoting sepKey into left and
		// promoting right's first branch key to the parent.
		moved := right.LeftmostChild()
		var newSep int64
		if right.NumKeys() > 0 {
			first := right.Branches()[0]
			newSep = first.Key
			right.SetLeftmostChild(first.Child)
			right.RemoveBranchAt(0)
		}
		left.InsertBranch(sepKey, moved)
		if err := t.setParent(moved, leftNum); err != nil {
			return err
		}
		pn.UpdateKeyAt(idx, newSep)
	} else {
		branches := left.Branches()
		last := branches[len(branches)-1]
		left.RemoveBranchAt(len(branches) - 1)

		oldLeftmost := right.LeftmostChild()
		newBranches := append([]page.Branch{{Key: sepKey, Child: oldLeftmost}}, right.Branches()...)
		right.RebuildFromSorted(last.Child, newBranches)

		if err := t.setParent(last.Child, rightNum); err != nil {
			return err
		}
		pn.UpdateKeyAt(idx, last.Key)
	}

	if err := t.writePage(leftNum, left.Bytes()); err != nil {
		return err
	}
	if err := t.writePage(rightNum, right.Bytes()); err != nil {
		return err
	}
	return t.writePage(parentNum, pbuf)
}

// adjustRoot handles an empty root after a deletion: an empty internal
// root promotes its leftmost child; an empty leaf root clears the tree.
func (t *Tree) adjustRoot(rootNum uint64) error {
	buf, err := t.readPage(rootNum, 0, false)
	if err != nil {
		return err
	}
	h := page.NewHeader(buf)
	if h.NumKeys() > 0 {
		return nil
	}
	if h.IsLeaf() {
		if err := t.table.FreePage(rootNum); err != nil {
			return err
		}
		return t.table.SetRootPage(0)
	}
	newRoot := page.NewInternal(buf).LeftmostChild()
	if err := t.setParent(newRoot, 0); err != nil {
		return err
	}
	if err := t.table.FreePage(rootNum); err != nil {
		return err
	}
	return t.table.SetRootPage(newRoot)
}
