package allocator

// All operations in this file require the owning segment's mutex held by
// the caller, per spec.md §4.2.

// bestFit returns the smallest free block whose size is at least need, or
// nil if none qualifies. Ties break in list order (first encountered
// wins). O(F) in the segment's free count.
func bestFit(seg *segment, need uintptr) *blockHeader {
	var best *blockHeader

	for cur := seg.freeHead; cur != nil; cur = cur.next {
		if cur.size >= need && (best == nil || cur.size < best.size) {
			best = cur
		}
	}

	return best
}

// insertFree links hdr at the head of seg's free list and marks it free.
func insertFree(seg *segment, hdr *blockHeader) {
	hdr.free = true
	hdr.prev = nil
	hdr.next = seg.freeHead

	if seg.freeHead != nil {
		seg.freeHead.prev = hdr
	}

	seg.freeHead = hdr
}

// removeFree unlinks hdr from seg's free list using hdr's own prev/next,
// not a predecessor's stale next-of-next. coalesce uses it to take a free
// right neighbor off the list; split does the same own-links unlink inline.
func removeFree(seg *segment, hdr *blockHeader) {
	prev, next := hdr.prev, hdr.next

	if prev != nil {
		prev.next = next
	} else {
		seg.freeHead = next
	}

	if next != nil {
		next.prev = prev
	}

	hdr.prev, hdr.next = nil, nil
	hdr.free = false
}

// split carves need bytes off hdr, which must currently be a free-list
// member with hdr.size >= need. If the residual is large enough to carry
// MIN_SPLIT_SIZE payload bytes plus a header, a new free tail block is
// written and spliced into hdr's old free-list slot; otherwise the whole
// block is handed to the caller unsplit. Either way hdr is unlinked from
// the free list and marked allocated. Requires seg.mu held.
func split(seg *segment, hdr *blockHeader, need uintptr, minSplit uintptr) {
	prevLink, nextLink := hdr.prev, hdr.next
	residual := hdr.size - need

	if residual >= minSplit+headerSize {
		tail := headerAt(uintptr(headerToPayloadAddr(hdr)) + need)
		tail.size = residual - headerSize
		tail.free = true
		tail.segmentID = hdr.segmentID
		tail.physPrev = hdr

		if rn := physicalRight(tail, seg.end); rn != nil {
			rn.physPrev = tail
		}

		tail.prev = prevLink
		tail.next = nextLink

		if prevLink != nil {
			prevLink.next = tail
		} else {
			seg.freeHead = tail
		}

		if nextLink != nil {
			nextLink.prev = tail
		}

		hdr.size = need
		hdr.free = false
		hdr.prev, hdr.next = nil, nil

		return
	}

	if prevLink != nil {
		prevLink.next = nextLink
	} else {
		seg.freeHead = nextLink
	}

	if nextLink != nil {
		nextLink.prev = prevLink
	}

	hdr.prev, hdr.next = nil, nil
	hdr.free = false
}

// headerToPayloadAddr is the address form of headerToPayload, used for the
// tail-header arithmetic in split.
func headerToPayloadAddr(hdr *blockHeader) uintptr {
	return uintptr(headerToPayload(hdr))
}

// coalesce merges freed -- already marked free by the caller but not yet
// linked into the free list -- with its left then right physical neighbor,
// if each is itself free. It returns the block that now represents the
// merged run. Neighbor discovery is by address arithmetic over physPrev,
// which is always current, never by freed's own (possibly stale) free-list
// links -- the fix for the source's coalesce bug in spec.md §9. Requires
// seg.mu held.
func coalesce(seg *segment, freed *blockHeader) *blockHeader {
	merged := freed

	if left := merged.physPrev; left != nil && left.free {
		left.size += headerSize + merged.size

		if rn := physicalRight(left, seg.end); rn != nil {
			rn.physPrev = left
		}

		merged = left
	}

	if right := physicalRight(merged, seg.end); right != nil && right.free {
		removeFree(seg, right)

		merged.size += headerSize + right.size

		if rn := physicalRight(merged, seg.end); rn != nil {
			rn.physPrev = merged
		}
	}

	return merged
}
