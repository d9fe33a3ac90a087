package allocator

import "testing"

// newTestSegment builds a single segment over a plain byte slice, bypassing
// the façade so free-list operations can be exercised directly.
func newTestSegment(t *testing.T, size uintptr) (*segment, []byte) {
	t.Helper()

	buf := make([]byte, size)
	base := sliceBase(buf)
	seg := newSegment(0, base, size)

	return seg, buf
}

func TestBestFitPicksSmallestQualifyingBlock(t *testing.T) {
	seg, _ := newTestSegment(t, 4096)

	// Carve the single initial block into alternating allocated and freed
	// blocks so the free list holds three free blocks of varying size, then
	// inspect bestFit directly against the resulting list.
	hdr := bestFit(seg, 64)
	if hdr == nil {
		t.Fatal("expected the initial block to satisfy a small request")
	}

	split(seg, hdr, 64, DefaultMinSplit)

	if seg.freeHead == nil {
		t.Fatal("expected a free tail after splitting a block much larger than requested")
	}

	if seg.freeHead.size != 4096-headerSize-64-headerSize {
		t.Fatalf("unexpected tail size: got %d", seg.freeHead.size)
	}

	large := bestFit(seg, 400)
	split(seg, large, 400, DefaultMinSplit)

	guard1 := bestFit(seg, 64)
	split(seg, guard1, 64, DefaultMinSplit)

	small := bestFit(seg, 200)
	split(seg, small, 200, DefaultMinSplit)

	guard2 := bestFit(seg, 64)
	split(seg, guard2, 64, DefaultMinSplit)

	// Free the 400- and 200-byte blocks; their allocated neighbors keep them
	// from coalescing, so the list holds 200, 400, and the large tail.
	for _, b := range []*blockHeader{large, small} {
		b.free = true
		if m := coalesce(seg, b); m == b {
			insertFree(seg, b)
		}
	}

	if got := bestFit(seg, 150); got != small {
		t.Fatal("expected bestFit(150) to pick the 200-byte block")
	}

	if got := bestFit(seg, 300); got != large {
		t.Fatal("expected bestFit(300) to pick the 400-byte block")
	}
}

func TestSplitSuppressedWhenResidualTooSmall(t *testing.T) {
	seg, _ := newTestSegment(t, 128)

	hdr := bestFit(seg, 128-headerSize)
	if hdr == nil {
		t.Fatal("expected the whole segment to satisfy an exact request")
	}

	split(seg, hdr, 128-headerSize, DefaultMinSplit)

	if seg.freeHead != nil {
		t.Fatalf("expected no residual free block, got one of size %d", seg.freeHead.size)
	}

	if hdr.free {
		t.Fatal("expected the allocated block to be marked non-free")
	}
}

func TestCoalesceMergesBothNeighbors(t *testing.T) {
	seg, _ := newTestSegment(t, 1024)

	need := uintptr(64) + headerSize

	first := bestFit(seg, need)
	split(seg, first, need, DefaultMinSplit)

	second := bestFit(seg, need)
	split(seg, second, need, DefaultMinSplit)

	// Allocate the whole remaining free block as the third block (its
	// residual after a further split would be zero, so split allocates it
	// unsplit) so all three blocks tiling the segment end up allocated,
	// with nothing left on the free list.
	remaining := seg.freeHead.size
	third := bestFit(seg, remaining)
	split(seg, third, remaining, DefaultMinSplit)

	if seg.freeHead != nil {
		t.Fatalf("expected no free blocks left after three allocations tile the segment, got one of size %d", seg.freeHead.size)
	}

	// Free first and third, leaving second allocated in the middle, then
	// free second and expect the whole segment to collapse to one block.
	first.free = true
	if m := coalesce(seg, first); m == first {
		insertFree(seg, first)
	}

	third.free = true
	if m := coalesce(seg, third); m == third {
		insertFree(seg, third)
	}

	second.free = true

	merged := coalesce(seg, second)
	if merged == second {
		insertFree(seg, merged)
	}

	if seg.freeHead == nil {
		t.Fatal("expected a single merged free block")
	}

	if seg.freeHead.next != nil {
		t.Fatal("expected exactly one free block after full coalescing")
	}

	if seg.freeHead.size != 1024-headerSize {
		t.Fatalf("expected the merged block to reclaim the whole segment, got size %d", seg.freeHead.size)
	}
}

func TestRemoveFreeUnlinksUsingOwnLinks(t *testing.T) {
	seg, _ := newTestSegment(t, 512)

	need := uintptr(32) + headerSize

	a := bestFit(seg, need)
	split(seg, a, need, DefaultMinSplit)

	b := bestFit(seg, need)
	split(seg, b, need, DefaultMinSplit)

	// Only the tail of the second split remains free; removing it directly
	// must not corrupt the list.
	tail := seg.freeHead
	removeFree(seg, tail)

	if seg.freeHead != nil {
		t.Fatalf("expected an empty free list after removing the only free block, got %v", seg.freeHead)
	}
}
