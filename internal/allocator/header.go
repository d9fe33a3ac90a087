package allocator

import "unsafe"

// blockHeader prefixes every block, free or allocated, per spec.md §3. It is
// written in-band at the front of the block inside the backing region, so
// headerSize is the fixed footprint every block pays regardless of payload.
//
// prev/next are the per-segment free-list links and are meaningful only
// while free=true (invariant 6: an allocated block's prev/next may be
// stale and must never be inspected). physPrev is always valid -- it is
// the block's physical predecessor inside the segment, maintained across
// every split and coalesce -- which is what lets Release find its left
// neighbor in O(1) without trusting the just-freed block's own stale
// free-list links (spec.md §9's resolved open question).
type blockHeader struct {
	prev      *blockHeader
	next      *blockHeader
	physPrev  *blockHeader
	size      uintptr
	segmentID int
	free      bool
}

// headerSize is sizeof(header) in spec.md's vocabulary: the fixed in-band
// footprint every block pays ahead of its payload.
var headerSize = unsafe.Sizeof(blockHeader{})

// headerAt reinterprets the byte at addr as a block header. addr must point
// at a live header within some segment's address range.
func headerAt(addr uintptr) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(addr))
}

// headerToPayload returns the address handed to callers: the first byte
// past hdr's header.
func headerToPayload(hdr *blockHeader) unsafe.Pointer {
	return unsafe.Add(unsafe.Pointer(hdr), headerSize)
}

// payloadToHeader recovers the header of a block from a pointer previously
// returned by Allocate.
func payloadToHeader(ptr unsafe.Pointer) *blockHeader {
	return (*blockHeader)(unsafe.Pointer(uintptr(ptr) - headerSize))
}

// physicalRight returns hdr's physical right neighbor within [*, segEnd), or
// nil if hdr is the last block in the segment. Adjacency is inferred purely
// from address arithmetic, never from free-list linkage, per spec.md §3.
func physicalRight(hdr *blockHeader, segEnd uintptr) *blockHeader {
	addr := uintptr(unsafe.Pointer(hdr)) + headerSize + hdr.size
	if addr >= segEnd {
		return nil
	}

	return headerAt(addr)
}

// sliceBase returns the address of a byte slice's first element, the base
// every segment's offsets are computed from.
func sliceBase(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}
