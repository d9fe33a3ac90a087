package allocator

import (
	"sync"
	"time"
)

// segment is a contiguous sub-range of the backing region with its own free
// list, mutex, and condition variable, per spec.md §3. start and end are
// absolute addresses into the backing region (end is exclusive).
type segment struct {
	mu       sync.Mutex
	cond     *sync.Cond
	freeHead *blockHeader
	start    uintptr
	end      uintptr
	index    int
}

// newSegment creates a segment spanning [start, start+size) and writes its
// single initial free block header, per spec.md §4.1 step (d). Caller must
// not hold any lock.
func newSegment(index int, start, size uintptr) *segment {
	seg := &segment{index: index, start: start, end: start + size}
	seg.cond = sync.NewCond(&seg.mu)

	hdr := headerAt(start)
	hdr.size = size - headerSize
	hdr.free = true
	hdr.segmentID = index
	hdr.physPrev = nil
	hdr.prev = nil
	hdr.next = nil
	seg.freeHead = hdr

	return seg
}

// waitFor blocks on the segment's condition variable for at most d,
// retrying by returning to the caller's best-fit loop on wakeup. Callers
// must hold seg.mu. sync.Cond has no native deadline, so a one-shot timer
// forces a Broadcast at the deadline; this is the idiomatic way to bound a
// condition-variable wait in Go without a third-party primitive (no example
// in this codebase's dependency family implements a timed condition
// variable, so none is introduced here -- see DESIGN.md).
func (s *segment) waitFor(d time.Duration) {
	// The timer takes s.mu before broadcasting, so it cannot fire in the
	// window before Wait has registered this waiter and be lost.
	timer := time.AfterFunc(d, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	s.cond.Wait()
}
