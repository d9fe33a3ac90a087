// Package allocator implements a fixed-capacity, thread-safe dynamic memory
// allocator over a single backing region obtained once from the host.
// Segments each carry their own best-fit free list, lock, and condition
// variable; small requests round-robin across the small segments, large
// requests go to a dedicated segment, and a caller with no block available
// waits up to a bounded deadline before giving up.
package allocator

import (
	"fmt"
	"sync"
	"time"
	"unsafe"
)

// Allocator is the façade described in spec.md §4.3-4.5: Allocate, Release,
// and Teardown are its entire public surface.
type Allocator struct {
	cfg *Config

	initMu      sync.Mutex
	initialized bool
	region      []byte
	segments    []*segment

	rrMu    sync.Mutex
	rrIndex int
}

// New constructs an Allocator with the given options layered over the
// defaults in spec.md §6. Initialization of the backing region itself is
// lazy -- it happens on the first call to Allocate, guarded by initMu, per
// spec.md §4.1.
func New(opts ...Option) *Allocator {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	return &Allocator{cfg: cfg}
}

// ensureInit performs the one-shot, idempotent-under-concurrency backing
// region acquisition and segmentation of spec.md §4.1.
func (a *Allocator) ensureInit() error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	if a.initialized {
		return nil
	}

	region, err := a.cfg.HostProvider.Acquire(int(a.cfg.Capacity))
	if err != nil {
		return fmt.Errorf("segalloc: %w: %w", ErrHostMemoryUnavailable, err)
	}

	n := a.cfg.Segments
	base := sliceBase(region)

	smallTotal := uintptr(float64(a.cfg.Capacity) * smallShare)
	perSmall := smallTotal / uintptr(n-1)

	segments := make([]*segment, n)

	cursor := uintptr(0)
	for i := 0; i < n-1; i++ {
		segments[i] = newSegment(i, base+cursor, perSmall)
		cursor += perSmall
	}

	segments[n-1] = newSegment(n-1, base+cursor, a.cfg.Capacity-cursor)

	a.region = region
	a.segments = segments
	a.initialized = true

	return nil
}

// Allocate returns a pointer sizeof(header) past a newly carved block large
// enough for size bytes, or nil on any failure path of spec.md §6/§7: a
// failed first-time init, an oversized request, or every candidate segment
// timing out.
func (a *Allocator) Allocate(size int) unsafe.Pointer {
	if err := a.ensureInit(); err != nil {
		return nil
	}

	need := uintptr(size) + headerSize

	if ptr := a.tryRoundRobin(need); ptr != nil {
		return ptr
	}

	if uintptr(size) > a.cfg.Capacity {
		return nil
	}

	if uintptr(size) <= a.cfg.LargeThreshold {
		return a.allocateSmall(need)
	}

	return a.allocateLarge(need)
}

// tryRoundRobin is spec.md §4.3 steps 2-3: advance the shared round-robin
// index and attempt a single best-fit/split against that one small segment
// before falling back to the full routing policy.
func (a *Allocator) tryRoundRobin(need uintptr) unsafe.Pointer {
	small := a.segments[:len(a.segments)-1]

	a.rrMu.Lock()
	r := a.rrIndex
	a.rrIndex = (a.rrIndex + 1) % len(small)
	a.rrMu.Unlock()

	seg := small[r]

	seg.mu.Lock()
	defer seg.mu.Unlock()

	hdr := bestFit(seg, need)
	if hdr == nil {
		return nil
	}

	split(seg, hdr, need, a.cfg.MinSplit)

	return headerToPayload(hdr)
}

// allocateSmall is spec.md §4.3 step 4 (small path): try every small
// segment in turn, each via a bounded timed wait.
func (a *Allocator) allocateSmall(need uintptr) unsafe.Pointer {
	small := a.segments[:len(a.segments)-1]

	for i, seg := range small {
		if hdr := a.timedWait(seg, need); hdr != nil {
			hdr.segmentID = i
			split(seg, hdr, need, a.cfg.MinSplit)
			seg.mu.Unlock()

			return headerToPayload(hdr)
		}
	}

	return nil
}

// allocateLarge is spec.md §4.3 step 4 (large path): a single timed wait on
// the dedicated large segment.
func (a *Allocator) allocateLarge(need uintptr) unsafe.Pointer {
	large := a.segments[len(a.segments)-1]
	idx := large.index

	hdr := a.timedWait(large, need)
	if hdr == nil {
		return nil
	}

	hdr.segmentID = idx
	split(large, hdr, need, a.cfg.MinSplit)
	large.mu.Unlock()

	return headerToPayload(hdr)
}

// timedWait implements spec.md §4.3's "try, else wait up to T for a
// release, retry" loop. On a hit it returns the winning header with
// seg.mu still held -- the caller must unlock after splitting. On a miss
// (deadline exceeded) it returns nil with the lock already released.
func (a *Allocator) timedWait(seg *segment, need uintptr) *blockHeader {
	seg.mu.Lock()

	deadline := time.Now().Add(a.cfg.WaitTimeout)

	for {
		if hdr := bestFit(seg, need); hdr != nil {
			return hdr
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			seg.mu.Unlock()

			return nil
		}

		seg.waitFor(remaining)
	}
}

// Release returns ptr to its segment's free list, coalescing with
// physically adjacent free neighbors, per spec.md §4.4. Releasing nil is a
// no-op; releasing a foreign pointer or double-releasing is undefined
// behavior and is not detected, per spec.md §7.
func (a *Allocator) Release(ptr unsafe.Pointer) {
	if ptr == nil {
		return
	}

	hdr := payloadToHeader(ptr)
	seg := a.segments[hdr.segmentID]

	seg.mu.Lock()

	hdr.free = true
	merged := coalesce(seg, hdr)

	if merged == hdr {
		insertFree(seg, merged)
	}

	seg.cond.Broadcast()
	seg.mu.Unlock()
}

// Teardown releases all allocator resources. The caller must ensure no
// outstanding allocations or in-flight operations, per spec.md §4.5. A
// subsequent Allocate re-initializes from scratch -- both the backing
// region and the initialized flag are cleared here, unlike the source's
// behavior flagged in spec.md §9.
func (a *Allocator) Teardown() error {
	a.initMu.Lock()
	defer a.initMu.Unlock()

	if !a.initialized {
		return nil
	}

	err := a.cfg.HostProvider.Release(a.region)

	a.region = nil
	a.segments = nil
	a.initialized = false

	if err != nil {
		return fmt.Errorf("segalloc: release backing region: %w", err)
	}

	return nil
}
