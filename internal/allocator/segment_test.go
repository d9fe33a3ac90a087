package allocator

import (
	"testing"
	"time"
)

func TestNewSegmentStartsWithOneFreeBlock(t *testing.T) {
	buf := make([]byte, 256)
	seg := newSegment(2, sliceBase(buf), 256)

	if seg.freeHead == nil {
		t.Fatal("expected a single free block on creation")
	}

	if seg.freeHead.size != 256-headerSize {
		t.Fatalf("expected free size %d, got %d", 256-headerSize, seg.freeHead.size)
	}

	if seg.freeHead.segmentID != 2 {
		t.Fatalf("expected segmentID 2, got %d", seg.freeHead.segmentID)
	}

	if seg.freeHead.physPrev != nil {
		t.Fatal("expected the first physical block to have no physical predecessor")
	}
}

func TestWaitForReturnsOnBroadcast(t *testing.T) {
	buf := make([]byte, 256)
	seg := newSegment(0, sliceBase(buf), 256)

	seg.mu.Lock()

	done := make(chan struct{})

	go func() {
		seg.mu.Lock()
		seg.cond.Broadcast()
		seg.mu.Unlock()
		close(done)
	}()

	seg.waitFor(time.Second)
	seg.mu.Unlock()

	<-done
}

func TestWaitForRespectsDeadline(t *testing.T) {
	buf := make([]byte, 256)
	seg := newSegment(0, sliceBase(buf), 256)

	seg.mu.Lock()
	start := time.Now()
	seg.waitFor(20 * time.Millisecond)
	seg.mu.Unlock()

	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("expected waitFor to block roughly until the deadline, returned after %s", elapsed)
	}
}
