package allocator

import (
	"time"

	"github.com/dveres/segalloc/internal/hostmem"
)

// Compile-time defaults, enumerated in spec.md §6.
const (
	// DefaultCapacity is C, the total backing region size in bytes (100 MiB).
	DefaultCapacity uintptr = 100 * 1024 * 1024

	// DefaultSegments is N, the segment count: N-1 small segments plus one
	// large segment.
	DefaultSegments = 5

	// DefaultMinSplit is the minimum residual payload, in bytes, below which
	// a split is suppressed and the whole block is handed to the caller.
	DefaultMinSplit uintptr = 32

	// DefaultLargeThreshold is L: requests larger than this skip the timed
	// waits on the small segments and wait only on the large segment. Like
	// every request, they first try the one round-robin small segment.
	DefaultLargeThreshold uintptr = 4 * 1024 * 1024

	// DefaultWaitTimeout is T, the bound on a single segment's timed wait.
	DefaultWaitTimeout = 100 * time.Millisecond
)

// smallShare is the fraction of C distributed across the N-1 small segments.
const smallShare = 0.20

// Config collects the compile-time tunables of the allocator. Zero value
// Config is invalid; use defaultConfig() combined with Options.
type Config struct {
	Capacity       uintptr
	Segments       int
	MinSplit       uintptr
	LargeThreshold uintptr
	WaitTimeout    time.Duration
	HostProvider   hostmem.Provider
}

func defaultConfig() *Config {
	return &Config{
		Capacity:       DefaultCapacity,
		Segments:       DefaultSegments,
		MinSplit:       DefaultMinSplit,
		LargeThreshold: DefaultLargeThreshold,
		WaitTimeout:    DefaultWaitTimeout,
		HostProvider:   hostmem.Default,
	}
}

// Option configures an Allocator at construction time.
type Option func(*Config)

// WithCapacity overrides C, the total backing region size.
func WithCapacity(bytes uintptr) Option {
	return func(c *Config) { c.Capacity = bytes }
}

// WithSegments overrides N, the segment count. n must be at least 2 (one
// small segment plus the large segment); values below that are clamped.
func WithSegments(n int) Option {
	return func(c *Config) {
		if n < 2 {
			n = 2
		}

		c.Segments = n
	}
}

// WithMinSplit overrides MIN_SPLIT_SIZE.
func WithMinSplit(bytes uintptr) Option {
	return func(c *Config) { c.MinSplit = bytes }
}

// WithLargeThreshold overrides L, the large-request threshold.
func WithLargeThreshold(bytes uintptr) Option {
	return func(c *Config) { c.LargeThreshold = bytes }
}

// WithWaitTimeout overrides T, the per-segment timed-wait bound.
func WithWaitTimeout(d time.Duration) Option {
	return func(c *Config) { c.WaitTimeout = d }
}

// WithHostMemory injects the host memory provider used to acquire the
// backing region. Tests use this to swap in a smaller or instrumented
// provider instead of a real mmap.
func WithHostMemory(p hostmem.Provider) Option {
	return func(c *Config) { c.HostProvider = p }
}
