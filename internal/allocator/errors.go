package allocator

import "errors"

// ErrHostMemoryUnavailable means the one-shot backing region acquisition from
// the host failed during ensureInit. Allocate itself never returns this
// directly -- its public contract stays null-returning, per spec.md §6 --
// but ensureInit wraps it with %w so tests can assert on the failure kind
// with errors.Is instead of scraping log output. The other failure kinds in
// spec.md §7 (oversized request, capacity exhaustion) carry no extra detail
// worth a sentinel: they are fully described by the nil return itself.
var ErrHostMemoryUnavailable = errors.New("segalloc: host memory unavailable")
