//go:build !unix

package hostmem

// platformProvider falls back to a plain heap allocation on platforms
// without an anonymous-mmap syscall exposed through golang.org/x/sys/unix.
// Release is a no-op: the Go garbage collector reclaims the slice once the
// allocator drops its last reference during Teardown.
type platformProvider struct{}

func (platformProvider) Acquire(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}

	return make([]byte, size), nil
}

func (platformProvider) Release(region []byte) error {
	return nil
}
