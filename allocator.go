package alloc

// Allocator is the capability every allocation strategy implements.
//
// Addresses are byte slices: the data pointer is the address, len is the
// logical size and cap equals len. A nil slice is the null address.
type Allocator interface {
	// Allocate returns size bytes whose address is a multiple of alignment,
	// which must be a power of two. Exhaustion is reported as ErrOutOfMemory.
	// A zero size returns (nil, nil).
	Allocate(size, alignment int) ([]byte, error)

	// Free releases b. Freeing nil is a no-op.
	Free(b []byte)

	// Resize changes the size of b, moving it when the strategy must. The
	// first min(len(b), size) bytes are preserved. On failure b is left
	// intact. Resize(nil, ...) allocates; a zero size frees.
	Resize(b []byte, size, alignment int) ([]byte, error)

	// Reset invalidates every allocation at once. Strategies that cannot do
	// that treat it as a fatal misuse.
	Reset()
}

// NoReset supplies the default Reset behavior: calling it is fatal.
type NoReset struct{}

// Reset always reports a misuse.
func (NoReset) Reset() {
	misuse("reset: allocator does not support reset")
}
