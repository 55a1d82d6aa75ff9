package alloc

import (
	"unsafe"
)

// Header is the bookkeeping record kept for every live allocation.
//
// Headers live in a side table owned by the allocator that produced the
// allocation, keyed by the payload address, so the capacity of a Linear or
// Arena buffer is spent on payload and alignment padding only.
type Header struct {
	// Base is the address of the underlying block before alignment padding.
	// Only the Global allocator releases through it; the others keep it for
	// diagnostics.
	Base uintptr
	// Size is the logical size requested by the caller.
	Size int
	// AllocatorID identifies the producing allocator within its thread.
	// Zero is reserved for the Global allocator.
	AllocatorID uint32
	// ThreadID identifies the thread that owns the producing allocator.
	// Zero for the Global allocator.
	ThreadID uint32
}

// addressOf returns the data pointer of b as an integer. It is 0 for nil.
func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// alignUp rounds v up to a multiple of align, which must be a power of two.
func alignUp(v, align uintptr) uintptr {
	return (v + align - 1) &^ (align - 1)
}

// alignedOffset returns the offset of the first address at or after
// buf[from] that is a multiple of alignment.
func alignedOffset(buf []byte, from, alignment int) int {
	base := addressOf(buf)
	return int(alignUp(base+uintptr(from), uintptr(alignment)) - base)
}

func checkRequest(size, alignment int) error {
	if size < 0 {
		return ErrInvalidSize
	}
	if !isPowerOfTwo(alignment) {
		return ErrInvalidAlignment
	}
	return nil
}
