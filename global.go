package alloc

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
)

// heapBlock is the side-table entry for one Global allocation.
type heapBlock struct {
	raw []byte // the whole block obtained from the heap
	off int    // payload offset within raw
	hdr Header
}

// The Global side table is process-wide so every Global value sees every
// Global allocation.
var (
	heapBlocks sync.Map // payload address -> *heapBlock
	heapInUse  atomic.Int64
	heapLimit  atomic.Int64
)

// Global allocates from the Go heap, adding alignment support and header
// bookkeeping. Global values are interchangeable and safe for concurrent
// use; every allocation carries allocator id 0.
type Global struct {
	NoReset
}

// Heap is the shared Global allocator and the default active allocator of
// every Context.
var Heap = &Global{}

var _ Allocator = (*Global)(nil)

// HeapInUse returns the number of heap bytes held by live Global
// allocations, padding included.
func HeapInUse() int64 {
	return heapInUse.Load()
}

// SetHeapLimit caps HeapInUse. Requests that would exceed it fail with
// ErrOutOfMemory. Zero or a negative value removes the cap.
//
// Without a cap, a request the runtime cannot satisfy aborts the process
// like any other Go allocation; only absurd lengths come back as errors.
func SetHeapLimit(n int64) {
	if n < 0 {
		n = 0
	}
	heapLimit.Store(n)
}

// Allocate requests size+alignment bytes from the heap and returns the first
// aligned address inside them.
func (g *Global) Allocate(size, alignment int) ([]byte, error) {
	if err := checkRequest(size, alignment); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if size > math.MaxInt-alignment {
		return nil, ErrOutOfMemory
	}
	raw, err := heapAlloc(size + alignment)
	if err != nil {
		return nil, err
	}
	off := alignedOffset(raw, 0, alignment)
	return storeHeapBlock(raw, off, size), nil
}

// Resize keeps b in place when its block still holds size bytes at an
// aligned address. Otherwise the block is reallocated and, if the aligned
// payload offset changed, the payload is shifted to the new offset.
func (g *Global) Resize(b []byte, size, alignment int) ([]byte, error) {
	if b == nil {
		return g.Allocate(size, alignment)
	}
	if err := checkRequest(size, alignment); err != nil {
		return nil, err
	}
	addr := addressOf(b)
	blk := lookupHeapBlock("resize", addr)
	if size == 0 {
		g.Free(b)
		return nil, nil
	}

	if blk.off+size <= len(blk.raw) && addr&uintptr(alignment-1) == 0 {
		blk.hdr.Size = size
		return blk.raw[blk.off : blk.off+size : blk.off+size], nil
	}

	// The new block must hold the payload both at its old offset, where the
	// copy below leaves it, and at the newly aligned one.
	pad := max(alignment, blk.off)
	if size > math.MaxInt-pad {
		return nil, ErrOutOfMemory
	}
	raw, err := heapAlloc(size + pad)
	if err != nil {
		return nil, err
	}
	copy(raw, blk.raw)

	keep := min(blk.hdr.Size, size)
	off := alignedOffset(raw, 0, alignment)
	if off != blk.off {
		copy(raw[off:off+keep], raw[blk.off:blk.off+keep])
	}

	heapBlocks.Delete(addr)
	heapInUse.Add(-int64(len(blk.raw)))
	return storeHeapBlock(raw, off, size), nil
}

// Free releases the block behind b.
func (g *Global) Free(b []byte) {
	if b == nil {
		return
	}
	v, ok := heapBlocks.LoadAndDelete(addressOf(b))
	if !ok {
		foreignHeapAddress("free", addressOf(b))
		misuse("free: address %#x was not allocated by the global allocator", addressOf(b))
	}
	blk := v.(*heapBlock)
	checkGlobalHeader("free", &blk.hdr)
	heapInUse.Add(-int64(len(blk.raw)))
}

// HeaderOf returns the header of a live Global allocation.
func (g *Global) HeaderOf(b []byte) (Header, bool) {
	v, ok := heapBlocks.Load(addressOf(b))
	if !ok {
		return Header{}, false
	}
	return v.(*heapBlock).hdr, true
}

func storeHeapBlock(raw []byte, off, size int) []byte {
	b := raw[off : off+size : off+size]
	heapBlocks.Store(addressOf(b), &heapBlock{
		raw: raw,
		off: off,
		hdr: Header{Base: addressOf(raw), Size: size},
	})
	return b
}

func lookupHeapBlock(op string, addr uintptr) *heapBlock {
	v, ok := heapBlocks.Load(addr)
	if !ok {
		foreignHeapAddress(op, addr)
		misuse("%s: address %#x was not allocated by the global allocator", op, addr)
	}
	blk := v.(*heapBlock)
	checkGlobalHeader(op, &blk.hdr)
	return blk
}

// foreignHeapAddress names the owner of an address the global allocator
// does not know, when another allocator has it live.
func foreignHeapAddress(op string, addr uintptr) {
	if h, owned := ownerOf(nil, addr); owned {
		checkGlobalHeader(op, &h)
	}
}

// heapAlloc reserves n bytes against the heap limit and allocates them.
func heapAlloc(n int) ([]byte, error) {
	used := heapInUse.Add(int64(n))
	if limit := heapLimit.Load(); limit > 0 && used > limit {
		heapInUse.Add(-int64(n))
		logger().Warn("global allocator limit reached", "request", n, "limit", limit)
		return nil, ErrOutOfMemory
	}
	raw, err := makeBlock(n)
	if err != nil {
		heapInUse.Add(-int64(n))
		logger().Warn("global allocator request failed", "request", n, "err", err)
		return nil, err
	}
	return raw, nil
}

// makeBlock turns the runtime's length panic into an error. A genuine
// out-of-memory inside the accepted length range still aborts the process;
// SetHeapLimit is the way to get ErrOutOfMemory instead.
func makeBlock(n int) (raw []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, errors.Wrapf(ErrOutOfMemory, "global: %v", r)
		}
	}()
	return make([]byte, n), nil
}
