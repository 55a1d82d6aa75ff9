package alloc

import (
	"encoding/binary"
)

// freeLinkSize is the width of the free-list link stored inside a free
// block, and therefore the smallest block an Arena accepts.
const freeLinkSize = 8

type arenaBlock struct {
	Header
	live bool
}

// Arena carves a Linear allocator's buffer into fixed-size, fixed-alignment
// blocks and recycles freed blocks through an intrusive free list: the
// first bytes of a free block hold the 1-based index of the next free block.
//
// Blocks are carved lazily from the Linear cursor only when the free list is
// empty. Reset rewinds the cursor and forgets the list, so every block
// becomes uncarved again.
type Arena struct {
	lin        Linear
	blockSize  int
	blockAlign int
	stride     int
	first      int // offset of block 0, -1 until a block is carved
	freeHead   int // 1-based index of the first free block, 0 when empty
	inUse      int
	blocks     []arenaBlock // indexed by block number
	claim      *bufferClaim
}

var _ Allocator = (*Arena)(nil)

// NewArena returns an Arena over buf owned by owner's thread. blockSize must
// be at least 8 and blockAlignment a power of two.
func NewArena(owner *Context, buf []byte, blockSize, blockAlignment int) *Arena {
	a := &Arena{}
	a.init(owner, buf, blockSize, blockAlignment)
	a.claim = claimBuffer(buf, a.liveAt, a.liveWithin)
	return a
}

func (a *Arena) init(owner *Context, buf []byte, blockSize, blockAlignment int) {
	if blockSize < freeLinkSize {
		misuse("arena: block size %d is smaller than the %d-byte free-list link", blockSize, freeLinkSize)
	}
	if !isPowerOfTwo(blockAlignment) {
		misuse("arena: block alignment %d is not a power of two", blockAlignment)
	}
	a.lin.init(owner, buf)
	a.blockSize = blockSize
	a.blockAlign = blockAlignment
	a.stride = int(alignUp(uintptr(blockSize), uintptr(blockAlignment)))
	a.first = -1
}

// ID returns the allocator id, unique within the owning thread.
func (a *Arena) ID() uint32 { return a.lin.id }

// ThreadID returns the logical id of the owning thread.
func (a *Arena) ThreadID() uint32 { return a.lin.thread }

// BlockSize returns the fixed block size.
func (a *Arena) BlockSize() int { return a.blockSize }

// BlockAlignment returns the alignment every block satisfies.
func (a *Arena) BlockAlignment() int { return a.blockAlign }

// Allocate hands out one block. Requests larger than the block size fail
// with ErrBlockSize and alignments stricter than the block alignment with
// ErrInvalidAlignment.
func (a *Arena) Allocate(size, alignment int) ([]byte, error) {
	a.lin.checkThread("allocate")
	if err := checkRequest(size, alignment); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	if size > a.blockSize {
		return nil, ErrBlockSize
	}
	if alignment > a.blockAlign {
		return nil, ErrInvalidAlignment
	}

	if a.claim.isShared() {
		a.checkShared()
	}
	idx, ok := a.pop()
	if !ok {
		if idx, ok = a.carve(); !ok {
			return nil, ErrOutOfMemory
		}
	}
	off := a.offset(idx)
	blk := &a.blocks[idx]
	blk.Header = Header{Base: addressOf(a.lin.buf) + uintptr(off), Size: size}
	a.lin.stamp(&blk.Header)
	blk.live = true
	a.inUse++
	return a.lin.buf[off : off+size : off+size], nil
}

// Resize adjusts the logical size within the block. Growing past the block
// size is not supported.
func (a *Arena) Resize(b []byte, size, alignment int) ([]byte, error) {
	if b == nil {
		return a.Allocate(size, alignment)
	}
	a.lin.checkThread("resize")
	if err := checkRequest(size, alignment); err != nil {
		return nil, err
	}
	idx := a.find("resize", b)
	if size == 0 {
		a.release(idx)
		return nil, nil
	}
	if size > a.blockSize {
		return nil, ErrBlockSize
	}
	if alignment > a.blockAlign {
		return nil, ErrInvalidAlignment
	}
	a.blocks[idx].Size = size
	off := a.offset(idx)
	return a.lin.buf[off : off+size : off+size], nil
}

// Free pushes b's block onto the free list.
func (a *Arena) Free(b []byte) {
	if b == nil {
		return
	}
	a.lin.checkThread("free")
	a.release(a.find("free", b))
}

// Reset rewinds the underlying Linear cursor and discards the free list.
func (a *Arena) Reset() {
	a.lin.Reset()
	a.first = -1
	a.freeHead = 0
	a.inUse = 0
	a.blocks = a.blocks[:0]
}

// HeaderOf returns the header of a live allocation of a.
func (a *Arena) HeaderOf(b []byte) (Header, bool) {
	return a.liveAt(addressOf(b))
}

func (a *Arena) liveAt(addr uintptr) (Header, bool) {
	idx, ok := a.search(addr)
	if !ok || !a.blocks[idx].live {
		return Header{}, false
	}
	return a.blocks[idx].Header, true
}

// liveWithin treats a live block as occupying its whole block size.
func (a *Arena) liveWithin(lo, hi uintptr) (Header, bool) {
	base := addressOf(a.lin.buf)
	for idx, blk := range a.blocks {
		start := base + uintptr(a.offset(idx))
		if blk.live && start < hi && lo < start+uintptr(a.blockSize) {
			return blk.Header, true
		}
	}
	return Header{}, false
}

// checkShared verifies the block the next Allocate hands out is not in use
// by another allocator carving an overlapping buffer.
func (a *Arena) checkShared() {
	var off int
	if a.freeHead != 0 {
		off = a.offset(a.freeHead - 1)
	} else if next, ok := a.lin.fit(a.blockSize, a.blockAlign); ok {
		off = next
	} else {
		return
	}
	base := addressOf(a.lin.buf)
	a.lin.checkDisjoint("allocate", a.claim, base+uintptr(off), base+uintptr(off+a.blockSize))
}

func (a *Arena) offset(idx int) int {
	return a.first + idx*a.stride
}

func (a *Arena) pop() (int, bool) {
	if a.freeHead == 0 {
		return 0, false
	}
	idx := a.freeHead - 1
	off := a.offset(idx)
	a.freeHead = int(binary.LittleEndian.Uint64(a.lin.buf[off : off+freeLinkSize]))
	return idx, true
}

// carve takes a new block from the Linear cursor. Every block after the
// first lands exactly one stride after its predecessor.
func (a *Arena) carve() (int, bool) {
	off, ok := a.lin.fit(a.blockSize, a.blockAlign)
	if !ok {
		return 0, false
	}
	if a.first < 0 {
		a.first = off
	}
	a.lin.bump = off + a.blockSize
	a.blocks = append(a.blocks, arenaBlock{})
	return len(a.blocks) - 1, true
}

func (a *Arena) release(idx int) {
	blk := &a.blocks[idx]
	if !blk.live {
		return
	}
	blk.live = false
	a.inUse--
	off := a.offset(idx)
	binary.LittleEndian.PutUint64(a.lin.buf[off:off+freeLinkSize], uint64(a.freeHead))
	a.freeHead = idx + 1
}

func (a *Arena) search(addr uintptr) (int, bool) {
	if a.first < 0 {
		return 0, false
	}
	start := addressOf(a.lin.buf) + uintptr(a.first)
	if addr < start || addr-start >= uintptr(len(a.lin.buf)-a.first) {
		return 0, false
	}
	d := int(addr - start)
	if d%a.stride != 0 || d/a.stride >= len(a.blocks) {
		return 0, false
	}
	return d / a.stride, true
}

// find resolves b to its block index or reports a misuse.
func (a *Arena) find(op string, b []byte) int {
	addr := addressOf(b)
	idx, ok := a.search(addr)
	if SafetyEnabled && (!ok || !a.blocks[idx].live) {
		if h, owned := ownerOf(a.claim, addr); owned {
			a.lin.checkHeader(op, &h)
		}
	}
	if !ok {
		misuse("%s: address %#x is not a block of arena allocator %d (thread %d)",
			op, addr, a.lin.id, a.lin.thread)
	}
	if SafetyEnabled && !a.blocks[idx].live {
		misuse("%s: block at %#x of arena allocator %d was already released", op, addr, a.lin.id)
	}
	a.lin.checkHeader(op, &a.blocks[idx].Header)
	return idx
}
