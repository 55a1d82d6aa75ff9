package alloc

import (
	"cmp"
	"slices"
)

// linearRecord is a Linear allocation's side-table entry.
type linearRecord struct {
	Header
	off  int // payload offset within the buffer
	dead bool
}

// Linear is a bump allocator over a caller-supplied buffer. Only the most
// recent allocation can be resized in place; individual frees reclaim
// nothing and Reset reclaims everything in O(1).
//
// A Linear is confined to the thread of the Context that constructed it.
// Allocators must not carve overlapping buffers: in safety mode, handing out
// memory that another allocator holds live is a fatal misuse.
type Linear struct {
	identity
	buf     []byte
	bump    int
	last    int // payload offset of the most recent allocation, -1 if none
	live    int
	records []linearRecord // ascending by off
	claim   *bufferClaim
}

var _ Allocator = (*Linear)(nil)

// NewLinear returns a Linear allocator over buf owned by owner's thread.
// A nil owner binds it to a fresh anonymous thread identity.
func NewLinear(owner *Context, buf []byte) *Linear {
	l := &Linear{}
	l.init(owner, buf)
	l.claim = claimBuffer(buf, l.liveAt, l.liveWithin)
	return l
}

func (l *Linear) init(owner *Context, buf []byte) {
	l.identity = newIdentity(owner)
	l.buf = buf
	l.last = -1
}

// Allocate bumps the cursor past an aligned block of size bytes. When the
// block does not fit, ErrOutOfMemory is returned and nothing changes.
func (l *Linear) Allocate(size, alignment int) ([]byte, error) {
	l.checkThread("allocate")
	if err := checkRequest(size, alignment); err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, nil
	}
	off, ok := l.fit(size, alignment)
	if !ok {
		return nil, ErrOutOfMemory
	}
	if l.claim.isShared() {
		base := addressOf(l.buf)
		l.checkDisjoint("allocate", l.claim, base+uintptr(off), base+uintptr(off+size))
	}

	h := Header{Base: addressOf(l.buf) + uintptr(l.bump), Size: size}
	l.stamp(&h)
	l.records = append(l.records, linearRecord{Header: h, off: off})
	l.bump = off + size
	l.last = off
	l.live++
	return l.buf[off : off+size : off+size], nil
}

// Resize grows or shrinks the most recent allocation in place. Any other
// allocation is copied into a fresh block; its old space stays consumed
// until Reset.
func (l *Linear) Resize(b []byte, size, alignment int) ([]byte, error) {
	if b == nil {
		return l.Allocate(size, alignment)
	}
	l.checkThread("resize")
	if err := checkRequest(size, alignment); err != nil {
		return nil, err
	}
	i := l.find("resize", b)
	if size == 0 {
		l.kill(i)
		return nil, nil
	}

	off := l.records[i].off
	if off == l.last && addressOf(b)&uintptr(alignment-1) == 0 {
		if size > len(l.buf)-off {
			return nil, ErrOutOfMemory
		}
		if l.claim.isShared() && size > l.records[i].Size {
			base := addressOf(l.buf)
			l.checkDisjoint("resize", l.claim, base+uintptr(off+l.records[i].Size), base+uintptr(off+size))
		}
		l.bump = off + size
		l.records[i].Size = size
		return l.buf[off : off+size : off+size], nil
	}

	keep := min(l.records[i].Size, size)
	nb, err := l.Allocate(size, alignment)
	if err != nil {
		return nil, err
	}
	copy(nb, l.buf[off:off+keep])
	l.kill(i)
	return nb, nil
}

// Free only validates b; the space comes back on Reset.
func (l *Linear) Free(b []byte) {
	if b == nil {
		return
	}
	l.checkThread("free")
	l.kill(l.find("free", b))
}

// Reset rewinds the cursor to the start of the buffer. Every address
// returned so far becomes invalid.
func (l *Linear) Reset() {
	l.checkThread("reset")
	l.bump = 0
	l.last = -1
	l.live = 0
	l.records = l.records[:0]
}

// HeaderOf returns the header of a live allocation of l.
func (l *Linear) HeaderOf(b []byte) (Header, bool) {
	return l.liveAt(addressOf(b))
}

func (l *Linear) liveAt(addr uintptr) (Header, bool) {
	i, ok := l.search(addr)
	if !ok || l.records[i].dead {
		return Header{}, false
	}
	return l.records[i].Header, true
}

func (l *Linear) liveWithin(lo, hi uintptr) (Header, bool) {
	base := addressOf(l.buf)
	for _, r := range l.records {
		start := base + uintptr(r.off)
		if !r.dead && start < hi && lo < start+uintptr(r.Size) {
			return r.Header, true
		}
	}
	return Header{}, false
}

// fit returns the payload offset of an aligned block of size bytes placed
// at the cursor, if it fits the buffer.
func (l *Linear) fit(size, alignment int) (int, bool) {
	off := alignedOffset(l.buf, l.bump, alignment)
	if off > len(l.buf) || size > len(l.buf)-off {
		return 0, false
	}
	return off, true
}

func (l *Linear) search(addr uintptr) (int, bool) {
	base := addressOf(l.buf)
	if addr < base || addr >= base+uintptr(len(l.buf)) {
		return 0, false
	}
	return slices.BinarySearchFunc(l.records, int(addr-base), func(r linearRecord, off int) int {
		return cmp.Compare(r.off, off)
	})
}

// find resolves b to its record index or reports a misuse.
func (l *Linear) find(op string, b []byte) int {
	addr := addressOf(b)
	i, ok := l.search(addr)
	if SafetyEnabled && (!ok || l.records[i].dead) {
		// A live allocation of another allocator names its owner.
		if h, owned := ownerOf(l.claim, addr); owned {
			l.checkHeader(op, &h)
		}
	}
	if !ok {
		misuse("%s: address %#x is not an allocation of linear allocator %d (thread %d)",
			op, addr, l.id, l.thread)
	}
	if SafetyEnabled && l.records[i].dead {
		misuse("%s: address %#x of linear allocator %d was already released", op, addr, l.id)
	}
	l.checkHeader(op, &l.records[i].Header)
	return i
}

func (l *Linear) kill(i int) {
	if !l.records[i].dead {
		l.records[i].dead = true
		l.live--
	}
}
