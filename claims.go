package alloc

import (
	"sync"
	"sync/atomic"
	"weak"
)

// bufferClaim records the buffer an allocator carves, so an address handed
// to the wrong allocator can be traced back to the one that owns it. Claims
// exist only in safety mode.
type bufferClaim struct {
	lo, hi uintptr
	shared atomic.Bool // another allocator carves an overlapping buffer

	// liveAt returns the header of the live allocation starting at addr.
	liveAt func(addr uintptr) (Header, bool)
	// liveWithin returns the header of a live allocation intersecting [lo, hi).
	liveWithin func(lo, hi uintptr) (Header, bool)
}

// claims holds every claim weakly: a claim dies with its allocator.
var claims struct {
	mu   sync.Mutex
	list []weak.Pointer[bufferClaim]
}

// claimBuffer registers buf for an allocator and marks every claim whose
// buffer overlaps it as shared.
func claimBuffer(
	buf []byte, liveAt func(uintptr) (Header, bool), liveWithin func(lo, hi uintptr) (Header, bool),
) *bufferClaim {
	if !SafetyEnabled || len(buf) == 0 {
		return nil
	}
	c := &bufferClaim{
		lo:         addressOf(buf),
		hi:         addressOf(buf) + uintptr(len(buf)),
		liveAt:     liveAt,
		liveWithin: liveWithin,
	}

	claims.mu.Lock()
	defer claims.mu.Unlock()
	kept := claims.list[:0]
	for _, wp := range claims.list {
		other := wp.Value()
		if other == nil {
			continue
		}
		kept = append(kept, wp)
		if other.lo < c.hi && c.lo < other.hi {
			other.shared.Store(true)
			c.shared.Store(true)
			logger().Warn("allocator buffers overlap",
				"buffer", c.lo, "size", len(buf), "other", other.lo, "otherSize", other.hi-other.lo)
		}
	}
	claims.list = append(kept, weak.Make(c))
	return c
}

// ownerOf finds the allocator, other than self, holding a live allocation at
// addr.
func ownerOf(self *bufferClaim, addr uintptr) (Header, bool) {
	return scanClaims(self, addr, addr+1, func(c *bufferClaim) (Header, bool) {
		return c.liveAt(addr)
	})
}

// isShared reports whether self's buffer overlaps another allocator's.
func (c *bufferClaim) isShared() bool {
	return c != nil && c.shared.Load()
}

// checkDisjoint verifies no other allocator sharing c's buffer holds a live
// allocation within [lo, hi), which self is about to hand out.
func (o *identity) checkDisjoint(op string, c *bufferClaim, lo, hi uintptr) {
	h, taken := scanClaims(c, lo, hi, func(other *bufferClaim) (Header, bool) {
		return other.liveWithin(lo, hi)
	})
	if taken {
		misuse("%s: block [%#x, %#x) of allocator %d (thread %d) overlaps a live allocation "+
			"of allocator %d (thread %d) in a shared buffer", op, lo, hi, o.id, o.thread, h.AllocatorID, h.ThreadID)
	}
}

func scanClaims(self *bufferClaim, lo, hi uintptr, match func(*bufferClaim) (Header, bool)) (Header, bool) {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	for _, wp := range claims.list {
		c := wp.Value()
		if c == nil || c == self || hi <= c.lo || c.hi <= lo {
			continue
		}
		if h, ok := match(c); ok {
			return h, true
		}
	}
	return Header{}, false
}
