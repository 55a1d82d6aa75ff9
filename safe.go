package alloc

import (
	"sync/atomic"
)

// threadIDs hands out logical thread ids. Zero belongs to the Global allocator.
var threadIDs atomic.Uint32

// identity ties an allocator instance to the thread that constructed it.
// Linear, Arena and Inline allocators carry no locks: confinement to the
// owning thread replaces synchronization, and identity is how a violation
// is noticed.
type identity struct {
	id     uint32
	thread uint32
	osTID  int // 0 when the owner is not pinned to an OS thread
}

// newIdentity allocates the next allocator id of owner. A nil owner binds
// the allocator to a fresh anonymous thread.
func newIdentity(owner *Context) identity {
	if owner == nil {
		return identity{id: 1, thread: threadIDs.Add(1)}
	}
	owner.allocatorIDs++
	return identity{id: owner.allocatorIDs, thread: owner.thread, osTID: owner.osTID}
}

// ID returns the allocator id, unique within the owning thread.
func (o *identity) ID() uint32 { return o.id }

// ThreadID returns the logical id of the owning thread.
func (o *identity) ThreadID() uint32 { return o.thread }

func (o *identity) stamp(h *Header) {
	h.AllocatorID = o.id
	h.ThreadID = o.thread
}

// checkThread verifies the caller runs on the owner's OS thread. Owners that
// were never pinned cannot be checked.
func (o *identity) checkThread(op string) {
	if !SafetyEnabled || o.osTID == 0 {
		return
	}
	if tid := osThreadID(); tid != o.osTID {
		misuse("%s: allocator %d of thread %d used from OS thread %d, owner runs on OS thread %d",
			op, o.id, o.thread, tid, o.osTID)
	}
}

// checkHeader verifies h was produced by this allocator on its thread.
func (o *identity) checkHeader(op string, h *Header) {
	if !SafetyEnabled {
		return
	}
	if h.AllocatorID != o.id || h.ThreadID != o.thread {
		misuse("%s: allocation of allocator %d (thread %d) passed to allocator %d (thread %d)",
			op, h.AllocatorID, h.ThreadID, o.id, o.thread)
	}
}

// checkGlobalHeader verifies h belongs to the Global allocator.
func checkGlobalHeader(op string, h *Header) {
	if !SafetyEnabled {
		return
	}
	if h.AllocatorID != 0 {
		misuse("%s: allocation of allocator %d (thread %d) passed to the global allocator",
			op, h.AllocatorID, h.ThreadID)
	}
}
