// Package alloc implements explicit, pluggable memory allocators for Go.
//
// # Overview
//
// Every allocation strategy implements the Allocator interface: allocate
// an aligned block, free it, resize it, and optionally reset everything at
// once. Addresses are byte slices whose length is the requested size; a nil
// slice is the null address.
//
// # Strategies
//
//   - Global wraps the Go heap and adds alignment and header bookkeeping.
//     Heap is the shared instance. It cannot be reset.
//   - Linear is a bump allocator over a caller-supplied buffer. Only the
//     most recent allocation resizes in place and Reset is O(1).
//   - Arena carves a buffer into fixed-size blocks and recycles freed
//     blocks through an intrusive free list.
//   - InlineLinear and InlineArena embed their buffer in the allocator.
//   - Checked wraps any allocator and reports leaks in tests.
//
// Each allocation carries a Header naming the allocator and thread that
// produced it. Headers are kept beside the buffer, not inside it, so a
// 64-byte Linear holds 64 bytes of payload.
//
// # Basic Usage
//
//	c := alloc.NewContext()
//
//	buf := make([]byte, 4096)
//	scratch := alloc.NewLinear(c, buf)
//	defer c.SetAllocator(scratch)()
//
//	p, err := alloc.Make[Point](c)
//	if err != nil {
//		return err
//	}
//	p.X = 1
//
//	scratch.Reset() // every allocation above is now invalid
//
// # Context
//
// A Context holds a thread's ambient state: the active allocator, a temp
// allocator, a printer, an indentation depth and the explicit-copy flag.
// Overrides are scoped; each setter returns a Restore that puts the old
// value back and must be deferred. Restores run innermost first.
//
// Go has no thread-local storage, so the Context is passed explicitly or
// carried in a context.Context with WithContext. Run, Go and Group pin a
// goroutine to its OS thread and give it a fresh Context; allocators built
// from a pinned Context verify that they are only used on that thread.
//
// # Safety Mode
//
// Safety checks are on by default and are compiled out with the
// allocnosafety build tag. In safety mode the following are fatal misuses:
//
//   - freeing or resizing through an allocator that did not produce the
//     address, or from a thread other than the owner
//   - freeing an address twice
//   - handing out memory another allocator over an overlapping buffer
//     still holds live
//   - placing a type that holds Go pointers in allocator memory
//   - an implicit copy of a type that audits its copies
//
// Misuse panics with a cockroachdb/errors assertion failure after logging
// it through the package logger (see SetLogger). Addresses that no
// allocator recognizes are fatal even without safety mode.
//
// # Configuration
//
// The ALLOC_TEMP_SIZE, ALLOC_HEAP_LIMIT and ALLOC_CHECKED_FRAMES environment
// variables are read once at startup. Per-Context settings are passed as
// Options to NewContext, Run, Go and NewGroup.
//
// # Metrics
//
// Linear and Arena report their usage:
//
//	m := scratch.Metrics()
//	fmt.Printf("Utilization: %.2f%%\n", m.Utilization*100)
package alloc
