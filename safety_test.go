//go:build !allocnosafety

package alloc

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type withPointer struct {
	n    int64
	next *withPointer
}

type audited struct {
	n int64
}

func (a audited) Clone(c *Context) audited {
	c.AuditCopy()
	return audited{n: a.n}
}

func TestSafetyEnabled(t *testing.T) {
	assert.True(t, SafetyEnabled)
}

func TestDoubleFreeIsFatal(t *testing.T) {
	l := NewLinear(nil, make([]byte, 64))
	b, err := l.Allocate(8, 8)
	require.NoError(t, err)
	l.Free(b)
	requireMisuse(t, func() { l.Free(b) })
	requireMisuse(t, func() { _, _ = l.Resize(b, 16, 8) })

	a := NewArena(nil, make([]byte, 64), 16, 8)
	b, err = a.Allocate(8, 8)
	require.NoError(t, err)
	a.Free(b)
	requireMisuse(t, func() { a.Free(b) })
	assert.Zero(t, a.BlocksInUse())
}

func TestPointerfulTypesAreFatal(t *testing.T) {
	requireMisuse(t, func() { _, _ = MakeWith[withPointer](Heap) })
	requireMisuse(t, func() { _, _ = MakeSlice[string](Heap, 4) })
	requireMisuse(t, func() { _, _ = MakeSlice[[]byte](Heap, 4) })
	requireMisuse(t, func() { _, _ = MakeSlice[[2]map[int]int](Heap, 1) })

	requireMisuse(t, func() { _, _ = ResizeSlice[string](Heap, nil, 4) })
	requireMisuse(t, func() { _, _ = ResizeSlice[*int](Heap, nil, 4) })

	_, err := MakeSlice[[0]*int](Heap, 0)
	assert.NoError(t, err)
}

func TestLinearSharedBufferIsFatal(t *testing.T) {
	buf := make([]byte, 64)
	x := NewLinear(nil, buf)
	y := NewLinear(nil, buf)

	bx, err := x.Allocate(16, 8)
	require.NoError(t, err)

	// y's first block would land on bx.
	requireMisuse(t, func() { _, _ = y.Allocate(16, 8) })
	assert.Zero(t, y.Allocations())

	err = recoverMisuse(func() { y.Free(bx) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passed to allocator")
	assert.Equal(t, 1, x.Allocations())

	// Once x lets go of the space y may take it, and x cannot free y's block.
	x.Free(bx)
	by, err := y.Allocate(16, 8)
	require.NoError(t, err)
	requireMisuse(t, func() { x.Free(by) })
	assert.Equal(t, 1, y.Allocations())

	// Growing in place over the other allocator's live block is fatal too.
	_, err = x.Allocate(8, 8)
	require.NoError(t, err)
	requireMisuse(t, func() { _, _ = y.Resize(by, 32, 8) })
	h, ok := y.HeaderOf(by)
	require.True(t, ok)
	assert.Equal(t, 16, h.Size)
}

func TestArenaSharedBufferIsFatal(t *testing.T) {
	buf := make([]byte, 64)
	x := NewArena(nil, buf, 16, 8)
	y := NewArena(nil, buf, 16, 8)

	bx, err := x.Allocate(8, 8)
	require.NoError(t, err)

	err = recoverMisuse(func() { y.Free(bx) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passed to allocator")
	assert.Equal(t, 1, x.BlocksInUse())

	requireMisuse(t, func() { _, _ = y.Allocate(8, 8) })
	assert.Zero(t, y.BlocksInUse())
	assert.Zero(t, y.BlocksCarved())

	x.Free(bx)
	by, err := y.Allocate(8, 8)
	require.NoError(t, err)
	requireMisuse(t, func() { x.Free(by) })
	assert.Equal(t, 1, y.BlocksInUse())
}

func TestForeignAllocationNamesItsOwner(t *testing.T) {
	buf := make([]byte, 128)
	x := NewLinear(nil, buf[:64])
	y := NewLinear(nil, buf[64:])
	ax := NewArena(nil, make([]byte, 64), 16, 8)
	ay := NewArena(nil, make([]byte, 64), 16, 8)

	bx, err := x.Allocate(8, 8)
	require.NoError(t, err)
	by, err := y.Allocate(8, 8)
	require.NoError(t, err)
	abx, err := ax.Allocate(8, 8)
	require.NoError(t, err)

	for _, free := range []func(){
		func() { y.Free(bx) },
		func() { x.Free(by) },
		func() { ay.Free(abx) },
		func() { ax.Free(bx) },
	} {
		err := recoverMisuse(free)
		require.Error(t, err)
		assert.True(t, errors.IsAssertionFailure(err))
		assert.Contains(t, err.Error(), "passed to allocator")
	}

	err = recoverMisuse(func() { Heap.Free(bx) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "passed to the global allocator")

	assert.Equal(t, 1, x.Allocations())
	assert.Equal(t, 1, y.Allocations())
	assert.Equal(t, 1, ax.BlocksInUse())
	assert.Zero(t, ay.BlocksInUse())
}

func TestImplicitCopyIsFatal(t *testing.T) {
	c := NewContext()
	v := audited{n: 7}

	requireMisuse(t, func() { v.Clone(c) })
	assert.Equal(t, v, Clone(c, v))
	assert.False(t, c.ExplicitCopy())
}

func TestCrossThreadUseIsFatal(t *testing.T) {
	if osThreadID() == 0 {
		t.Skip("OS thread ids are not available on this platform")
	}

	type owned struct {
		c *Context
		l *Linear
		b []byte
	}
	ready := make(chan owned)
	release := make(chan struct{})
	ownerDone := Go(func(c *Context) error {
		l := NewLinear(c, make([]byte, 64))
		b, err := l.Allocate(8, 8)
		if err != nil {
			return err
		}
		ready <- owned{c: c, l: l, b: b}
		<-release
		l.Free(b)
		return nil
	})
	o := <-ready

	// The owner keeps its OS thread locked, so the intruder runs elsewhere.
	var errs []error
	intruderDone := Go(func(*Context) error {
		errs = append(errs,
			recoverMisuse(func() { _, _ = o.l.Allocate(8, 8) }),
			recoverMisuse(func() { o.l.Free(o.b) }),
			recoverMisuse(func() { _, _ = Make[int64](o.c) }),
			recoverMisuse(func() { o.c.Println("x") }),
			recoverMisuse(func() { o.c.SetIndent(1) }),
		)
		return nil
	})
	require.NoError(t, <-intruderDone)
	close(release)
	require.NoError(t, <-ownerDone)

	for i, err := range errs {
		require.Error(t, err, "operation %d", i)
		assert.True(t, errors.IsAssertionFailure(err), "operation %d: %v", i, err)
	}
}
