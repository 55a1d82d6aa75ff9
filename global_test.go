package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalAlignment(t *testing.T) {
	for align := 1; align <= 4096; align <<= 1 {
		b, err := Heap.Allocate(24, align)
		require.NoError(t, err)
		assert.Len(t, b, 24)
		assert.Equal(t, 24, cap(b))
		assert.Zero(t, addr(b)%uintptr(align), "alignment %d", align)

		h, ok := Heap.HeaderOf(b)
		require.True(t, ok)
		assert.Equal(t, 24, h.Size)
		assert.Zero(t, h.AllocatorID)
		assert.Zero(t, h.ThreadID)
		Heap.Free(b)
	}
}

func TestGlobalAccounting(t *testing.T) {
	before := HeapInUse()

	b, err := Heap.Allocate(100, 8)
	require.NoError(t, err)
	assert.Equal(t, before+108, HeapInUse())

	Heap.Free(b)
	assert.Equal(t, before, HeapInUse())
	_, ok := Heap.HeaderOf(b)
	assert.False(t, ok)
}

func TestGlobalZeroAndInvalid(t *testing.T) {
	b, err := Heap.Allocate(0, 8)
	assert.NoError(t, err)
	assert.Nil(t, b)

	_, err = Heap.Allocate(-5, 8)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = Heap.Allocate(8, 6)
	assert.ErrorIs(t, err, ErrInvalidAlignment)
	_, err = Heap.Allocate(math.MaxInt, 8)
	assert.ErrorIs(t, err, ErrOutOfMemory)

	Heap.Free(nil)
}

func TestGlobalResizeInPlace(t *testing.T) {
	b, err := Heap.Allocate(10, 1)
	require.NoError(t, err)
	fill(b, 3)

	// An alignment of 1 leaves exactly one spare byte in the block.
	grown, err := Heap.Resize(b, 11, 1)
	require.NoError(t, err)
	assert.Equal(t, addr(b), addr(grown))
	assert.Len(t, grown, 11)
	for _, v := range grown[:10] {
		require.Equal(t, byte(3), v)
	}
	Heap.Free(grown)
}

func TestGlobalResizeRelocates(t *testing.T) {
	b, err := Heap.Allocate(16, 8)
	require.NoError(t, err)
	for i := range b {
		b[i] = byte(i)
	}

	grown, err := Heap.Resize(b, 1024, 64)
	require.NoError(t, err)
	assert.Len(t, grown, 1024)
	assert.Zero(t, addr(grown)%64)
	for i := range 16 {
		require.Equal(t, byte(i), grown[i])
	}
	_, ok := Heap.HeaderOf(b)
	assert.False(t, ok)

	shrunk, err := Heap.Resize(grown, 4, 64)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2, 3}, shrunk)

	gone, err := Heap.Resize(shrunk, 0, 1)
	require.NoError(t, err)
	assert.Nil(t, gone)
	_, ok = Heap.HeaderOf(shrunk)
	assert.False(t, ok)
}

func TestGlobalResizeNil(t *testing.T) {
	b, err := Heap.Resize(nil, 32, 16)
	require.NoError(t, err)
	assert.Len(t, b, 32)
	assert.Zero(t, addr(b)%16)
	Heap.Free(b)
}

func TestGlobalHeapLimit(t *testing.T) {
	defer SetHeapLimit(0)

	b, err := Heap.Allocate(16, 1)
	require.NoError(t, err)
	fill(b, 9)

	SetHeapLimit(HeapInUse() + 64)
	_, err = Heap.Allocate(1024, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)

	_, err = Heap.Resize(b, 4096, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	h, ok := Heap.HeaderOf(b)
	require.True(t, ok)
	assert.Equal(t, 16, h.Size)
	for _, v := range b {
		require.Equal(t, byte(9), v)
	}

	SetHeapLimit(0)
	grown, err := Heap.Resize(b, 4096, 1)
	require.NoError(t, err)
	Heap.Free(grown)
}

func TestGlobalRuntimeRefusalIsOutOfMemory(t *testing.T) {
	if math.MaxInt == math.MaxInt32 {
		t.Skip("needs a 64-bit address space")
	}
	before := HeapInUse()
	_, err := Heap.Allocate(math.MaxInt/2, 1)
	require.ErrorIs(t, err, ErrOutOfMemory)
	assert.Equal(t, before, HeapInUse())
}

func TestGlobalResetIsFatal(t *testing.T) {
	requireMisuse(t, func() { Heap.Reset() })
	requireMisuse(t, func() { (&Global{}).Reset() })
}

func TestGlobalForeignAddressIsFatal(t *testing.T) {
	requireMisuse(t, func() { Heap.Free(make([]byte, 4)) })

	l := NewLinear(nil, make([]byte, 64))
	b, err := l.Allocate(8, 1)
	require.NoError(t, err)
	requireMisuse(t, func() { Heap.Free(b) })
	requireMisuse(t, func() { _, _ = Heap.Resize(b, 16, 1) })

	g, err := Heap.Allocate(8, 1)
	require.NoError(t, err)
	requireMisuse(t, func() { l.Free(g) })
	Heap.Free(g)
}

func TestGlobalValuesShareTheTable(t *testing.T) {
	other := &Global{}
	b, err := other.Allocate(8, 8)
	require.NoError(t, err)
	Heap.Free(b)
}

func TestGlobalDoubleFreeIsFatal(t *testing.T) {
	b, err := Heap.Allocate(8, 8)
	require.NoError(t, err)
	Heap.Free(b)
	requireMisuse(t, func() { Heap.Free(b) })
}
