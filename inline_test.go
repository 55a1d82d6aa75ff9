package alloc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineLinearUsesItsOwnStorage(t *testing.T) {
	a := NewInlineLinear[[128]byte](nil)
	assert.Equal(t, 128, a.Capacity())

	b, err := a.Allocate(32, 8)
	require.NoError(t, err)
	start := addr(a.storage[:])
	assert.GreaterOrEqual(t, addr(b), start)
	assert.LessOrEqual(t, addr(b)+32, start+128)

	b, err = a.Resize(b, 64, 8)
	require.NoError(t, err)
	assert.Len(t, b, 64)
	a.Free(b)
	assert.Zero(t, a.Allocations())
}

func TestInlineArena(t *testing.T) {
	a := NewInlineArena[[256]byte](nil, 32, 8)

	b1, err := a.Allocate(32, 8)
	require.NoError(t, err)
	start := addr(a.storage[:])
	assert.GreaterOrEqual(t, addr(b1), start)
	assert.LessOrEqual(t, addr(b1)+32, start+256)

	a.Free(b1)
	b2, err := a.Allocate(16, 4)
	require.NoError(t, err)
	assert.Equal(t, addr(b1), addr(b2))

	grown, err := a.Resize(b2, 32, 8)
	require.NoError(t, err)
	assert.Equal(t, addr(b2), addr(grown))

	a.Reset()
	assert.Zero(t, a.BlocksInUse())
	assert.Equal(t, 256, a.Capacity())
}

func TestInlineCopyIsFatal(t *testing.T) {
	lin := NewInlineLinear[[64]byte](nil)
	linCopy := new(InlineLinear[[64]byte])
	*linCopy = *lin //nolint:govet // copies on purpose
	requireMisuse(t, func() { _, _ = linCopy.Allocate(8, 1) })
	requireMisuse(t, func() { linCopy.Reset() })

	ar := NewInlineArena[[64]byte](nil, 16, 8)
	arCopy := new(InlineArena[[64]byte])
	*arCopy = *ar //nolint:govet // copies on purpose
	requireMisuse(t, func() { _, _ = arCopy.Allocate(8, 1) })
	requireMisuse(t, func() { arCopy.Free(nil) })

	// The original stays usable.
	_, err := lin.Allocate(8, 1)
	assert.NoError(t, err)
	_, err = ar.Allocate(8, 1)
	assert.NoError(t, err)
}

func TestInlineStorageMustBeBytes(t *testing.T) {
	requireMisuse(t, func() { NewInlineLinear[[4]int64](nil) })
	requireMisuse(t, func() { NewInlineArena[string](nil, 8, 8) })
}

func TestInlineTempStorage(t *testing.T) {
	a := NewInlineLinear[TempStorage](nil)
	assert.Equal(t, DefaultTempAllocatorSize, a.Capacity())

	b, err := a.Allocate(DefaultTempAllocatorSize, 1)
	require.NoError(t, err)
	assert.Len(t, b, DefaultTempAllocatorSize)
}
