package alloc

import (
	"testing"
	"unsafe"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
)

// recoverMisuse runs fn and returns what it panicked with, if anything.
// It is safe to call from goroutines other than the test's.
func recoverMisuse(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			var ok bool
			if err, ok = r.(error); !ok {
				err = errors.Newf("%v", r)
			}
		}
	}()
	fn()
	return nil
}

func requireMisuse(t *testing.T, fn func()) {
	t.Helper()
	err := recoverMisuse(fn)
	require.Error(t, err, "expected a misuse")
	require.True(t, errors.IsAssertionFailure(err), "unexpected panic: %v", err)
}

func addr(b []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b)))
}

func fill(b []byte, v byte) {
	for i := range b {
		b[i] = v
	}
}
