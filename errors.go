package alloc

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrOutOfMemory indicates the allocator has no room left for the request.
	ErrOutOfMemory = errors.New("alloc: out of memory")

	// ErrInvalidSize indicates a negative size.
	ErrInvalidSize = errors.New("alloc: invalid size")

	// ErrInvalidAlignment indicates an alignment that is not a power of two,
	// or one the allocator cannot honor.
	ErrInvalidAlignment = errors.New("alloc: invalid alignment")

	// ErrBlockSize indicates a request larger than an arena's fixed block size.
	ErrBlockSize = errors.New("alloc: request exceeds block size")
)

// misuse reports a programmer error. Misuse is not recoverable: the
// allocator's bookkeeping can no longer be trusted once it is observed.
func misuse(format string, args ...any) {
	err := errors.AssertionFailedf(format, args...)
	logger().Error("allocator misuse", "err", err)
	panic(err)
}
