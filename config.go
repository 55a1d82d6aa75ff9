package alloc

import (
	"os"
	"strconv"
)

// Environment variables read once at package initialization.
const (
	// EnvTempSize sets the capacity in bytes of the temp allocator of every
	// new Context.
	EnvTempSize = "ALLOC_TEMP_SIZE"
	// EnvHeapLimit caps the bytes held by Global allocations; see SetHeapLimit.
	EnvHeapLimit = "ALLOC_HEAP_LIMIT"
	// EnvCheckedFrames sets how many caller frames Checked skips when it
	// records where an allocation came from.
	EnvCheckedFrames = "ALLOC_CHECKED_FRAMES"
)

var defaultTempSize = DefaultTempAllocatorSize

func init() {
	if val, ok := os.LookupEnv(EnvTempSize); ok {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			defaultTempSize = n
		}
	}

	if val, ok := os.LookupEnv(EnvHeapLimit); ok {
		if n, err := strconv.ParseInt(val, 10, 64); err == nil {
			SetHeapLimit(n)
		}
	}

	if val, ok := os.LookupEnv(EnvCheckedFrames); ok {
		if f, err := strconv.Atoi(val); err == nil {
			checkedFrames = f
		}
	}
}

// Option configures a new Context.
type Option func(*options)

type options struct {
	allocator Allocator
	newTemp   func(owner *Context) Allocator
	tempSize  int
	printer   Printer
}

// WithAllocator sets the initial active allocator instead of Heap.
func WithAllocator(a Allocator) Option {
	return func(o *options) { o.allocator = a }
}

// WithTempAllocator builds the temp allocator with newTemp, which receives
// the Context being created so the allocator can be owned by its thread.
func WithTempAllocator(newTemp func(owner *Context) Allocator) Option {
	return func(o *options) { o.newTemp = newTemp }
}

// WithTempSize sets the capacity of the default temp allocator. Sizes other
// than DefaultTempAllocatorSize get a heap-backed Linear allocator.
func WithTempSize(n int) Option {
	return func(o *options) { o.tempSize = n }
}

// WithPrinter sets the initial active printer instead of Stdout.
func WithPrinter(p Printer) Option {
	return func(o *options) { o.printer = p }
}
