package alloc

import (
	"reflect"
	"unsafe"
)

// DefaultTempAllocatorSize is the capacity of a Context's temp allocator.
const DefaultTempAllocatorSize = 10000

// TempStorage is the inline storage of a default temp allocator.
type TempStorage = [DefaultTempAllocatorSize]byte

// noCopy makes go vet's copylocks check flag copies of the embedding struct.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// InlineLinear is a Linear allocator whose buffer is the byte array S
// embedded in the allocator itself, e.g. InlineLinear[[4096]byte].
//
// Outstanding allocations point into the allocator, so it must stay where
// NewInlineLinear put it: copying the value is a fatal misuse.
type InlineLinear[S any] struct {
	noCopy noCopy
	self   *InlineLinear[S]
	Linear
	storage S
}

// NewInlineLinear returns an InlineLinear owned by owner's thread.
func NewInlineLinear[S any](owner *Context) *InlineLinear[S] {
	a := &InlineLinear[S]{}
	a.self = a
	buf := storageBytes(&a.storage)
	a.Linear.init(owner, buf)
	a.claim = claimBuffer(buf, a.liveAt, a.liveWithin)
	return a
}

func (a *InlineLinear[S]) Allocate(size, alignment int) ([]byte, error) {
	a.copyCheck()
	return a.Linear.Allocate(size, alignment)
}

func (a *InlineLinear[S]) Resize(b []byte, size, alignment int) ([]byte, error) {
	a.copyCheck()
	return a.Linear.Resize(b, size, alignment)
}

func (a *InlineLinear[S]) Free(b []byte) {
	a.copyCheck()
	a.Linear.Free(b)
}

func (a *InlineLinear[S]) Reset() {
	a.copyCheck()
	a.Linear.Reset()
}

func (a *InlineLinear[S]) copyCheck() {
	if a.self != a {
		misuse("inline linear allocator %d (thread %d) used after being copied", a.id, a.thread)
	}
}

// InlineArena is an Arena whose buffer is the byte array S embedded in the
// allocator itself. Like InlineLinear it must not be copied.
type InlineArena[S any] struct {
	noCopy noCopy
	self   *InlineArena[S]
	Arena
	storage S
}

// NewInlineArena returns an InlineArena owned by owner's thread.
func NewInlineArena[S any](owner *Context, blockSize, blockAlignment int) *InlineArena[S] {
	a := &InlineArena[S]{}
	a.self = a
	buf := storageBytes(&a.storage)
	a.Arena.init(owner, buf, blockSize, blockAlignment)
	a.Arena.claim = claimBuffer(buf, a.Arena.liveAt, a.Arena.liveWithin)
	return a
}

func (a *InlineArena[S]) Allocate(size, alignment int) ([]byte, error) {
	a.copyCheck()
	return a.Arena.Allocate(size, alignment)
}

func (a *InlineArena[S]) Resize(b []byte, size, alignment int) ([]byte, error) {
	a.copyCheck()
	return a.Arena.Resize(b, size, alignment)
}

func (a *InlineArena[S]) Free(b []byte) {
	a.copyCheck()
	a.Arena.Free(b)
}

func (a *InlineArena[S]) Reset() {
	a.copyCheck()
	a.Arena.Reset()
}

func (a *InlineArena[S]) copyCheck() {
	if a.self != a {
		misuse("inline arena allocator %d (thread %d) used after being copied", a.lin.id, a.lin.thread)
	}
}

// storageBytes views the byte array *p as a slice.
func storageBytes[S any](p *S) []byte {
	t := reflect.TypeFor[S]()
	if t.Kind() != reflect.Array || t.Elem().Kind() != reflect.Uint8 {
		misuse("inline storage type %s is not a byte array", t)
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), t.Len())
}
