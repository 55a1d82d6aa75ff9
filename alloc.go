package alloc

import (
	"math"
	"reflect"
	"sync"
	"unsafe"
)

// Finalizer is implemented by values that must run cleanup before their
// memory goes back to the allocator. Destroy calls it.
type Finalizer interface {
	Finalize()
}

// Cloner is implemented by values that may only be copied explicitly. Their
// Clone method should call (*Context).AuditCopy.
type Cloner[T any] interface {
	Clone(c *Context) T
}

// MakeWith allocates a zeroed T from a, then applies init in order.
// T must not contain Go pointers: the garbage collector does not scan
// allocator memory.
func MakeWith[T any](a Allocator, init ...func(*T)) (*T, error) {
	checkPointerFree[T]()
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))

	var p *T
	if size == 0 {
		p = new(T)
	} else {
		b, err := a.Allocate(size, align)
		if err != nil {
			return nil, err
		}
		clear(b)
		p = (*T)(unsafe.Pointer(unsafe.SliceData(b)))
	}
	for _, fn := range init {
		fn(p)
	}
	return p, nil
}

// Make allocates a T from the active allocator of c.
func Make[T any](c *Context, init ...func(*T)) (*T, error) {
	c.checkThread("make")
	return MakeWith(c.allocator, init...)
}

// MakeTemp allocates a T from the temp allocator of c.
func MakeTemp[T any](c *Context, init ...func(*T)) (*T, error) {
	defer c.UseTempAllocator()()
	return Make(c, init...)
}

// DestroyWith finalizes *p and returns its memory to a. A nil p is ignored.
func DestroyWith[T any](a Allocator, p *T) {
	if p == nil {
		return
	}
	if f, ok := any(p).(Finalizer); ok {
		f.Finalize()
	}
	size := int(unsafe.Sizeof(*p))
	if size == 0 {
		return
	}
	a.Free(unsafe.Slice((*byte)(unsafe.Pointer(p)), size))
}

// Destroy finalizes *p and frees it through the active allocator of c.
func Destroy[T any](c *Context, p *T) {
	c.checkThread("destroy")
	DestroyWith(c.allocator, p)
}

// DestroyTemp finalizes *p and frees it through the temp allocator of c.
func DestroyTemp[T any](c *Context, p *T) {
	defer c.UseTempAllocator()()
	Destroy(c, p)
}

// MakeSlice allocates a zeroed slice of n elements of T from a.
// Returns nil if n == 0.
func MakeSlice[T any](a Allocator, n int) ([]T, error) {
	if n < 0 {
		return nil, ErrInvalidSize
	}
	checkPointerFree[T]()
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if n == 0 {
		return nil, nil
	}
	if size == 0 {
		return make([]T, n), nil
	}
	if n > math.MaxInt/size {
		return nil, ErrOutOfMemory
	}
	b, err := a.Allocate(n*size, align)
	if err != nil {
		return nil, err
	}
	clear(b)
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// ResizeSlice resizes s, allocated from a, to n elements. Elements past the
// old length are zeroed. On failure s is left intact.
func ResizeSlice[T any](a Allocator, s []T, n int) ([]T, error) {
	checkPointerFree[T]()
	if n < 0 {
		return nil, ErrInvalidSize
	}
	var zero T
	size, align := int(unsafe.Sizeof(zero)), int(unsafe.Alignof(zero))
	if size == 0 {
		return make([]T, n), nil
	}
	if n > math.MaxInt/size {
		return nil, ErrOutOfMemory
	}
	b, err := a.Resize(bytesOf(s), n*size, align)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if old := len(s) * size; old < len(b) {
		clear(b[old:])
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), n), nil
}

// FreeSlice returns s to a.
func FreeSlice[T any](a Allocator, s []T) {
	var zero T
	if unsafe.Sizeof(zero) == 0 {
		return
	}
	a.Free(bytesOf(s))
}

// Clone copies v through its Clone method with the explicit-copy flag set.
func Clone[T Cloner[T]](c *Context, v T) T {
	defer c.SetExplicitCopy(true)()
	return v.Clone(c)
}

func bytesOf[T any](s []T) []byte {
	var zero T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(s))), len(s)*int(unsafe.Sizeof(zero)))
}

var pointerFree sync.Map // reflect.Type -> bool

func checkPointerFree[T any]() {
	if !SafetyEnabled {
		return
	}
	t := reflect.TypeFor[T]()
	v, ok := pointerFree.Load(t)
	if !ok {
		v, _ = pointerFree.LoadOrStore(t, !hasPointers(t))
	}
	if !v.(bool) {
		misuse("%s holds Go pointers and cannot live in allocator memory", t)
	}
}

func hasPointers(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.UnsafePointer, reflect.Map, reflect.Chan,
		reflect.Func, reflect.Interface, reflect.Slice, reflect.String:
		return true
	case reflect.Array:
		return t.Len() > 0 && hasPointers(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if hasPointers(t.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
