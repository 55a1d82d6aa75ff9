package alloc

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// checkedFrames is how many frames above Checked's methods the recorded
// caller sits. Override with ALLOC_CHECKED_FRAMES when allocations are made
// through helpers such as MakeSlice.
var checkedFrames = 2

// Checked wraps an Allocator and remembers every live allocation with the
// place it was made, so tests can assert that collaborators release what
// they allocate.
type Checked struct {
	mem Allocator
	sz  atomic.Int64

	allocs sync.Map // payload address -> *checkedAlloc
}

type checkedAlloc struct {
	pc   uintptr
	line int
	sz   int
}

var _ Allocator = (*Checked)(nil)

// NewChecked returns a Checked wrapping mem.
func NewChecked(mem Allocator) *Checked {
	return &Checked{mem: mem}
}

// CurrentAlloc returns the number of live bytes.
func (a *Checked) CurrentAlloc() int { return int(a.sz.Load()) }

func (a *Checked) Allocate(size, alignment int) ([]byte, error) {
	out, err := a.mem.Allocate(size, alignment)
	if err != nil || out == nil {
		return out, err
	}
	a.sz.Add(int64(size))
	a.record(out, size)
	return out, nil
}

func (a *Checked) Resize(b []byte, size, alignment int) ([]byte, error) {
	old := 0
	if v, ok := a.allocs.Load(addressOf(b)); ok {
		old = v.(*checkedAlloc).sz
	}
	out, err := a.mem.Resize(b, size, alignment)
	if err != nil {
		return nil, err
	}
	a.sz.Add(int64(size - old))
	if b != nil {
		a.allocs.Delete(addressOf(b))
	}
	if out != nil {
		a.record(out, size)
	}
	return out, nil
}

func (a *Checked) Free(b []byte) {
	if b == nil {
		return
	}
	if v, ok := a.allocs.LoadAndDelete(addressOf(b)); ok {
		a.sz.Add(-int64(v.(*checkedAlloc).sz))
	}
	a.mem.Free(b)
}

// Reset resets the wrapped allocator and forgets every allocation.
func (a *Checked) Reset() {
	a.mem.Reset()
	a.allocs.Range(func(k, _ any) bool {
		a.allocs.Delete(k)
		return true
	})
	a.sz.Store(0)
}

func (a *Checked) record(b []byte, size int) {
	if pc, _, l, ok := runtime.Caller(checkedFrames); ok {
		a.allocs.Store(addressOf(b), &checkedAlloc{pc: pc, line: l, sz: size})
		return
	}
	a.allocs.Store(addressOf(b), &checkedAlloc{sz: size})
}

// TestingT is the subset of testing.TB used by AssertSize.
type TestingT interface {
	Errorf(format string, args ...any)
	Helper()
}

// AssertSize reports every live allocation as a leak and fails t unless
// sz bytes are live.
func (a *Checked) AssertSize(t TestingT, sz int) {
	t.Helper()
	a.allocs.Range(func(_, value any) bool {
		info := value.(*checkedAlloc)
		name := "unknown"
		if f := runtime.FuncForPC(info.pc); f != nil {
			name = f.Name()
		}
		t.Errorf("LEAK of %d bytes FROM %s line %d", info.sz, name, info.line)
		return true
	})

	if got := a.CurrentAlloc(); got != sz {
		t.Errorf("invalid memory size exp=%d, got=%d", sz, got)
	}
}
