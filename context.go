package alloc

import (
	"strings"
)

// Restore undoes one scoped override. Call it through defer so it runs on
// every way out of the scope:
//
//	defer c.SetAllocator(scratch)()
type Restore func()

// Context is the ambient state of one thread: the active allocator, the
// temp allocator, the printer, the indentation depth and the explicit-copy
// flag. Slots are read with getters and changed only through scoped
// overrides, which must be restored innermost first.
//
// A Context is confined to its thread and is never torn down.
type Context struct {
	noCopy noCopy

	thread       uint32
	osTID        int
	allocatorIDs uint32
	serial       uint64
	frames       []uint64 // tokens of the open overrides, innermost last

	allocator    Allocator
	temp         Allocator
	printer      Printer
	indent       int
	explicitCopy bool
}

// NewContext returns a Context for the calling goroutine with the default
// slots: Heap as the active allocator, a private inline temp allocator,
// Stdout as the printer, zero indentation. The goroutine is not pinned, so
// thread affinity is not checked; use Run or Go for that.
func NewContext(opts ...Option) *Context {
	return newContext(0, opts...)
}

func newContext(osTID int, opts ...Option) *Context {
	o := options{tempSize: defaultTempSize}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{
		thread:    threadIDs.Add(1),
		osTID:     osTID,
		allocator: Heap,
		printer:   Stdout,
	}
	if o.allocator != nil {
		c.allocator = o.allocator
	}
	if o.printer != nil {
		c.printer = o.printer
	}
	switch {
	case o.newTemp != nil:
		c.temp = o.newTemp(c)
	case o.tempSize == DefaultTempAllocatorSize:
		c.temp = NewInlineLinear[TempStorage](c)
	default:
		c.temp = NewLinear(c, make([]byte, o.tempSize))
	}

	logger().Debug("context created", "thread", c.thread, "os_thread", osTID)
	return c
}

// ThreadID returns the logical id of the Context's thread.
func (c *Context) ThreadID() uint32 { return c.thread }

// OSThreadID returns the OS thread the Context is pinned to, or 0.
func (c *Context) OSThreadID() int { return c.osTID }

// Allocator returns the active allocator.
func (c *Context) Allocator() Allocator { return c.allocator }

// SetAllocator makes a the active allocator until the returned Restore runs.
func (c *Context) SetAllocator(a Allocator) Restore {
	if a == nil {
		misuse("context: nil allocator")
	}
	return set(c, &c.allocator, a)
}

// TempAllocator returns the temp allocator.
func (c *Context) TempAllocator() Allocator { return c.temp }

// SetTempAllocator replaces the temp allocator until the returned Restore runs.
func (c *Context) SetTempAllocator(a Allocator) Restore {
	if a == nil {
		misuse("context: nil temp allocator")
	}
	return set(c, &c.temp, a)
}

// UseTempAllocator makes the temp allocator the active allocator until the
// returned Restore runs.
func (c *Context) UseTempAllocator() Restore {
	return set(c, &c.allocator, c.temp)
}

// UsingTempAllocator runs fn with the temp allocator active.
func (c *Context) UsingTempAllocator(fn func() error) error {
	defer c.UseTempAllocator()()
	return fn()
}

// Printer returns the active printer.
func (c *Context) Printer() Printer { return c.printer }

// SetPrinter makes p the active printer until the returned Restore runs.
func (c *Context) SetPrinter(p Printer) Restore {
	if p == nil {
		misuse("context: nil printer")
	}
	return set(c, &c.printer, p)
}

// Indent returns the indentation depth.
func (c *Context) Indent() int { return c.indent }

// SetIndent sets the indentation depth until the returned Restore runs.
func (c *Context) SetIndent(n int) Restore {
	return set(c, &c.indent, n)
}

// Indented increases the indentation depth by one level.
func (c *Context) Indented() Restore {
	return set(c, &c.indent, c.indent+1)
}

// ExplicitCopy reports whether an explicit copy is in progress.
func (c *Context) ExplicitCopy() bool { return c.explicitCopy }

// SetExplicitCopy sets the explicit-copy flag until the returned Restore runs.
func (c *Context) SetExplicitCopy(v bool) Restore {
	return set(c, &c.explicitCopy, v)
}

// AuditCopy is called from the copy paths of types that must only be copied
// on purpose. Copying while the explicit-copy flag is unset is a misuse.
func (c *Context) AuditCopy() {
	if SafetyEnabled && !c.explicitCopy {
		misuse("context: implicit copy on thread %d", c.thread)
	}
}

// Println prints s and a newline through the active printer, indented four
// spaces per indentation level.
func (c *Context) Println(s string) {
	c.checkThread("println")
	if c.indent > 0 {
		c.printer.Print(strings.Repeat("    ", c.indent))
	}
	c.printer.Print(s)
	c.printer.Print("\n")
}

// Allocate allocates from the active allocator.
func (c *Context) Allocate(size, alignment int) ([]byte, error) {
	c.checkThread("allocate")
	return c.allocator.Allocate(size, alignment)
}

// Free frees through the active allocator.
func (c *Context) Free(b []byte) {
	c.checkThread("free")
	c.allocator.Free(b)
}

// Resize resizes through the active allocator.
func (c *Context) Resize(b []byte, size, alignment int) ([]byte, error) {
	c.checkThread("resize")
	return c.allocator.Resize(b, size, alignment)
}

// Reset resets the active allocator.
func (c *Context) Reset() {
	c.checkThread("reset")
	c.allocator.Reset()
}

// TempAllocate allocates from the temp allocator.
func (c *Context) TempAllocate(size, alignment int) ([]byte, error) {
	c.checkThread("allocate")
	return c.temp.Allocate(size, alignment)
}

// TempFree frees through the temp allocator.
func (c *Context) TempFree(b []byte) {
	c.checkThread("free")
	c.temp.Free(b)
}

// TempResize resizes through the temp allocator.
func (c *Context) TempResize(b []byte, size, alignment int) ([]byte, error) {
	c.checkThread("resize")
	return c.temp.Resize(b, size, alignment)
}

// TempReset resets the temp allocator.
func (c *Context) TempReset() {
	c.checkThread("reset")
	c.temp.Reset()
}

func (c *Context) checkThread(op string) {
	if !SafetyEnabled || c.osTID == 0 {
		return
	}
	if tid := osThreadID(); tid != c.osTID {
		misuse("context %s: thread %d used from OS thread %d, owner runs on OS thread %d",
			op, c.thread, tid, c.osTID)
	}
}

// set writes v into slot and returns the Restore that writes the old value
// back. Restores are checked against the stack of open overrides.
func set[T any](c *Context, slot *T, v T) Restore {
	c.checkThread("override")
	old := *slot
	*slot = v
	c.serial++
	tok := c.serial
	c.frames = append(c.frames, tok)
	return func() {
		c.checkThread("restore")
		n := len(c.frames)
		if n == 0 || c.frames[n-1] != tok {
			misuse("context: override %d of thread %d restored out of order", tok, c.thread)
		}
		c.frames = c.frames[:n-1]
		*slot = old
	}
}
