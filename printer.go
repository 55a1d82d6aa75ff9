package alloc

import (
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

// Printer is the output sink held in a Context's printer slot.
type Printer interface {
	Print(s string)
}

// FilePrinter writes to a file and ignores write errors. It keeps no state
// and may be shared between threads.
type FilePrinter struct {
	f *os.File
}

// NewFilePrinter returns a FilePrinter writing to f.
func NewFilePrinter(f *os.File) FilePrinter {
	return FilePrinter{f: f}
}

func (p FilePrinter) Print(s string) {
	_, _ = io.WriteString(p.f, s)
}

var (
	// Stdout is the default printer of every Context.
	Stdout Printer = NewFilePrinter(os.Stdout)
	// Stderr prints to standard error.
	Stderr Printer = NewFilePrinter(os.Stderr)
)

// WriterPrinter writes to an io.Writer and keeps the first write error;
// later prints are dropped.
type WriterPrinter struct {
	w   io.Writer
	err error
}

// NewWriterPrinter returns a WriterPrinter writing to w.
func NewWriterPrinter(w io.Writer) *WriterPrinter {
	return &WriterPrinter{w: w}
}

func (p *WriterPrinter) Print(s string) {
	if p.err != nil {
		return
	}
	_, p.err = io.WriteString(p.w, s)
}

// Err returns the first write error.
func (p *WriterPrinter) Err() error { return p.err }

// UTF16Printer writes its output as UTF-16LE without a byte order mark,
// the encoding wide-character consoles and debuggers expect.
type UTF16Printer struct {
	w   io.Writer
	enc *encoding.Encoder
	err error
}

// NewUTF16Printer returns a UTF16Printer writing to w.
func NewUTF16Printer(w io.Writer) *UTF16Printer {
	return &UTF16Printer{
		w:   w,
		enc: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder(),
	}
}

func (p *UTF16Printer) Print(s string) {
	if p.err != nil {
		return
	}
	wide, err := p.enc.String(s)
	if err != nil {
		p.err = err
		return
	}
	_, p.err = io.WriteString(p.w, wide)
}

// Err returns the first encoding or write error.
func (p *UTF16Printer) Err() error { return p.err }

// StringPrinter accumulates its output in memory obtained from an
// Allocator, growing it with Resize.
type StringPrinter struct {
	a   Allocator
	buf []byte
	n   int
	err error
}

// NewStringPrinter returns a StringPrinter backed by a.
func NewStringPrinter(a Allocator) *StringPrinter {
	return &StringPrinter{a: a}
}

func (p *StringPrinter) Print(s string) {
	if p.err != nil || len(s) == 0 {
		return
	}
	need := p.n + len(s)
	if need > len(p.buf) {
		nb, err := p.a.Resize(p.buf, max(need, 2*len(p.buf), 64), 1)
		if err != nil {
			p.err = err
			return
		}
		p.buf = nb
	}
	copy(p.buf[p.n:], s)
	p.n = need
}

// String returns a copy of the output so far.
func (p *StringPrinter) String() string {
	return string(p.buf[:p.n])
}

// Len returns the number of bytes printed so far.
func (p *StringPrinter) Len() int { return p.n }

// Err returns the allocation error that stopped the printer, if any.
func (p *StringPrinter) Err() error { return p.err }

// Release returns the buffer to the allocator and empties the printer.
func (p *StringPrinter) Release() {
	p.a.Free(p.buf)
	p.buf = nil
	p.n = 0
	p.err = nil
}
