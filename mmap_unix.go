//go:build unix

package alloc

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MapBuffer maps size bytes of anonymous private memory outside the Go heap,
// for use as a Linear or Arena buffer. release unmaps it; every allocation
// made from the buffer is invalid afterwards.
func MapBuffer(size int) (buf []byte, release func() error, err error) {
	if size <= 0 {
		return nil, nil, ErrInvalidSize
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "alloc: map %d bytes", size)
	}
	release = func() error {
		if data == nil {
			return nil
		}
		err := unix.Munmap(data)
		data = nil
		return err
	}
	return data, release, nil
}
