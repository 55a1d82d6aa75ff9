//go:build !unix

package alloc

// MapBuffer falls back to a heap buffer where anonymous mappings are not
// available.
func MapBuffer(size int) (buf []byte, release func() error, err error) {
	if size <= 0 {
		return nil, nil, ErrInvalidSize
	}
	return make([]byte, size), func() error { return nil }, nil
}
