//go:build linux

package alloc

import "golang.org/x/sys/unix"

func osThreadID() int {
	return unix.Gettid()
}
