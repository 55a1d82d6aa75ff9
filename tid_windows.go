//go:build windows

package alloc

import "golang.org/x/sys/windows"

func osThreadID() int {
	return int(windows.GetCurrentThreadId())
}
