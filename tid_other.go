//go:build !linux && !windows

package alloc

// osThreadID is unavailable here; a zero id disables affinity checks.
func osThreadID() int {
	return 0
}
