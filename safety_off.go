//go:build allocnosafety

package alloc

// SafetyEnabled reports whether allocator identity, thread affinity and
// double-free checks are compiled in.
const SafetyEnabled = false
