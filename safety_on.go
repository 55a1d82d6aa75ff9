//go:build !allocnosafety

package alloc

// SafetyEnabled reports whether allocator identity, thread affinity and
// double-free checks are compiled in. Build with the allocnosafety tag to
// omit them.
const SafetyEnabled = true
