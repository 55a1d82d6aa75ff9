package alloc

// Used returns the number of buffer bytes consumed, alignment padding
// included.
func (l *Linear) Used() int {
	return l.bump
}

// Capacity returns the size of the buffer.
func (l *Linear) Capacity() int {
	return len(l.buf)
}

// Remaining returns the bytes between the cursor and the end of the buffer.
func (l *Linear) Remaining() int {
	return len(l.buf) - l.bump
}

// Allocations returns the number of allocations not yet freed or moved.
func (l *Linear) Allocations() int {
	return l.live
}

// Utilization returns the ratio of used bytes to capacity (0.0 to 1.0).
// Returns 0.0 if the buffer is empty.
func (l *Linear) Utilization() float64 {
	if len(l.buf) == 0 {
		return 0
	}
	return float64(l.bump) / float64(len(l.buf))
}

// Metrics returns a snapshot of the allocator's statistics.
func (l *Linear) Metrics() Metrics {
	return Metrics{
		Used:        l.Used(),
		Capacity:    l.Capacity(),
		Allocations: l.Allocations(),
		Utilization: l.Utilization(),
	}
}

// Metrics contains statistical information about a Linear allocator.
type Metrics struct {
	Used        int     // Bytes consumed, padding included
	Capacity    int     // Buffer size in bytes
	Allocations int     // Live allocations
	Utilization float64 // Ratio of used to capacity (0.0-1.0)
}

// BlocksInUse returns the number of blocks handed out and not freed.
func (a *Arena) BlocksInUse() int {
	return a.inUse
}

// BlocksCarved returns the number of blocks taken from the buffer since the
// last Reset.
func (a *Arena) BlocksCarved() int {
	return len(a.blocks)
}

// MaxBlocks returns the number of blocks the buffer can hold.
func (a *Arena) MaxBlocks() int {
	n := len(a.lin.buf)
	if n < a.blockSize {
		return 0
	}
	// The first block may need padding to reach its alignment.
	first := alignedOffset(a.lin.buf, 0, a.blockAlign)
	if first+a.blockSize > n {
		return 0
	}
	return 1 + (n-first-a.blockSize)/a.stride
}

// Capacity returns the size of the buffer.
func (a *Arena) Capacity() int {
	return len(a.lin.buf)
}

// Metrics returns a snapshot of the arena's statistics.
func (a *Arena) Metrics() ArenaMetrics {
	m := ArenaMetrics{
		Metrics: Metrics{
			Used:        a.lin.Used(),
			Capacity:    a.Capacity(),
			Allocations: a.inUse,
			Utilization: a.lin.Utilization(),
		},
		BlockSize:    a.blockSize,
		BlocksCarved: a.BlocksCarved(),
		BlocksInUse:  a.inUse,
		MaxBlocks:    a.MaxBlocks(),
	}
	m.BlocksFree = m.BlocksCarved - m.BlocksInUse
	return m
}

// ArenaMetrics contains statistical information about an Arena allocator.
type ArenaMetrics struct {
	Metrics
	BlockSize    int // Fixed block size
	BlocksCarved int // Blocks taken from the buffer
	BlocksInUse  int // Blocks handed out
	BlocksFree   int // Carved blocks on the free list
	MaxBlocks    int // Blocks the buffer can hold
}
