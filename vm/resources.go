package vm

import (
	"runtime"
)

// ResourceTracker reports process memory usage. The coordinator queries it
// around each instruction; implementations must be safe for repeated calls
// from the worker goroutine.
type ResourceTracker interface {
	MemoryUsage() uint64
}

// memStatsTracker reads the Go runtime's heap accounting. It is the default
// tracker when none is attached.
type memStatsTracker struct{}

func (memStatsTracker) MemoryUsage() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}
