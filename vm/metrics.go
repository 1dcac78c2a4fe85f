package vm

import (
	"time"
)

// Metrics are the runtime's execution counters. Counters accumulate across
// runs and reset only through Runtime.Reset.
type Metrics struct {
	InstructionsExecuted uint64
	Errors               uint64
	Warnings             uint64
	DatabaseQueries      uint64
	MatrixOperations     uint64
	StackHighWater       int
	StartedAt            time.Time
	FinishedAt           time.Time
}

// Elapsed returns the wall-clock duration of the last run, or zero if no
// run has completed.
func (m Metrics) Elapsed() time.Duration {
	if m.StartedAt.IsZero() || m.FinishedAt.IsZero() {
		return 0
	}
	return m.FinishedAt.Sub(m.StartedAt)
}
