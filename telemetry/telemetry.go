// Package telemetry provides sinks for the engine's fire-and-forget
// measurements.
package telemetry

import (
	"sync"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("nbc.telemetry")

// LogSink records measurements to the process log at debug level.
type LogSink struct{}

// NewLogSink returns a log-backed telemetry sink.
func NewLogSink() *LogSink { return &LogSink{} }

func (*LogSink) RecordExecutionTime(label string, d time.Duration) {
	log.Debugf("execution time %s: %s", label, d)
}

func (*LogSink) RecordInstructionExecution(label string, success bool) {
	log.Debugf("instruction %s success=%t", label, success)
}

func (*LogSink) RecordMemoryUsage(bytes uint64) {
	log.Debugf("memory usage: %d bytes", bytes)
}

// Recorder captures measurements in memory. Intended for tests and local
// inspection.
type Recorder struct {
	mu           sync.Mutex
	Durations    map[string][]time.Duration
	Instructions map[string][]bool
	Memory       []uint64
}

// NewRecorder returns an empty in-memory recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		Durations:    make(map[string][]time.Duration),
		Instructions: make(map[string][]bool),
	}
}

func (r *Recorder) RecordExecutionTime(label string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Durations[label] = append(r.Durations[label], d)
}

func (r *Recorder) RecordInstructionExecution(label string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Instructions[label] = append(r.Instructions[label], success)
}

func (r *Recorder) RecordMemoryUsage(bytes uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Memory = append(r.Memory, bytes)
}

// InstructionCount returns how many executions were recorded for a label.
func (r *Recorder) InstructionCount(label string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Instructions[label])
}
