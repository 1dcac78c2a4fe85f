package vm

import (
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("nbc.vm")

// ---------------------------------------------------------------------------
// Collaborator interfaces
// ---------------------------------------------------------------------------
// The engine consumes external components through narrow call surfaces and
// never reaches into their internals. Each is an optional capability checked
// once at dispatch time.

// DatabaseBackend is the call surface of the database collaborator.
type DatabaseBackend interface {
	ExecuteQuery(query string, params []Value) ([]map[string]Value, error)
	BeginTransaction() (string, error)
	CommitTransaction(id string) error
	RollbackTransaction(id string) error
}

// MatrixBackend is the call surface of the matrix collaborator. Matrix
// values are opaque handles owned by the backend.
type MatrixBackend interface {
	CreateMatrix(rows [][]float64) (Value, error)
	Add(a, b Value) (Value, error)
	Subtract(a, b Value) (Value, error)
	Multiply(a, b Value) (Value, error)
	Transpose(m Value) (Value, error)
	Inverse(m Value) (Value, error)
	Determinant(m Value) (float64, error)
}

// TelemetrySink receives fire-and-forget measurements; results are never
// read back.
type TelemetrySink interface {
	RecordExecutionTime(label string, d time.Duration)
	RecordInstructionExecution(label string, success bool)
	RecordMemoryUsage(bytes uint64)
}

// nopTelemetry is the sink used when none is attached.
type nopTelemetry struct{}

func (nopTelemetry) RecordExecutionTime(string, time.Duration) {}
func (nopTelemetry) RecordInstructionExecution(string, bool)   {}
func (nopTelemetry) RecordMemoryUsage(uint64)                  {}
