// Package report encodes execution results for external tooling using
// canonical CBOR, so two encodings of the same run compare byte-equal.
package report

import (
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/noodle-lang/nbc/vm"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Metrics mirrors vm.Metrics with stable field tags.
type Metrics struct {
	InstructionsExecuted uint64    `cbor:"instructions"`
	Errors               uint64    `cbor:"errors"`
	Warnings             uint64    `cbor:"warnings"`
	DatabaseQueries      uint64    `cbor:"db_queries"`
	MatrixOperations     uint64    `cbor:"matrix_ops"`
	StackHighWater       int       `cbor:"stack_high_water"`
	StartedAt            time.Time `cbor:"started_at"`
	FinishedAt           time.Time `cbor:"finished_at"`
}

// TraceFrame is one call-stack entry, top frame first.
type TraceFrame struct {
	ID         int64     `cbor:"id"`
	Name       string    `cbor:"name"`
	LocalCount int       `cbor:"locals"`
	ReturnAddr int       `cbor:"return_addr"`
	Depth      int       `cbor:"depth"`
	Created    time.Time `cbor:"created"`
}

// ClosedFrame is one entry of the closed-frame audit list.
type ClosedFrame struct {
	ID         int64     `cbor:"id"`
	Name       string    `cbor:"name"`
	LocalCount int       `cbor:"locals"`
	ReturnAddr int       `cbor:"return_addr"`
	Created    time.Time `cbor:"created"`
}

// FaultRecord is one reported fault with its execution context.
type FaultRecord struct {
	Code       string `cbor:"code"`
	Message    string `cbor:"message"`
	Severity   string `cbor:"severity"`
	Kind       string `cbor:"kind"`
	Recovery   string `cbor:"recovery"`
	PC         int    `cbor:"pc"`
	StackDepth int    `cbor:"stack_depth"`
	FrameDepth int    `cbor:"frame_depth"`
}

// Report is the full execution record produced after a run.
type Report struct {
	Success bool          `cbor:"success"`
	State   string        `cbor:"state"`
	Value   string        `cbor:"value,omitempty"` // rendered top-of-stack value
	Metrics Metrics       `cbor:"metrics"`
	Trace   []TraceFrame  `cbor:"trace,omitempty"`
	Closed  []ClosedFrame `cbor:"closed,omitempty"`
	Faults  []FaultRecord `cbor:"faults,omitempty"`
}

// Build assembles a report from an execution result and the runtime's
// post-run introspection surfaces.
func Build(res vm.Result, trace []vm.FrameDescriptor, closed []*vm.Frame, faults []vm.FaultReport) Report {
	r := Report{
		Success: res.Success,
		State:   res.State.String(),
		Metrics: Metrics{
			InstructionsExecuted: res.Metrics.InstructionsExecuted,
			Errors:               res.Metrics.Errors,
			Warnings:             res.Metrics.Warnings,
			DatabaseQueries:      res.Metrics.DatabaseQueries,
			MatrixOperations:     res.Metrics.MatrixOperations,
			StackHighWater:       res.Metrics.StackHighWater,
			StartedAt:            res.Metrics.StartedAt,
			FinishedAt:           res.Metrics.FinishedAt,
		},
	}
	if res.Value != nil {
		r.Value = fmt.Sprintf("%v", res.Value)
	}
	for _, f := range trace {
		r.Trace = append(r.Trace, TraceFrame{
			ID:         f.ID,
			Name:       f.Name,
			LocalCount: f.LocalCount,
			ReturnAddr: f.ReturnAddr,
			Depth:      f.Depth,
			Created:    f.Created,
		})
	}
	for _, f := range closed {
		r.Closed = append(r.Closed, ClosedFrame{
			ID:         f.ID,
			Name:       f.Name,
			LocalCount: len(f.Locals),
			ReturnAddr: f.ReturnAddr,
			Created:    f.Created,
		})
	}
	for _, rep := range faults {
		r.Faults = append(r.Faults, FaultRecord{
			Code:       string(rep.Fault.Code),
			Message:    rep.Fault.Message,
			Severity:   rep.Fault.Severity.String(),
			Kind:       string(rep.Fault.Kind),
			Recovery:   string(rep.Fault.Recovery),
			PC:         rep.PC,
			StackDepth: rep.StackDepth,
			FrameDepth: rep.FrameDepth,
		})
	}
	return r
}

// Marshal serializes a report to canonical CBOR bytes.
func Marshal(r *Report) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// Unmarshal deserializes a report from CBOR bytes.
func Unmarshal(data []byte) (*Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("report: unmarshal: %w", err)
	}
	return &r, nil
}
