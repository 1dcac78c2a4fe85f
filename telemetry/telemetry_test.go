package telemetry

import (
	"testing"
	"time"

	"github.com/noodle-lang/nbc/vm"
)

func TestRecorderCollects(t *testing.T) {
	r := NewRecorder()
	r.RecordExecutionTime("program", 5*time.Millisecond)
	r.RecordExecutionTime("program", 7*time.Millisecond)
	r.RecordInstructionExecution("ADD", true)
	r.RecordInstructionExecution("ADD", false)
	r.RecordInstructionExecution("PUSH", true)
	r.RecordMemoryUsage(1024)

	if len(r.Durations["program"]) != 2 {
		t.Errorf("durations = %v", r.Durations["program"])
	}
	if r.InstructionCount("ADD") != 2 {
		t.Errorf("InstructionCount(ADD) = %d, want 2", r.InstructionCount("ADD"))
	}
	if r.InstructionCount("NEG") != 0 {
		t.Errorf("InstructionCount(NEG) = %d, want 0", r.InstructionCount("NEG"))
	}
	if len(r.Memory) != 1 || r.Memory[0] != 1024 {
		t.Errorf("memory = %v", r.Memory)
	}
}

// The recorder observes every instruction the engine dispatches.
func TestRecorderAsEngineSink(t *testing.T) {
	r := NewRecorder()
	rt := vm.NewRuntime(vm.DefaultConfig())
	rt.SetTelemetry(r)

	res := rt.Execute([]vm.Instruction{
		vm.Inst(vm.CategoryMemory, "PUSH", int64(2)),
		vm.Inst(vm.CategoryMemory, "PUSH", int64(3)),
		vm.Inst(vm.CategoryArithmetic, "ADD"),
	})
	if res.Err != nil {
		t.Fatalf("execution failed: %v", res.Err)
	}

	if r.InstructionCount("PUSH") != 2 {
		t.Errorf("InstructionCount(PUSH) = %d, want 2", r.InstructionCount("PUSH"))
	}
	if r.InstructionCount("ADD") != 1 {
		t.Errorf("InstructionCount(ADD) = %d, want 1", r.InstructionCount("ADD"))
	}
	if len(r.Durations["program"]) != 1 {
		t.Errorf("program durations = %v", r.Durations["program"])
	}
	if len(r.Memory) != 3 {
		t.Errorf("memory samples = %d, want one per instruction", len(r.Memory))
	}
}

func TestLogSinkIsSafe(t *testing.T) {
	// Log-backed sink has no observable state; it just must not panic.
	s := NewLogSink()
	s.RecordExecutionTime("program", time.Millisecond)
	s.RecordInstructionExecution("ADD", true)
	s.RecordMemoryUsage(0)
}
