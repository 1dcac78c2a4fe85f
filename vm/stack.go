package vm

import (
	"strings"
)

// ---------------------------------------------------------------------------
// OperandStack: the value stack
// ---------------------------------------------------------------------------

// OperandStack is the LIFO value stack used by instructions for operands and
// results. It is distinct from the call-frame stack and is exclusively owned
// by the worker goroutine during a run.
type OperandStack struct {
	values    []Value
	highWater int
}

// NewOperandStack returns an empty operand stack.
func NewOperandStack() *OperandStack {
	return &OperandStack{values: make([]Value, 0, 64)}
}

// Push adds a value to the top of the stack.
func (s *OperandStack) Push(v Value) {
	s.values = append(s.values, v)
	if len(s.values) > s.highWater {
		s.highWater = len(s.values)
	}
}

// Pop removes and returns the top value. Fails with a StackUnderflow fault
// on an empty stack.
func (s *OperandStack) Pop() (Value, error) {
	if len(s.values) == 0 {
		return nil, newFault(FaultStackUnderflow, "pop from empty operand stack")
	}
	top := len(s.values) - 1
	v := s.values[top]
	s.values[top] = nil // release for GC
	s.values = s.values[:top]
	return v, nil
}

// Peek returns the top value without removing it.
func (s *OperandStack) Peek() (Value, error) {
	if len(s.values) == 0 {
		return nil, newFault(FaultStackUnderflow, "peek on empty operand stack")
	}
	return s.values[len(s.values)-1], nil
}

// Swap exchanges the top two values.
func (s *OperandStack) Swap() error {
	n := len(s.values)
	if n < 2 {
		return newFault(FaultStackUnderflow, "swap needs two operand stack values")
	}
	s.values[n-1], s.values[n-2] = s.values[n-2], s.values[n-1]
	return nil
}

// Depth returns the current number of values on the stack.
func (s *OperandStack) Depth() int { return len(s.values) }

// HighWater returns the deepest the stack has been since the last reset.
func (s *OperandStack) HighWater() int { return s.highWater }

// Reset clears the stack and its high-water mark.
func (s *OperandStack) Reset() {
	for i := range s.values {
		s.values[i] = nil
	}
	s.values = s.values[:0]
	s.highWater = 0
}

// Dump renders the stack bottom-up for diagnostics.
func (s *OperandStack) Dump() string {
	parts := make([]string, len(s.values))
	for i, v := range s.values {
		parts[i] = formatValue(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
