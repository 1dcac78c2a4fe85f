// Package vm implements the NBC (Noodle Bytecode) execution engine.
//
// This package contains:
//   - Typed instruction records with load-time validation
//   - Operand stack and call-frame stack manager
//   - Category dispatch handlers (arithmetic, logical, memory, control,
//     function, database, matrix)
//   - Runtime coordinator: program counter, run state machine, worker
//     goroutine, pause/stop/timeout gates
//   - Fault taxonomy and fault reporting
package vm
