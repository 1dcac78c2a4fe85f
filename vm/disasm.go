package vm

import (
	"fmt"
	"strings"
)

// Disassemble renders a program as a human-readable listing: one indexed
// instruction per line, prefixed with its category. The format is a debug
// aid, not a wire format.
func Disassemble(program []Instruction) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("NBC listing (%d instructions)\n", len(program)))
	for i, in := range program {
		sb.WriteString(fmt.Sprintf("%4d: %-10s %s\n", i, in.Category, in))
	}
	return sb.String()
}
