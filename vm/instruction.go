package vm

import (
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Instruction categories
// ---------------------------------------------------------------------------

// Category groups opcodes by the handler that executes them.
type Category uint8

const (
	CategoryArithmetic Category = iota
	CategoryLogical
	CategoryMemory
	CategoryControl
	CategoryFunction
	CategoryDatabase
	CategoryMatrix

	numCategories
)

var categoryNames = [numCategories]string{
	CategoryArithmetic: "ARITHMETIC",
	CategoryLogical:    "LOGICAL",
	CategoryMemory:     "MEMORY",
	CategoryControl:    "CONTROL",
	CategoryFunction:   "FUNCTION",
	CategoryDatabase:   "DATABASE",
	CategoryMatrix:     "MATRIX",
}

func (c Category) String() string {
	if c < numCategories {
		return categoryNames[c]
	}
	return fmt.Sprintf("UNKNOWN_CATEGORY_%d", uint8(c))
}

// CategoryFromName resolves a category name (case-insensitive).
func CategoryFromName(name string) (Category, bool) {
	upper := strings.ToUpper(name)
	for c, n := range categoryNames {
		if n == upper {
			return Category(c), true
		}
	}
	return 0, false
}

// ---------------------------------------------------------------------------
// Instruction
// ---------------------------------------------------------------------------

// Instruction is a single typed bytecode record. Instructions are immutable
// once a program has been loaded.
type Instruction struct {
	Category Category
	Opcode   string
	Operands []Value
}

// Inst builds an instruction. Convenience for program construction and tests.
func Inst(category Category, opcode string, operands ...Value) Instruction {
	return Instruction{Category: category, Opcode: opcode, Operands: operands}
}

func (in Instruction) String() string {
	if len(in.Operands) == 0 {
		return in.Opcode
	}
	parts := make([]string, len(in.Operands))
	for i, op := range in.Operands {
		parts[i] = formatValue(op)
	}
	return in.Opcode + " " + strings.Join(parts, " ")
}

// validate checks the load-time invariants: known category, known opcode
// within the category. Operand arity is checked at dispatch time because
// several opcodes take a variable argument tail.
func (in Instruction) validate() error {
	if in.Category >= numCategories {
		return newFault(FaultInvalidProgram,
			fmt.Sprintf("unknown category %d", uint8(in.Category)))
	}
	if in.Opcode == "" {
		return newFault(FaultInvalidProgram,
			fmt.Sprintf("%s instruction with empty opcode", in.Category))
	}
	if !KnownOpcode(in.Category, in.Opcode) {
		return newFault(FaultUnknownOpcode,
			fmt.Sprintf("unknown opcode %s in category %s", in.Opcode, in.Category))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Opcode registry
// ---------------------------------------------------------------------------

// handlerFunc executes one instruction against the runtime. Handlers mutate
// the operand stack and/or frame stack and return a *Fault on failure.
type handlerFunc func(rt *Runtime, in *Instruction) error

// handlerTables is the closed opcode→handler lookup, keyed by category.
// Populated by the handlers_*.go init functions.
var handlerTables [numCategories]map[string]handlerFunc

func registerHandlers(c Category, table map[string]handlerFunc) {
	if handlerTables[c] != nil {
		panic(fmt.Sprintf("vm: duplicate handler table for category %s", c))
	}
	handlerTables[c] = table
}

func lookupHandler(c Category, opcode string) (handlerFunc, bool) {
	if c >= numCategories {
		return nil, false
	}
	h, ok := handlerTables[c][opcode]
	return h, ok
}

// KnownOpcode reports whether the opcode exists within the category.
func KnownOpcode(c Category, opcode string) bool {
	_, ok := lookupHandler(c, opcode)
	return ok
}

// OpcodeCategory finds the category that defines an opcode. Used by the
// listing parser, where opcodes are unambiguous across categories.
func OpcodeCategory(opcode string) (Category, bool) {
	for c := Category(0); c < numCategories; c++ {
		if KnownOpcode(c, opcode) {
			return c, true
		}
	}
	return 0, false
}
