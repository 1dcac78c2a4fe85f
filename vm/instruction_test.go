package vm

import (
	"testing"
)

func TestInstructionString(t *testing.T) {
	tests := []struct {
		in   Instruction
		want string
	}{
		{Inst(CategoryArithmetic, "ADD"), "ADD"},
		{Inst(CategoryMemory, "PUSH", int64(2)), "PUSH 2"},
		{Inst(CategoryMemory, "PUSH", "hi"), `PUSH "hi"`},
		{Inst(CategoryControl, "JMP", int64(7)), "JMP 7"},
		{Inst(CategoryFunction, "CREATE_FUNCTION", "f", int64(3), int64(1)), `CREATE_FUNCTION "f" 3 1`},
	}
	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestInstructionValidate(t *testing.T) {
	tests := []struct {
		name string
		in   Instruction
		code FaultCode
	}{
		{"unknown category", Instruction{Category: Category(42), Opcode: "ADD"}, FaultInvalidProgram},
		{"empty opcode", Instruction{Category: CategoryArithmetic}, FaultInvalidProgram},
		{"unknown opcode", Inst(CategoryArithmetic, "FROB"), FaultUnknownOpcode},
		{"wrong category", Inst(CategoryArithmetic, "PUSH"), FaultUnknownOpcode},
	}
	for _, tt := range tests {
		err := tt.in.validate()
		if !IsFault(err, tt.code) {
			t.Errorf("%s: validate() = %v, want %s", tt.name, err, tt.code)
		}
	}
	if err := Inst(CategoryArithmetic, "ADD").validate(); err != nil {
		t.Errorf("valid instruction rejected: %v", err)
	}
}

func TestKnownOpcodeTables(t *testing.T) {
	tests := []struct {
		category Category
		opcodes  []string
	}{
		{CategoryArithmetic, []string{"ADD", "SUB", "MUL", "DIV", "MOD", "POW", "NEG", "ABS"}},
		{CategoryLogical, []string{"AND", "OR", "NOT", "XOR", "EQ", "NE", "LT", "LE", "GT", "GE"}},
		{CategoryMemory, []string{"PUSH", "POP", "DUP", "SWAP"}},
		{CategoryControl, []string{"JMP", "JZ", "JNZ", "CALL", "RET"}},
		{CategoryFunction, []string{"CREATE_FUNCTION", "CALL_FUNCTION"}},
		{CategoryDatabase, []string{"DB_QUERY", "DB_BEGIN_TX", "DB_COMMIT_TX", "DB_ROLLBACK_TX"}},
		{CategoryMatrix, []string{"CREATE_MATRIX", "MATRIX_ADD", "MATRIX_SUB", "MATRIX_MUL", "MATRIX_TRANSPOSE", "MATRIX_INVERSE", "MATRIX_DET"}},
	}
	for _, tt := range tests {
		for _, op := range tt.opcodes {
			if !KnownOpcode(tt.category, op) {
				t.Errorf("%s missing opcode %s", tt.category, op)
			}
		}
	}
}

func TestOpcodeCategory(t *testing.T) {
	if c, ok := OpcodeCategory("MATRIX_DET"); !ok || c != CategoryMatrix {
		t.Errorf("OpcodeCategory(MATRIX_DET) = %v,%t", c, ok)
	}
	if _, ok := OpcodeCategory("NOPE"); ok {
		t.Error("OpcodeCategory(NOPE) should not resolve")
	}
}

func TestCategoryFromName(t *testing.T) {
	if c, ok := CategoryFromName("arithmetic"); !ok || c != CategoryArithmetic {
		t.Errorf("CategoryFromName(arithmetic) = %v,%t", c, ok)
	}
	if _, ok := CategoryFromName("widgets"); ok {
		t.Error("CategoryFromName(widgets) should not resolve")
	}
}
