package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Matrix handlers
// ---------------------------------------------------------------------------
// Matrix values are opaque handles created and consumed by the attached
// MatrixBackend. Every successful operation increments the matrix-operation
// counter and fires the matrix hook.

func init() {
	registerHandlers(CategoryMatrix, map[string]handlerFunc{
		"CREATE_MATRIX": handleCreateMatrix,
		"MATRIX_ADD": matrixBinary("MATRIX_ADD",
			func(mb MatrixBackend, a, b Value) (Value, error) { return mb.Add(a, b) }),
		"MATRIX_SUB": matrixBinary("MATRIX_SUB",
			func(mb MatrixBackend, a, b Value) (Value, error) { return mb.Subtract(a, b) }),
		"MATRIX_MUL": matrixBinary("MATRIX_MUL",
			func(mb MatrixBackend, a, b Value) (Value, error) { return mb.Multiply(a, b) }),
		"MATRIX_TRANSPOSE": matrixUnary("MATRIX_TRANSPOSE",
			func(mb MatrixBackend, m Value) (Value, error) { return mb.Transpose(m) }),
		"MATRIX_INVERSE": matrixUnary("MATRIX_INVERSE",
			func(mb MatrixBackend, m Value) (Value, error) { return mb.Inverse(m) }),
		"MATRIX_DET": matrixUnary("MATRIX_DET",
			func(mb MatrixBackend, m Value) (Value, error) { return mb.Determinant(m) }),
	})
}

func requireMatrix(rt *Runtime, opcode string) (MatrixBackend, error) {
	if rt.matrix == nil {
		return nil, newFault(FaultMatrixOpsUnavailable,
			fmt.Sprintf("%s requires a matrix backend", opcode))
	}
	return rt.matrix, nil
}

// handleCreateMatrix builds a matrix from the instruction's row data and
// pushes its handle.
func handleCreateMatrix(rt *Runtime, in *Instruction) error {
	mb, err := requireMatrix(rt, "CREATE_MATRIX")
	if err != nil {
		return err
	}
	if len(in.Operands) == 0 {
		return newFault(FaultMissingOperands, "CREATE_MATRIX requires row data")
	}
	rows, ok := in.Operands[0].([][]float64)
	if !ok {
		return newFault(FaultTypeMismatch,
			fmt.Sprintf("CREATE_MATRIX data %T is not [][]float64", in.Operands[0]))
	}
	m, err := mb.CreateMatrix(rows)
	if err != nil {
		return wrapFault(FaultCollaborator, "create matrix failed", err)
	}
	rt.countMatrixOperation("CREATE_MATRIX", m)
	rt.push(m)
	return nil
}

func matrixBinary(opcode string, fn func(mb MatrixBackend, a, b Value) (Value, error)) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		mb, err := requireMatrix(rt, opcode)
		if err != nil {
			return err
		}
		a, b, err := rt.popTwo()
		if err != nil {
			return err
		}
		result, err := fn(mb, a, b)
		if err != nil {
			return wrapFault(FaultCollaborator, fmt.Sprintf("%s failed", opcode), err)
		}
		rt.countMatrixOperation(opcode, result)
		rt.push(result)
		return nil
	}
}

func matrixUnary(opcode string, fn func(mb MatrixBackend, m Value) (Value, error)) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		mb, err := requireMatrix(rt, opcode)
		if err != nil {
			return err
		}
		m, err := rt.pop()
		if err != nil {
			return err
		}
		result, err := fn(mb, m)
		if err != nil {
			return wrapFault(FaultCollaborator, fmt.Sprintf("%s failed", opcode), err)
		}
		rt.countMatrixOperation(opcode, result)
		rt.push(result)
		return nil
	}
}
