package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Logical and comparison handlers
// ---------------------------------------------------------------------------
// AND/OR/XOR operate on truthiness; NOT is unary. Comparisons order numbers
// numerically and strings lexicographically; other pairings are a type
// fault. All results are booleans.

func init() {
	registerHandlers(CategoryLogical, map[string]handlerFunc{
		"AND": boolBinary(func(a, b bool) bool { return a && b }),
		"OR":  boolBinary(func(a, b bool) bool { return a || b }),
		"XOR": boolBinary(func(a, b bool) bool { return a != b }),
		"NOT": handleNot,
		"EQ":  equalityOp(false),
		"NE":  equalityOp(true),
		"LT":  orderingOp("LT", func(c int) bool { return c < 0 }),
		"LE":  orderingOp("LE", func(c int) bool { return c <= 0 }),
		"GT":  orderingOp("GT", func(c int) bool { return c > 0 }),
		"GE":  orderingOp("GE", func(c int) bool { return c >= 0 }),
	})
}

func boolBinary(fn func(a, b bool) bool) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		a, b, err := rt.popTwo()
		if err != nil {
			return err
		}
		rt.push(fn(IsTruthy(a), IsTruthy(b)))
		return nil
	}
}

func handleNot(rt *Runtime, in *Instruction) error {
	a, err := rt.pop()
	if err != nil {
		return err
	}
	rt.push(!IsTruthy(a))
	return nil
}

func equalityOp(negate bool) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		a, b, err := rt.popTwo()
		if err != nil {
			return err
		}
		eq := valuesEqual(a, b)
		if negate {
			eq = !eq
		}
		rt.push(eq)
		return nil
	}
}

func orderingOp(opcode string, accept func(cmp int) bool) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		a, b, err := rt.popTwo()
		if err != nil {
			return err
		}
		cmp, ok := compareValues(a, b)
		if !ok {
			return newFault(FaultTypeMismatch,
				fmt.Sprintf("%s cannot order %T and %T", opcode, a, b))
		}
		rt.push(accept(cmp))
		return nil
	}
}
