package vm

import (
	"fmt"
	"math"
)

// ---------------------------------------------------------------------------
// Arithmetic handlers
// ---------------------------------------------------------------------------
// Binary opcodes pop the right then left operand; unary opcodes pop one.
// Integer-typed operands keep integer results except for DIV and POW, which
// always produce floats.

func init() {
	registerHandlers(CategoryArithmetic, map[string]handlerFunc{
		"ADD": arithBinary("ADD", addValues),
		"SUB": arithBinary("SUB", subValues),
		"MUL": arithBinary("MUL", mulValues),
		"DIV": arithBinary("DIV", divValues),
		"MOD": arithBinary("MOD", modValues),
		"POW": arithBinary("POW", powValues),
		"NEG": arithUnary("NEG", negValue),
		"ABS": arithUnary("ABS", absValue),
	})
}

func arithBinary(opcode string, fn func(a, b Value) (Value, error)) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		a, b, err := rt.popTwo()
		if err != nil {
			return err
		}
		result, err := fn(a, b)
		if err != nil {
			return err
		}
		rt.push(result)
		return nil
	}
}

func arithUnary(opcode string, fn func(a Value) (Value, error)) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		a, err := rt.pop()
		if err != nil {
			return err
		}
		result, err := fn(a)
		if err != nil {
			return err
		}
		rt.push(result)
		return nil
	}
}

func numericPair(opcode string, a, b Value) (float64, float64, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return 0, 0, newFault(FaultTypeMismatch,
			fmt.Sprintf("%s requires numeric operands, got %T and %T", opcode, a, b))
	}
	return af, bf, nil
}

func addValues(a, b Value) (Value, error) {
	if isIntegral(a) && isIntegral(b) {
		return asInt64(a) + asInt64(b), nil
	}
	af, bf, err := numericPair("ADD", a, b)
	if err != nil {
		return nil, err
	}
	return af + bf, nil
}

func subValues(a, b Value) (Value, error) {
	if isIntegral(a) && isIntegral(b) {
		return asInt64(a) - asInt64(b), nil
	}
	af, bf, err := numericPair("SUB", a, b)
	if err != nil {
		return nil, err
	}
	return af - bf, nil
}

func mulValues(a, b Value) (Value, error) {
	if isIntegral(a) && isIntegral(b) {
		return asInt64(a) * asInt64(b), nil
	}
	af, bf, err := numericPair("MUL", a, b)
	if err != nil {
		return nil, err
	}
	return af * bf, nil
}

func divValues(a, b Value) (Value, error) {
	af, bf, err := numericPair("DIV", a, b)
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, newFault(FaultDivisionByZero, "division by zero").
			WithContext("dividend", a)
	}
	return af / bf, nil
}

func modValues(a, b Value) (Value, error) {
	af, bf, err := numericPair("MOD", a, b)
	if err != nil {
		return nil, err
	}
	if bf == 0 {
		return nil, newFault(FaultDivisionByZero, "modulo by zero").
			WithContext("dividend", a)
	}
	if isIntegral(a) && isIntegral(b) {
		return asInt64(a) % asInt64(b), nil
	}
	return math.Mod(af, bf), nil
}

func powValues(a, b Value) (Value, error) {
	af, bf, err := numericPair("POW", a, b)
	if err != nil {
		return nil, err
	}
	return math.Pow(af, bf), nil
}

func negValue(a Value) (Value, error) {
	if isIntegral(a) {
		return -asInt64(a), nil
	}
	af, ok := asFloat(a)
	if !ok {
		return nil, newFault(FaultTypeMismatch,
			fmt.Sprintf("NEG requires a numeric operand, got %T", a))
	}
	return -af, nil
}

func absValue(a Value) (Value, error) {
	if isIntegral(a) {
		n := asInt64(a)
		if n < 0 {
			n = -n
		}
		return n, nil
	}
	af, ok := asFloat(a)
	if !ok {
		return nil, newFault(FaultTypeMismatch,
			fmt.Sprintf("ABS requires a numeric operand, got %T", a))
	}
	return math.Abs(af), nil
}
