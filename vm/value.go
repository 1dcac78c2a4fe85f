package vm

import (
	"fmt"
	"math"
	"reflect"
	"strings"
)

// Value is a runtime value on the operand stack. Instructions carry and
// produce plain Go values: nil, bool, int64, float64, string, function
// descriptors, query row sets, transaction handles, and opaque matrix
// handles owned by the matrix collaborator.
type Value = any

// FunctionDescriptor is the value pushed by CREATE_FUNCTION and consumed
// by CALL_FUNCTION.
type FunctionDescriptor struct {
	Name    string
	Address int
	Arity   int
}

func (f FunctionDescriptor) String() string {
	return fmt.Sprintf("<function %s/%d @%d>", f.Name, f.Arity, f.Address)
}

// ---------------------------------------------------------------------------
// Truthiness and numeric coercion
// ---------------------------------------------------------------------------

// IsTruthy reports whether a value counts as true for conditional opcodes.
// nil, false, numeric zero, and the empty string are falsy; everything else
// is truthy.
func IsTruthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case int:
		return x != 0
	case int64:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// asFloat coerces a value to float64. Booleans do not coerce; arithmetic
// on them is a type fault.
func asFloat(v Value) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

// asInt coerces a value to an int. Float values must be integral.
func asInt(v Value) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x == math.Trunc(x) {
			return int(x), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// isIntegral reports whether a value is an integer-typed number.
func isIntegral(v Value) bool {
	switch v.(type) {
	case int, int64:
		return true
	default:
		return false
	}
}

// asInt64 returns the integer form of an integral value.
func asInt64(v Value) int64 {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int64:
		return x
	default:
		panic("vm: asInt64 on non-integral value")
	}
}

// valuesEqual compares two values: numerically when both are numbers,
// structurally otherwise.
func valuesEqual(a, b Value) bool {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		return af == bf
	}
	if aok != bok {
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values. Numbers compare numerically, strings
// lexicographically. Returns ok=false for unordered pairs.
func compareValues(a, b Value) (cmp int, ok bool) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs), true
	}
	return 0, false
}

// formatValue renders a value for listings and stack dumps.
func formatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}
