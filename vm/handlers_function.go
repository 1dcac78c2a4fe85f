package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Function handlers
// ---------------------------------------------------------------------------

func init() {
	registerHandlers(CategoryFunction, map[string]handlerFunc{
		"CREATE_FUNCTION": handleCreateFunction,
		"CALL_FUNCTION":   handleCallFunction,
	})
}

// handleCreateFunction builds a {name, address, arity} descriptor from the
// instruction operands and pushes it.
func handleCreateFunction(rt *Runtime, in *Instruction) error {
	if len(in.Operands) < 3 {
		return newFault(FaultMissingOperands,
			"CREATE_FUNCTION requires name, address, and arity operands")
	}
	name, ok := in.Operands[0].(string)
	if !ok {
		return newFault(FaultTypeMismatch,
			fmt.Sprintf("CREATE_FUNCTION name %v is not a string", in.Operands[0]))
	}
	address, ok := asInt(in.Operands[1])
	if !ok || address < 0 || address >= rt.programLen() {
		return newFault(FaultInvalidJumpTarget,
			fmt.Sprintf("CREATE_FUNCTION address %v out of bounds", in.Operands[1]))
	}
	arity, ok := asInt(in.Operands[2])
	if !ok || arity < 0 {
		return newFault(FaultTypeMismatch,
			fmt.Sprintf("CREATE_FUNCTION arity %v is not a count", in.Operands[2]))
	}
	rt.push(FunctionDescriptor{Name: name, Address: address, Arity: arity})
	return nil
}

// handleCallFunction pops a function descriptor and its arity's worth of
// arguments, then performs the same return-address/argument-push/jump
// sequence as CALL.
func handleCallFunction(rt *Runtime, in *Instruction) error {
	raw, err := rt.pop()
	if err != nil {
		return err
	}
	fn, ok := raw.(FunctionDescriptor)
	if !ok {
		return newFault(FaultTypeMismatch,
			fmt.Sprintf("CALL_FUNCTION target %T is not a function descriptor", raw))
	}
	// Popping restores the original argument order back to front; args ends
	// up ordered first-pushed first.
	args := make([]Value, fn.Arity)
	for i := fn.Arity - 1; i >= 0; i-- {
		v, err := rt.pop()
		if err != nil {
			return err
		}
		args[i] = v
	}
	return rt.enterCall(fn.Name, fn.Address, args)
}
