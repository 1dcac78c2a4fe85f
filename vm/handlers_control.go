package vm

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Control-flow handlers
// ---------------------------------------------------------------------------
// Every control transfer sets pc to target-1 because the dispatch loop
// increments pc unconditionally after each instruction. The convention is
// applied uniformly across JMP/JZ/JNZ/CALL/RET and CALL_FUNCTION.

func init() {
	registerHandlers(CategoryControl, map[string]handlerFunc{
		"JMP":  handleJmp,
		"JZ":   branchOp("JZ", false),
		"JNZ":  branchOp("JNZ", true),
		"CALL": handleCall,
		"RET":  handleRet,
	})
}

// jumpTarget extracts and bounds-checks the first operand as a program
// address.
func jumpTarget(rt *Runtime, in *Instruction) (int, error) {
	if len(in.Operands) == 0 {
		return 0, newFault(FaultMissingOperands,
			fmt.Sprintf("%s requires a target address", in.Opcode))
	}
	target, ok := asInt(in.Operands[0])
	if !ok {
		return 0, newFault(FaultInvalidJumpTarget,
			fmt.Sprintf("%s target %v is not an address", in.Opcode, in.Operands[0]))
	}
	if target < 0 || target >= rt.programLen() {
		return 0, newFault(FaultInvalidJumpTarget,
			fmt.Sprintf("%s target %d out of bounds [0,%d)", in.Opcode, target, rt.programLen()))
	}
	return target, nil
}

func handleJmp(rt *Runtime, in *Instruction) error {
	target, err := jumpTarget(rt, in)
	if err != nil {
		return err
	}
	rt.redirect(target)
	return nil
}

// branchOp pops one value and jumps when its truthiness matches want.
func branchOp(opcode string, want bool) handlerFunc {
	return func(rt *Runtime, in *Instruction) error {
		target, err := jumpTarget(rt, in)
		if err != nil {
			return err
		}
		cond, err := rt.pop()
		if err != nil {
			return err
		}
		if IsTruthy(cond) == want {
			rt.redirect(target)
		}
		return nil
	}
}

// handleCall pushes the return address (pc+1), pushes the instruction's
// argument operands in reverse order, opens a call frame, and jumps.
func handleCall(rt *Runtime, in *Instruction) error {
	target, err := jumpTarget(rt, in)
	if err != nil {
		return err
	}
	args := in.Operands[1:]
	return rt.enterCall(fmt.Sprintf("call@%d", target), target, args)
}

// handleRet pops the return address, pops the return value, closes the
// current call frame, jumps back, and pushes the return value for the
// caller.
func handleRet(rt *Runtime, in *Instruction) error {
	raw, err := rt.pop()
	if err != nil {
		return err
	}
	ra, ok := asInt(raw)
	if !ok {
		return newFault(FaultInvalidJumpTarget,
			fmt.Sprintf("RET return address %v is not an address", raw))
	}
	if ra < 0 || ra > rt.programLen() {
		return newFault(FaultInvalidJumpTarget,
			fmt.Sprintf("RET return address %d out of bounds", ra))
	}
	result, err := rt.pop()
	if err != nil {
		return err
	}
	if rt.frames.Depth() > 0 {
		if _, err := rt.frames.PopFrame(); err != nil {
			return err
		}
	}
	rt.redirect(ra)
	rt.push(result)
	return nil
}

// enterCall is the shared return-address/argument-push/frame/jump sequence
// for CALL and CALL_FUNCTION.
func (rt *Runtime) enterCall(name string, target int, args []Value) error {
	locals := make(map[string]Value, len(args))
	for i, a := range args {
		locals[fmt.Sprintf("arg%d", i)] = a
	}
	returnAddr := rt.currentPC() + 1
	if _, err := rt.frames.PushFrame(name, locals, returnAddr); err != nil {
		return err
	}
	rt.push(returnAddr)
	for i := len(args) - 1; i >= 0; i-- {
		rt.push(args[i])
	}
	rt.redirect(target)
	return nil
}
