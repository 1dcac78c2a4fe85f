package vm

// ---------------------------------------------------------------------------
// Memory handlers: direct operand-stack manipulation
// ---------------------------------------------------------------------------

func init() {
	registerHandlers(CategoryMemory, map[string]handlerFunc{
		"PUSH": handlePush,
		"POP":  handlePop,
		"DUP":  handleDup,
		"SWAP": handleSwap,
	})
}

// handlePush pushes the instruction's inline literal.
func handlePush(rt *Runtime, in *Instruction) error {
	if len(in.Operands) == 0 {
		return newFault(FaultMissingOperands, "PUSH requires a literal operand")
	}
	rt.push(in.Operands[0])
	return nil
}

func handlePop(rt *Runtime, in *Instruction) error {
	_, err := rt.pop()
	return err
}

// handleDup peeks the top value and pushes a second reference to it.
func handleDup(rt *Runtime, in *Instruction) error {
	v, err := rt.values.Peek()
	if err != nil {
		return err
	}
	rt.push(v)
	return nil
}

// handleSwap pops two values and pushes them back in swapped order.
func handleSwap(rt *Runtime, in *Instruction) error {
	a, b, err := rt.popTwo()
	if err != nil {
		return err
	}
	rt.push(b)
	rt.push(a)
	return nil
}
