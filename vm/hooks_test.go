package vm

import (
	"testing"
)

func TestHooksFireInRegistrationOrder(t *testing.T) {
	h := NewHookSet()
	var order []int
	h.Add(EventBeforeInstruction, func(ctx *EventContext) { order = append(order, 1) })
	h.Add(EventBeforeInstruction, func(ctx *EventContext) { order = append(order, 2) })
	h.Add(EventBeforeInstruction, func(ctx *EventContext) { order = append(order, 3) })

	h.fire(EventBeforeInstruction, &EventContext{Event: EventBeforeInstruction})
	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Errorf("callbacks fired as %v, want [1 2 3]", order)
	}
}

func TestHookRemove(t *testing.T) {
	h := NewHookSet()
	called := false
	id := h.Add(EventError, func(ctx *EventContext) { called = true })
	h.Remove(EventError, id)
	h.fire(EventError, &EventContext{Event: EventError})
	if called {
		t.Error("removed callback still fired")
	}
	if h.Count(EventError) != 0 {
		t.Errorf("Count = %d, want 0", h.Count(EventError))
	}
	// Unknown handles are ignored.
	h.Remove(EventError, 999)
}

func TestHookPanicIsolation(t *testing.T) {
	h := NewHookSet()
	var survived bool
	h.Add(EventAfterInstruction, func(ctx *EventContext) { panic("boom") })
	h.Add(EventAfterInstruction, func(ctx *EventContext) { survived = true })

	h.fire(EventAfterInstruction, &EventContext{Event: EventAfterInstruction})
	if !survived {
		t.Error("callback after a panicking one did not run")
	}
}

func TestHookPanicDoesNotAbortRun(t *testing.T) {
	rt := NewRuntime(testConfig())
	rt.Hooks().Add(EventBeforeInstruction, func(ctx *EventContext) { panic("boom") })
	res := rt.Execute([]Instruction{push(int64(1))})
	if res.Err != nil {
		t.Fatalf("run failed: %v", res.Err)
	}
	if res.Value != int64(1) {
		t.Errorf("Value = %v, want 1", res.Value)
	}
}

func TestStackEventsDuringExecution(t *testing.T) {
	rt := NewRuntime(testConfig())
	var pushes, pops []Value
	rt.Hooks().Add(EventStackPush, func(ctx *EventContext) { pushes = append(pushes, ctx.Value) })
	rt.Hooks().Add(EventStackPop, func(ctx *EventContext) { pops = append(pops, ctx.Value) })

	res := rt.Execute([]Instruction{
		push(int64(2)), push(int64(3)), Inst(CategoryArithmetic, "ADD"),
	})
	if res.Err != nil {
		t.Fatalf("run failed: %v", res.Err)
	}
	// ADD pops right then left, then pushes the sum.
	wantPushes := []Value{int64(2), int64(3), int64(5)}
	wantPops := []Value{int64(3), int64(2)}
	if len(pushes) != len(wantPushes) {
		t.Fatalf("got %d pushes, want %d", len(pushes), len(wantPushes))
	}
	for i := range wantPushes {
		if pushes[i] != wantPushes[i] {
			t.Errorf("push[%d] = %v, want %v", i, pushes[i], wantPushes[i])
		}
	}
	for i := range wantPops {
		if pops[i] != wantPops[i] {
			t.Errorf("pop[%d] = %v, want %v", i, pops[i], wantPops[i])
		}
	}
}

func TestErrorHookFiresOnFault(t *testing.T) {
	rt := NewRuntime(testConfig())
	var seen []error
	rt.Hooks().Add(EventError, func(ctx *EventContext) { seen = append(seen, ctx.Err) })

	rt.Execute([]Instruction{
		push(int64(1)), push(int64(0)), Inst(CategoryArithmetic, "DIV"),
	})
	if len(seen) != 1 {
		t.Fatalf("error hook fired %d times, want 1", len(seen))
	}
	if !IsFault(seen[0], FaultDivisionByZero) {
		t.Errorf("hook saw %v, want DivisionByZero", seen[0])
	}
}
