package vm

import (
	"fmt"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Run states
// ---------------------------------------------------------------------------

// RunState is the coordinator's single authoritative state field, mutated
// only through Runtime operations.
type RunState int32

const (
	StateInitializing RunState = iota
	StateReady
	StateRunning
	StatePaused
	StateStopped
	StateError
)

var stateNames = map[RunState]string{
	StateInitializing: "initializing",
	StateReady:        "ready",
	StateRunning:      "running",
	StatePaused:       "paused",
	StateStopped:      "stopped",
	StateError:        "error",
}

func (s RunState) String() string { return stateNames[s] }

// ---------------------------------------------------------------------------
// Configuration and results
// ---------------------------------------------------------------------------

// Config bounds a runtime. Fields are fixed at construction and read-only
// afterward.
type Config struct {
	MaxStackDepth    int
	MaxExecutionTime time.Duration
	MaxMemoryUsage   uint64
}

// DefaultConfig returns the bounds used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		MaxStackDepth:    256,
		MaxExecutionTime: 30 * time.Second,
		MaxMemoryUsage:   0, // unbounded
	}
}

// Result is the record returned by Execute. Execute never panics across the
// API boundary; failures arrive here.
type Result struct {
	Success bool
	State   RunState
	Value   Value // top of the operand stack at completion, nil if none
	Metrics Metrics
	Err     error
}

// ---------------------------------------------------------------------------
// Runtime: the execution coordinator
// ---------------------------------------------------------------------------

// Runtime owns the program counter, the run state machine, and the worker
// goroutine, and wires dispatch, the operand stack, the frame stack, and
// fault reporting together.
//
// One dedicated worker executes the fetch-dispatch loop; Execute blocks
// until it exits, so the external contract looks synchronous. Pause, Resume,
// and Stop may be issued from any goroutine and take effect at the next
// instruction boundary, never mid-instruction. The operand and frame stacks
// are exclusively owned by the worker during a run.
type Runtime struct {
	config Config

	mu     sync.Mutex
	cond   *sync.Cond // pause gate
	state  RunState
	paused bool
	halted bool
	done   chan struct{} // closed when the worker exits; nil before the first run

	program []Instruction
	pc      int // worker-owned while running

	values  *OperandStack
	frames  *FrameStack
	metrics Metrics
	runErr  error

	db        DatabaseBackend
	matrix    MatrixBackend
	telemetry TelemetrySink
	tracker   ResourceTracker

	hooks    *HookSet
	reporter *faultReporter
}

// NewRuntime builds a runtime in the Ready state with the given bounds.
func NewRuntime(config Config) *Runtime {
	rt := &Runtime{
		config:    config,
		state:     StateInitializing,
		values:    NewOperandStack(),
		frames:    NewFrameStack(config.MaxStackDepth),
		telemetry: nopTelemetry{},
		tracker:   memStatsTracker{},
		hooks:     NewHookSet(),
	}
	rt.cond = sync.NewCond(&rt.mu)
	rt.reporter = newFaultReporter(rt.hooks)
	rt.state = StateReady
	return rt
}

// AttachDatabase wires the database collaborator. Without one, database
// opcodes fail with DatabaseNotConfigured.
func (rt *Runtime) AttachDatabase(db DatabaseBackend) { rt.db = db }

// AttachMatrix wires the matrix collaborator. Without one, matrix opcodes
// fail with MatrixOpsUnavailable.
func (rt *Runtime) AttachMatrix(mb MatrixBackend) { rt.matrix = mb }

// SetTelemetry replaces the telemetry sink. A nil sink restores the no-op
// default.
func (rt *Runtime) SetTelemetry(sink TelemetrySink) {
	if sink == nil {
		sink = nopTelemetry{}
	}
	rt.telemetry = sink
}

// SetResourceTracker replaces the memory accounting collaborator.
func (rt *Runtime) SetResourceTracker(tracker ResourceTracker) {
	if tracker != nil {
		rt.tracker = tracker
	}
}

// Hooks exposes the event hook registry.
func (rt *Runtime) Hooks() *HookSet { return rt.hooks }

// State returns the current run state.
func (rt *Runtime) State() RunState {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.state
}

// Metrics returns a snapshot of the execution counters.
func (rt *Runtime) Metrics() Metrics {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.metrics
}

// Faults returns all fault reports recorded since the last reset.
func (rt *Runtime) Faults() []FaultReport { return rt.reporter.all() }

// Frames exposes the frame stack manager for introspection.
func (rt *Runtime) Frames() *FrameStack { return rt.frames }

// StackTrace returns the current call chain, top frame first.
func (rt *Runtime) StackTrace() []FrameDescriptor { return rt.frames.StackTrace() }

// DumpStack renders the operand stack for diagnostics.
func (rt *Runtime) DumpStack() string { return rt.values.Dump() }

// ---------------------------------------------------------------------------
// Program loading
// ---------------------------------------------------------------------------

// LoadProgram validates and stages an instruction sequence. It fails fast
// with InvalidProgram on an empty sequence or any malformed instruction,
// resets the program counter to 0, and never starts execution.
func (rt *Runtime) LoadProgram(program []Instruction) error {
	if len(program) == 0 {
		return newFault(FaultInvalidProgram, "program is empty")
	}
	for i, in := range program {
		if err := in.validate(); err != nil {
			return wrapFault(FaultInvalidProgram,
				fmt.Sprintf("instruction %d (%s) is malformed", i, in.Opcode), err).
				WithContext("index", i)
		}
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state == StateRunning || rt.state == StatePaused {
		return newFault(FaultInvalidProgram, "cannot load while a program is running")
	}
	rt.program = make([]Instruction, len(program))
	copy(rt.program, program)
	rt.pc = 0
	log.Infof("loaded program with %d instructions", len(program))
	return nil
}

// ---------------------------------------------------------------------------
// Execution
// ---------------------------------------------------------------------------

// Execute runs the staged program to completion. If program is non-nil it
// is loaded first. The call spawns one worker goroutine for the
// fetch-dispatch loop and blocks until it exits, returning a result record
// rather than an error for runtime faults. Only load failures and executing
// with nothing staged fail immediately.
func (rt *Runtime) Execute(program []Instruction) Result {
	if program != nil {
		if err := rt.LoadProgram(program); err != nil {
			return Result{State: rt.State(), Metrics: rt.Metrics(), Err: err}
		}
	}

	rt.mu.Lock()
	if len(rt.program) == 0 {
		rt.mu.Unlock()
		err := newFault(FaultNoProgramLoaded, "execute with no program staged")
		return Result{State: rt.State(), Metrics: rt.Metrics(), Err: err}
	}
	if rt.state == StateRunning || rt.state == StatePaused {
		rt.mu.Unlock()
		err := newFault(FaultInvalidProgram, "runtime is already executing")
		return Result{State: rt.State(), Metrics: rt.Metrics(), Err: err}
	}
	rt.state = StateRunning
	rt.paused = false
	rt.halted = false
	rt.runErr = nil
	rt.pc = 0
	rt.metrics.StartedAt = time.Now()
	rt.metrics.FinishedAt = time.Time{}
	done := make(chan struct{})
	rt.done = done
	rt.mu.Unlock()

	log.Infof("execution starting: %d instructions", len(rt.program))

	go func() {
		defer close(done)
		rt.runLoop()
	}()
	<-done

	rt.mu.Lock()
	res := Result{
		Success: rt.runErr == nil && rt.state == StateStopped,
		State:   rt.state,
		Metrics: rt.metrics,
		Err:     rt.runErr,
	}
	if v, err := rt.values.Peek(); err == nil {
		res.Value = v
	}
	rt.mu.Unlock()

	rt.telemetry.RecordExecutionTime("program", res.Metrics.Elapsed())
	return res
}

// runLoop is the worker's fetch-dispatch loop. It observes the pause gate,
// the halt flag, and the execution-time and memory policies once per
// iteration; a single long-running instruction cannot be preempted.
func (rt *Runtime) runLoop() {
	start := time.Now()
	for {
		rt.mu.Lock()
		for rt.paused && !rt.halted {
			rt.cond.Wait()
		}
		if rt.halted {
			rt.mu.Unlock()
			rt.finishRun(false)
			return
		}
		pc := rt.pc
		size := len(rt.program)
		rt.mu.Unlock()

		if pc < 0 || pc >= size {
			// Program exhausted: normal completion.
			rt.finishRun(true)
			return
		}

		if rt.config.MaxExecutionTime > 0 && time.Since(start) > rt.config.MaxExecutionTime {
			rt.failRun(newFault(FaultExecutionTimeout,
				fmt.Sprintf("execution exceeded %s", rt.config.MaxExecutionTime)), nil, pc)
			return
		}

		memBefore := rt.tracker.MemoryUsage()
		if rt.config.MaxMemoryUsage > 0 && memBefore > rt.config.MaxMemoryUsage {
			rt.failRun(newFault(FaultMemoryLimitExceeded,
				fmt.Sprintf("memory usage %d exceeds limit %d", memBefore, rt.config.MaxMemoryUsage)), nil, pc)
			return
		}

		in := &rt.program[pc]
		rt.hooks.fire(EventBeforeInstruction, &EventContext{
			Event: EventBeforeInstruction, PC: pc, Instruction: in,
		})

		err := rt.dispatch(in)

		rt.hooks.fire(EventAfterInstruction, &EventContext{
			Event: EventAfterInstruction, PC: pc, Instruction: in, Err: err,
		})
		rt.telemetry.RecordInstructionExecution(in.Opcode, err == nil)
		rt.telemetry.RecordMemoryUsage(rt.tracker.MemoryUsage())

		if err != nil {
			rt.failRun(err, in, pc)
			return
		}

		rt.mu.Lock()
		rt.metrics.InstructionsExecuted++
		if hw := rt.values.HighWater(); hw > rt.metrics.StackHighWater {
			rt.metrics.StackHighWater = hw
		}
		rt.pc++
		rt.mu.Unlock()
	}
}

// dispatch routes one instruction to its category handler. Programs are
// validated at load time, so a miss here means the tables changed under us.
func (rt *Runtime) dispatch(in *Instruction) error {
	h, ok := lookupHandler(in.Category, in.Opcode)
	if !ok {
		return newFault(FaultUnknownOpcode,
			fmt.Sprintf("no handler for %s %s", in.Category, in.Opcode))
	}
	return h(rt, in)
}

// finishRun settles the state machine after the loop exits without a fault.
// A halted exit also releases the closed-frame audit list; this runs on the
// worker goroutine, which still owns the frame stack.
func (rt *Runtime) finishRun(exhausted bool) {
	rt.mu.Lock()
	if rt.state == StateRunning || rt.state == StatePaused || rt.state == StateStopped {
		rt.metrics.FinishedAt = time.Now()
	}
	if rt.state == StateRunning || rt.state == StatePaused {
		rt.state = StateStopped
	}
	executed := rt.metrics.InstructionsExecuted
	rt.mu.Unlock()

	if exhausted {
		log.Infof("execution complete: %d instructions", executed)
	} else {
		rt.frames.PurgeClosed()
	}
}

// failRun reports a fault with its execution context, then escalates
// through Error and settles at Stopped. The loop never auto-retries.
func (rt *Runtime) failRun(err error, in *Instruction, pc int) {
	fault, ok := err.(*Fault)
	if !ok {
		fault = wrapFault(FaultCollaborator, "unclassified execution error", err)
	}
	fault.WithContext("pc", pc)
	if in != nil {
		fault.WithContext("instruction", in.String())
	}

	rt.reporter.report(FaultReport{
		Fault:       fault,
		PC:          pc,
		Instruction: in,
		StackDepth:  rt.values.Depth(),
		FrameDepth:  rt.frames.Depth(),
		Memory:      rt.tracker.MemoryUsage(),
	})

	rt.mu.Lock()
	rt.metrics.Errors++
	rt.metrics.FinishedAt = time.Now()
	rt.runErr = fault
	rt.halted = true
	// Escalate through Error, then settle at Stopped.
	rt.state = StateError
	log.Errorf("run aborted in state %s: %s", rt.state, fault.Code)
	rt.state = StateStopped
	rt.cond.Broadcast()
	rt.mu.Unlock()
}

// ---------------------------------------------------------------------------
// External controls
// ---------------------------------------------------------------------------

// Stop requests cooperative halt. The worker observes the flag at the next
// instruction boundary and releases the closed-frame audit list as it exits.
// With no run in flight the list is released directly; the frame stack has
// no other owner then.
func (rt *Runtime) Stop() {
	rt.mu.Lock()
	rt.halted = true
	rt.paused = false
	running := rt.state == StateRunning || rt.state == StatePaused
	if running {
		rt.state = StateStopped
	}
	rt.cond.Broadcast()
	rt.mu.Unlock()
	if !running {
		rt.frames.PurgeClosed()
	}
	log.Infof("stop requested")
}

// Pause suspends execution at the next instruction boundary.
func (rt *Runtime) Pause() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.state != StateRunning {
		return
	}
	rt.paused = true
	rt.state = StatePaused
	log.Infof("paused")
}

// Resume releases a paused runtime.
func (rt *Runtime) Resume() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if !rt.paused {
		return
	}
	rt.paused = false
	if rt.state == StatePaused {
		rt.state = StateRunning
	}
	rt.cond.Broadcast()
	log.Infof("resumed")
}

// Reset is callable from any state. It halts any in-flight worker, waits for
// it to exit, then clears the program, both stacks, fault reports, and
// metrics, and forces Ready. The wait keeps the program and stacks under the
// worker's exclusive ownership until it is gone; never call Reset from an
// event callback, which runs on the worker itself.
func (rt *Runtime) Reset() {
	rt.mu.Lock()
	rt.halted = true
	rt.paused = false
	rt.cond.Broadcast()
	done := rt.done
	rt.mu.Unlock()
	if done != nil {
		<-done
	}

	rt.mu.Lock()
	rt.program = nil
	rt.pc = 0
	rt.metrics = Metrics{}
	rt.runErr = nil
	rt.state = StateReady
	rt.mu.Unlock()
	rt.values.Reset()
	rt.frames.Reset()
	rt.reporter.reset()
	log.Infof("reset to ready")
}

// ---------------------------------------------------------------------------
// Handler support
// ---------------------------------------------------------------------------
// These helpers run on the worker goroutine only.

func (rt *Runtime) push(v Value) {
	rt.values.Push(v)
	rt.hooks.fire(EventStackPush, &EventContext{Event: EventStackPush, PC: rt.pc, Value: v})
}

func (rt *Runtime) pop() (Value, error) {
	v, err := rt.values.Pop()
	if err != nil {
		return nil, err
	}
	rt.hooks.fire(EventStackPop, &EventContext{Event: EventStackPop, PC: rt.pc, Value: v})
	return v, nil
}

func (rt *Runtime) popTwo() (left, right Value, err error) {
	if right, err = rt.pop(); err != nil {
		return nil, nil, err
	}
	if left, err = rt.pop(); err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// redirect points the program counter at target-1 so the loop's
// unconditional increment lands on target.
func (rt *Runtime) redirect(target int) { rt.pc = target - 1 }

func (rt *Runtime) currentPC() int { return rt.pc }

func (rt *Runtime) programLen() int { return len(rt.program) }

func (rt *Runtime) countDatabaseQuery(query string) {
	rt.mu.Lock()
	rt.metrics.DatabaseQueries++
	rt.mu.Unlock()
	rt.hooks.fire(EventDatabaseQuery, &EventContext{
		Event: EventDatabaseQuery, PC: rt.pc, Value: query,
	})
}

func (rt *Runtime) countMatrixOperation(opcode string, result Value) {
	rt.mu.Lock()
	rt.metrics.MatrixOperations++
	rt.mu.Unlock()
	rt.hooks.fire(EventMatrixOperation, &EventContext{
		Event: EventMatrixOperation, PC: rt.pc, Value: result,
	})
}
