package vm

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ---------------------------------------------------------------------------
// Fault taxonomy
// ---------------------------------------------------------------------------

// FaultCode identifies a class of runtime fault.
type FaultCode string

const (
	FaultStackOverflow         FaultCode = "STACK_OVERFLOW"
	FaultStackUnderflow        FaultCode = "STACK_UNDERFLOW"
	FaultInvalidProgram        FaultCode = "INVALID_PROGRAM"
	FaultNoProgramLoaded       FaultCode = "NO_PROGRAM_LOADED"
	FaultMissingOperands       FaultCode = "MISSING_OPERANDS"
	FaultUnknownOpcode         FaultCode = "UNKNOWN_OPCODE"
	FaultTypeMismatch          FaultCode = "TYPE_MISMATCH"
	FaultInvalidJumpTarget     FaultCode = "INVALID_JUMP_TARGET"
	FaultDivisionByZero        FaultCode = "DIVISION_BY_ZERO"
	FaultDatabaseNotConfigured FaultCode = "DATABASE_NOT_CONFIGURED"
	FaultMatrixOpsUnavailable  FaultCode = "MATRIX_OPS_UNAVAILABLE"
	FaultExecutionTimeout      FaultCode = "EXECUTION_TIMEOUT"
	FaultMemoryLimitExceeded   FaultCode = "MEMORY_LIMIT_EXCEEDED"
	FaultCollaborator          FaultCode = "COLLABORATOR_ERROR"
)

// Severity ranks how serious a fault is.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

var severityNames = map[Severity]string{
	SeverityLow:      "low",
	SeverityMedium:   "medium",
	SeverityHigh:     "high",
	SeverityCritical: "critical",
}

func (s Severity) String() string { return severityNames[s] }

// FaultKind is the taxonomy category of a fault, distinct from the
// instruction category that produced it.
type FaultKind string

const (
	KindStructural    FaultKind = "structural"
	KindProgram       FaultKind = "program"
	KindArithmetic    FaultKind = "arithmetic"
	KindConfiguration FaultKind = "configuration"
	KindPolicy        FaultKind = "policy"
	KindUsage         FaultKind = "usage"
	KindCollaborator  FaultKind = "collaborator"
)

// Recovery is the recommended recovery strategy attached to a fault report.
type Recovery string

const (
	RecoveryNone     Recovery = "none"
	RecoveryFallback Recovery = "fallback"
)

// faultProfile carries the fixed metadata for each fault code.
type faultProfile struct {
	severity    Severity
	kind        FaultKind
	recovery    Recovery
	autoRecover bool
}

var faultProfiles = map[FaultCode]faultProfile{
	FaultStackOverflow:         {SeverityCritical, KindStructural, RecoveryNone, false},
	FaultStackUnderflow:        {SeverityCritical, KindStructural, RecoveryNone, false},
	FaultInvalidProgram:        {SeverityHigh, KindProgram, RecoveryNone, false},
	FaultNoProgramLoaded:       {SeverityMedium, KindUsage, RecoveryNone, false},
	FaultMissingOperands:       {SeverityHigh, KindProgram, RecoveryNone, false},
	FaultUnknownOpcode:         {SeverityHigh, KindProgram, RecoveryNone, false},
	FaultTypeMismatch:          {SeverityHigh, KindProgram, RecoveryNone, false},
	FaultInvalidJumpTarget:     {SeverityHigh, KindProgram, RecoveryNone, false},
	FaultDivisionByZero:        {SeverityMedium, KindArithmetic, RecoveryFallback, true},
	FaultDatabaseNotConfigured: {SeverityHigh, KindConfiguration, RecoveryNone, false},
	FaultMatrixOpsUnavailable:  {SeverityMedium, KindConfiguration, RecoveryFallback, true},
	FaultExecutionTimeout:      {SeverityHigh, KindPolicy, RecoveryNone, false},
	FaultMemoryLimitExceeded:   {SeverityHigh, KindPolicy, RecoveryNone, false},
	FaultCollaborator:          {SeverityMedium, KindCollaborator, RecoveryNone, false},
}

// Fault is a typed engine error. Every fault carries taxonomy metadata so
// the reporter can record severity, kind, and recovery strategy without
// string matching.
type Fault struct {
	Code        FaultCode
	Message     string
	Context     map[string]Value
	Severity    Severity
	Kind        FaultKind
	Recovery    Recovery
	AutoRecover bool
	Err         error // wrapped cause, may be nil
}

func newFault(code FaultCode, message string) *Fault {
	p := faultProfiles[code]
	return &Fault{
		Code:        code,
		Message:     message,
		Severity:    p.severity,
		Kind:        p.kind,
		Recovery:    p.recovery,
		AutoRecover: p.autoRecover,
	}
}

func wrapFault(code FaultCode, message string, err error) *Fault {
	f := newFault(code, message)
	f.Err = err
	return f
}

// WithContext attaches a context entry and returns the fault for chaining.
func (f *Fault) WithContext(key string, v Value) *Fault {
	if f.Context == nil {
		f.Context = make(map[string]Value)
	}
	f.Context[key] = v
	return f
}

func (f *Fault) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Code, f.Message, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Code, f.Message)
}

func (f *Fault) Unwrap() error { return f.Err }

// Is matches any *Fault with the same code, so callers can use
// errors.Is(err, &Fault{Code: FaultStackOverflow}).
func (f *Fault) Is(target error) bool {
	var other *Fault
	if !errors.As(target, &other) {
		return false
	}
	return f.Code == other.Code
}

// IsFault reports whether err carries the given fault code.
func IsFault(err error, code FaultCode) bool {
	var f *Fault
	return errors.As(err, &f) && f.Code == code
}

// ---------------------------------------------------------------------------
// Fault reporting
// ---------------------------------------------------------------------------

// FaultReport is a fault captured with its execution context. Reports are
// retained in order for post-run inspection.
type FaultReport struct {
	Fault       *Fault
	PC          int
	Instruction *Instruction // nil for load-time and policy faults
	StackDepth  int
	FrameDepth  int
	Memory      uint64
	Time        time.Time
}

// faultReporter collects fault reports, logs them, and fires OnError hooks.
// Nothing is silently swallowed: every fault passes through here before the
// coordinator transitions state.
type faultReporter struct {
	mu      sync.Mutex
	reports []FaultReport
	hooks   *HookSet
}

func newFaultReporter(hooks *HookSet) *faultReporter {
	return &faultReporter{hooks: hooks}
}

func (r *faultReporter) report(rep FaultReport) {
	if rep.Time.IsZero() {
		rep.Time = time.Now()
	}
	r.mu.Lock()
	r.reports = append(r.reports, rep)
	r.mu.Unlock()

	f := rep.Fault
	log.Errorf("fault %s (severity=%s kind=%s recovery=%s) at pc=%d: %s",
		f.Code, f.Severity, f.Kind, f.Recovery, rep.PC, f.Message)

	r.hooks.fire(EventError, &EventContext{
		Event:       EventError,
		PC:          rep.PC,
		Instruction: rep.Instruction,
		Err:         f,
	})
}

func (r *faultReporter) all() []FaultReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]FaultReport, len(r.reports))
	copy(out, r.reports)
	return out
}

func (r *faultReporter) reset() {
	r.mu.Lock()
	r.reports = nil
	r.mu.Unlock()
}
