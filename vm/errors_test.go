package vm

import (
	"errors"
	"fmt"
	"testing"
)

func TestFaultProfiles(t *testing.T) {
	tests := []struct {
		code        FaultCode
		severity    Severity
		kind        FaultKind
		recovery    Recovery
		autoRecover bool
	}{
		{FaultStackOverflow, SeverityCritical, KindStructural, RecoveryNone, false},
		{FaultStackUnderflow, SeverityCritical, KindStructural, RecoveryNone, false},
		{FaultDivisionByZero, SeverityMedium, KindArithmetic, RecoveryFallback, true},
		{FaultMatrixOpsUnavailable, SeverityMedium, KindConfiguration, RecoveryFallback, true},
		{FaultDatabaseNotConfigured, SeverityHigh, KindConfiguration, RecoveryNone, false},
		{FaultExecutionTimeout, SeverityHigh, KindPolicy, RecoveryNone, false},
	}
	for _, tt := range tests {
		f := newFault(tt.code, "test")
		if f.Severity != tt.severity {
			t.Errorf("%s severity = %s, want %s", tt.code, f.Severity, tt.severity)
		}
		if f.Kind != tt.kind {
			t.Errorf("%s kind = %s, want %s", tt.code, f.Kind, tt.kind)
		}
		if f.Recovery != tt.recovery {
			t.Errorf("%s recovery = %s, want %s", tt.code, f.Recovery, tt.recovery)
		}
		if f.AutoRecover != tt.autoRecover {
			t.Errorf("%s autoRecover = %t, want %t", tt.code, f.AutoRecover, tt.autoRecover)
		}
	}
}

func TestEveryCodeHasAProfile(t *testing.T) {
	codes := []FaultCode{
		FaultStackOverflow, FaultStackUnderflow, FaultInvalidProgram,
		FaultNoProgramLoaded, FaultMissingOperands, FaultUnknownOpcode,
		FaultTypeMismatch, FaultInvalidJumpTarget, FaultDivisionByZero,
		FaultDatabaseNotConfigured, FaultMatrixOpsUnavailable,
		FaultExecutionTimeout, FaultMemoryLimitExceeded, FaultCollaborator,
	}
	for _, code := range codes {
		if _, ok := faultProfiles[code]; !ok {
			t.Errorf("no profile for %s", code)
		}
	}
}

func TestFaultError(t *testing.T) {
	f := newFault(FaultDivisionByZero, "division by zero")
	if got, want := f.Error(), "DIVISION_BY_ZERO: division by zero"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	cause := errors.New("disk full")
	wrapped := wrapFault(FaultCollaborator, "query failed", cause)
	if got, want := wrapped.Error(), "COLLABORATOR_ERROR: query failed: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestFaultUnwrapChain(t *testing.T) {
	cause := errors.New("disk full")
	f := wrapFault(FaultCollaborator, "query failed", cause)
	if !errors.Is(f, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
	outer := fmt.Errorf("outer: %w", f)
	if !IsFault(outer, FaultCollaborator) {
		t.Error("IsFault should see through fmt.Errorf wrapping")
	}
}

func TestFaultIsMatchesByCode(t *testing.T) {
	a := newFault(FaultStackOverflow, "one")
	b := newFault(FaultStackOverflow, "two")
	c := newFault(FaultStackUnderflow, "three")
	if !errors.Is(a, b) {
		t.Error("faults with the same code should match")
	}
	if errors.Is(a, c) {
		t.Error("faults with different codes should not match")
	}
}

func TestIsFault(t *testing.T) {
	f := newFault(FaultTypeMismatch, "bad operand")
	if !IsFault(f, FaultTypeMismatch) {
		t.Error("IsFault missed a direct match")
	}
	if IsFault(f, FaultStackOverflow) {
		t.Error("IsFault matched the wrong code")
	}
	if IsFault(nil, FaultTypeMismatch) {
		t.Error("IsFault matched nil")
	}
	if IsFault(errors.New("plain"), FaultTypeMismatch) {
		t.Error("IsFault matched a plain error")
	}
}

func TestWithContext(t *testing.T) {
	f := newFault(FaultDivisionByZero, "division by zero").
		WithContext("dividend", int64(7)).
		WithContext("pc", 3)
	if f.Context["dividend"] != int64(7) {
		t.Errorf("dividend = %v, want 7", f.Context["dividend"])
	}
	if f.Context["pc"] != 3 {
		t.Errorf("pc = %v, want 3", f.Context["pc"])
	}
}

func TestReporterCollectsInOrder(t *testing.T) {
	r := newFaultReporter(NewHookSet())
	r.report(FaultReport{Fault: newFault(FaultStackOverflow, "first"), PC: 1})
	r.report(FaultReport{Fault: newFault(FaultDivisionByZero, "second"), PC: 2})

	reports := r.all()
	if len(reports) != 2 {
		t.Fatalf("got %d reports, want 2", len(reports))
	}
	if reports[0].Fault.Code != FaultStackOverflow || reports[1].Fault.Code != FaultDivisionByZero {
		t.Error("reports out of order")
	}

	r.reset()
	if len(r.all()) != 0 {
		t.Error("reports survived reset")
	}
}
