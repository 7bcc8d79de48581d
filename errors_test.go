package harness

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saythanks/mobile-harness/exitcodes"
	"github.com/saythanks/mobile-harness/runner"
)

func TestErrorClassification(t *testing.T) {
	gateErr := fmt.Errorf("%w: selenium", runner.ErrReadinessGate)

	tests := []struct {
		name        string
		err         error
		runtime     bool
		testFailure bool
		exitCode    int
	}{
		{name: "nil", err: nil, exitCode: exitcodes.Success},
		{name: "runtime", err: NewRuntimeError(errors.New("boom")), runtime: true, exitCode: exitcodes.RuntimeErr},
		{name: "wrapped runtime", err: fmt.Errorf("ctx: %w", NewRuntimeError(gateErr)), runtime: true, exitCode: exitcodes.RuntimeErr},
		{name: "test failure", err: NewTestFailureError("2 of 7 suites failed"), testFailure: true, exitCode: exitcodes.TestFailure},
		{name: "plain error", err: errors.New("unclassified"), exitCode: exitcodes.TestFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.runtime, IsRuntimeError(tt.err))
			assert.Equal(t, tt.testFailure, IsTestFailureError(tt.err))
			assert.Equal(t, tt.exitCode, ExitCode(tt.err))
		})
	}
}

func TestRuntimeErrorUnwrap(t *testing.T) {
	gateErr := fmt.Errorf("%w: selenium", runner.ErrReadinessGate)
	err := NewRuntimeError(gateErr)

	assert.ErrorIs(t, err, runner.ErrReadinessGate)
	assert.Equal(t, "runtime error: readiness gate failed: selenium", err.Error())
	assert.Equal(t, "test failure: 1 suite failed", NewTestFailureError("1 suite failed").Error())
}
