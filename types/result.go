package types

import (
	"fmt"
	"math"
	"syscall"
	"time"
)

// TestStatus is the pass/fail classification shown in reports.
type TestStatus string

const (
	TestStatusPass TestStatus = "pass"
	TestStatusFail TestStatus = "fail"
)

const (
	// ExitCodeNotRun marks a suite that never produced an exit code of its own.
	ExitCodeNotRun = -1
	// MaxOutputTail is the number of trailing characters kept per output stream.
	MaxOutputTail = 1000

	ErrMsgSuiteNotFound    = "Test file not found"
	ErrMsgSuiteTimedOut    = "Test suite timed out"
	ErrMsgSuiteInterrupted = "Test suite interrupted"
	ErrMsgSuiteSignaled    = "Test suite killed by signal"
)

// SuiteResult is the outcome of one suite execution. It is created once by
// the executor and never mutated afterwards.
type SuiteResult struct {
	Success  bool    `json:"success"`
	Duration float64 `json:"duration"` // seconds, 2 decimals
	ExitCode int     `json:"return_code"`
	Stdout   string  `json:"stdout,omitempty"`
	Stderr   string  `json:"stderr,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Status maps Success onto a TestStatus.
func (r SuiteResult) Status() TestStatus {
	if r.Success {
		return TestStatusPass
	}
	return TestStatusFail
}

// NotRun reports whether the suite could not be run at all.
func (r SuiteResult) NotRun() bool {
	return r.ExitCode == ExitCodeNotRun && r.Error != ""
}

// MissingSuiteResult is recorded when a suite locator does not resolve.
func MissingSuiteResult() SuiteResult {
	return SuiteResult{
		ExitCode: ExitCodeNotRun,
		Error:    ErrMsgSuiteNotFound,
	}
}

// TimedOutSuiteResult is recorded when a suite exceeded its deadline and
// was killed. The duration is the timeout itself.
func TimedOutSuiteResult(timeout time.Duration) SuiteResult {
	return SuiteResult{
		Duration: RoundSeconds(timeout),
		ExitCode: ExitCodeNotRun,
		Error:    ErrMsgSuiteTimedOut,
	}
}

// CrashedSuiteResult is recorded when the sub-process could not be started.
func CrashedSuiteResult(err error) SuiteResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return SuiteResult{
		ExitCode: ExitCodeNotRun,
		Error:    msg,
	}
}

// InterruptedSuiteResult is recorded when the run itself was canceled or hit
// its deadline while the suite was running.
func InterruptedSuiteResult(err error, elapsed time.Duration) SuiteResult {
	msg := ErrMsgSuiteInterrupted
	if err != nil {
		msg = fmt.Sprintf("%s: %v", ErrMsgSuiteInterrupted, err)
	}
	return SuiteResult{
		Duration: RoundSeconds(elapsed),
		ExitCode: ExitCodeNotRun,
		Error:    msg,
	}
}

// SignaledSuiteResult is recorded when the sub-process was killed by a
// signal. The exit code is the negated signal number.
func SignaledSuiteResult(sig syscall.Signal, elapsed time.Duration, stdout, stderr string) SuiteResult {
	return SuiteResult{
		Duration: RoundSeconds(elapsed),
		ExitCode: -int(sig),
		Stdout:   TailChars(stdout, MaxOutputTail),
		Stderr:   TailChars(stderr, MaxOutputTail),
		Error:    fmt.Sprintf("%s %d (%s)", ErrMsgSuiteSignaled, int(sig), sig),
	}
}

// CompletedSuiteResult is recorded when the sub-process ran to completion.
func CompletedSuiteResult(exitCode int, elapsed time.Duration, stdout, stderr string) SuiteResult {
	return SuiteResult{
		Success:  exitCode == 0,
		Duration: RoundSeconds(elapsed),
		ExitCode: exitCode,
		Stdout:   TailChars(stdout, MaxOutputTail),
		Stderr:   TailChars(stderr, MaxOutputTail),
	}
}

// RoundSeconds converts d to seconds rounded to 2 decimals.
func RoundSeconds(d time.Duration) float64 {
	return round(d.Seconds(), 2)
}

// TailChars returns at most the last n characters of s.
func TailChars(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
