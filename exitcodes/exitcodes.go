// Package exitcodes defines the exit codes of mobile-harness.
package exitcodes

// Exit code constants used by mobile-harness:
//
// * Success (0): every suite passed
// * TestFailure (1): the run completed and at least one suite failed
// * RuntimeErr (2): the run could not complete, including a failed readiness gate
const (
	Success     = 0 // All suites pass
	TestFailure = 1 // Suite failures
	RuntimeErr  = 2 // Runtime errors or aborted runs
)
