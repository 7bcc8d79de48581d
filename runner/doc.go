// Package runner executes the harness's test suites.
//
// The main components are:
//   - SuiteExecutor: runs one suite as an isolated sub-process with a hard timeout
//     and turns its outcome into a types.SuiteResult
//   - Orchestrator: gates on backend readiness, runs every configured suite in
//     order (fail-soft), finalizes the run record and hands it to the reporter
//   - ProgressReporter: an Observer that logs periodic progress of long runs
//
// Suites never run concurrently; every suite blocks until its sub-process
// exits or is killed.
package runner
