package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/saythanks/mobile-harness/types"
)

var _ SuiteExecutor = (*suiteExecutor)(nil)

// SuiteExecutor runs one suite and always produces exactly one result.
// Failures of the suite itself are reported through the result, never as
// an error.
type SuiteExecutor interface {
	Execute(ctx context.Context, suite types.Suite) types.SuiteResult
}

// OutputSink receives the complete output of each suite that is started.
type OutputSink interface {
	Open(suite types.Suite) (io.WriteCloser, error)
}

// CmdBuilder creates the command for a suite. The returned func is called
// once the command has finished.
type CmdBuilder func(ctx context.Context, name string, arg ...string) (*exec.Cmd, func())

// ExecutorConfig configures a SuiteExecutor.
type ExecutorConfig struct {
	Log          log.Logger
	WorkDir      string        // Base directory for relative suite paths
	ReportsDir   string        // Destination of per-suite HTML/JUnit reports
	RunnerBinary string        // Test runner executable, pytest by default
	Timeout      time.Duration // Hard per-suite ceiling
	Env          []string      // Extra KEY=VALUE pairs appended to the inherited environment
	Output       OutputSink    // Optional, keeps full output beyond the tails
	CmdBuilder   CmdBuilder
}

type suiteExecutor struct {
	log          log.Logger
	workDir      string
	reportsDir   string
	runnerBinary string
	timeout      time.Duration
	env          []string
	output       OutputSink
	cmdBuilder   CmdBuilder
}

// NewSuiteExecutor creates a new suite executor
func NewSuiteExecutor(cfg ExecutorConfig) (SuiteExecutor, error) {
	if cfg.ReportsDir == "" {
		return nil, fmt.Errorf("reportsDir cannot be empty")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.RunnerBinary == "" {
		cfg.RunnerBinary = DefaultRunnerBinary
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultSuiteTimeout
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = defaultCmdBuilder
	}

	return &suiteExecutor{
		log:          cfg.Log,
		workDir:      cfg.WorkDir,
		reportsDir:   cfg.ReportsDir,
		runnerBinary: cfg.RunnerBinary,
		timeout:      cfg.Timeout,
		env:          append([]string{}, cfg.Env...),
		output:       cfg.Output,
		cmdBuilder:   cfg.CmdBuilder,
	}, nil
}

func defaultCmdBuilder(ctx context.Context, name string, arg ...string) (*exec.Cmd, func()) {
	cmd := exec.CommandContext(ctx, name, arg...)
	cmd.WaitDelay = killGracePeriod
	return cmd, func() {}
}

// Execute runs the suite's sub-process and blocks until it exits or the
// timeout kills it.
func (e *suiteExecutor) Execute(ctx context.Context, suite types.Suite) types.SuiteResult {
	path := e.resolvePath(suite.Path)
	if _, err := os.Stat(path); err != nil {
		e.log.Warn("Suite not found", "suite", suite.Name, "path", path, "err", err)
		return types.MissingSuiteResult()
	}

	suiteCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	args := e.buildArgs(path, suite)
	cmd, cleanup := e.cmdBuilder(suiteCtx, e.runnerBinary, args...)
	defer cleanup()

	if e.workDir != "" && cmd.Dir == "" {
		cmd.Dir = e.workDir
	}
	cmd.Env = append(os.Environ(), e.env...)
	cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", EnvHarnessSuiteID, suite.Name))
	if runID := RunIDFromContext(ctx); runID != "" {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", EnvHarnessRunID, runID))
	}

	stdoutTail := newTailBuffer(defaultTailBytes)
	stderrTail := newTailBuffer(defaultTailBytes)
	cmd.Stdout = stdoutTail
	cmd.Stderr = stderrTail
	if e.output != nil {
		w, err := e.output.Open(suite)
		if err != nil {
			e.log.Warn("Failed to open suite log, keeping output tails only", "suite", suite.Name, "err", err)
		} else {
			defer w.Close()
			cmd.Stdout = io.MultiWriter(stdoutTail, w)
			cmd.Stderr = io.MultiWriter(stderrTail, w)
		}
	}

	e.log.Info("Running suite", "suite", suite.Name, "path", path, "timeout", e.timeout)
	e.log.Debug("Suite command", "binary", e.runnerBinary, "args", args)

	startTime := time.Now()
	if err := cmd.Start(); err != nil {
		e.log.Error("Failed to start suite", "suite", suite.Name, "err", err)
		return types.CrashedSuiteResult(err)
	}
	waitErr := cmd.Wait()
	duration := time.Since(startTime)

	if err := ctx.Err(); err != nil {
		e.log.Error("Suite interrupted", "suite", suite.Name, "err", err)
		return types.InterruptedSuiteResult(err, duration)
	}
	if errors.Is(suiteCtx.Err(), context.DeadlineExceeded) {
		e.log.Error("Suite timed out", "suite", suite.Name, "timeout", e.timeout)
		return types.TimedOutSuiteResult(e.timeout)
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			e.log.Error("Suite crashed", "suite", suite.Name, "err", waitErr)
			return types.CrashedSuiteResult(waitErr)
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			e.log.Error("Suite killed by signal", "suite", suite.Name, "signal", ws.Signal())
			return types.SignaledSuiteResult(ws.Signal(), duration, stdoutTail.String(), stderrTail.String())
		}
		exitCode = exitErr.ExitCode()
	}

	if stdoutTail.Truncated() || stderrTail.Truncated() {
		e.log.Debug("Suite output truncated", "suite", suite.Name,
			"stdoutBytes", stdoutTail.TotalBytes(), "stderrBytes", stderrTail.TotalBytes())
	}

	result := types.CompletedSuiteResult(exitCode, duration, stdoutTail.String(), stderrTail.String())
	e.log.Info("Suite finished", "suite", suite.Name, "exitCode", exitCode, "duration", duration)
	return result
}

func (e *suiteExecutor) resolvePath(path string) string {
	if filepath.IsAbs(path) || e.workDir == "" {
		return path
	}
	return filepath.Join(e.workDir, path)
}

// buildArgs returns the runner arguments for a suite. Report file names are
// derived from the suite slug so the HTML summary can link to them.
func (e *suiteExecutor) buildArgs(path string, suite types.Suite) []string {
	return []string{
		path,
		VerboseFlag,
		ShortTracebackFlag,
		fmt.Sprintf("%s=%s", HTMLReportFlag, filepath.Join(e.reportsDir, suite.HTMLReportName())),
		SelfContainedHTMLArg,
		fmt.Sprintf("%s=%s", JUnitXMLFlag, filepath.Join(e.reportsDir, suite.JUnitReportName())),
	}
}
