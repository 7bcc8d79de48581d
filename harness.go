package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/saythanks/mobile-harness/devices"
	"github.com/saythanks/mobile-harness/exitcodes"
	"github.com/saythanks/mobile-harness/logging"
	"github.com/saythanks/mobile-harness/probe"
	"github.com/saythanks/mobile-harness/registry"
	"github.com/saythanks/mobile-harness/reporting"
	"github.com/saythanks/mobile-harness/runner"
	"github.com/saythanks/mobile-harness/service"
	"github.com/saythanks/mobile-harness/types"
)

// harness implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &harness{}

// harness performs one readiness-gated run of the configured suites.
type harness struct {
	config  *Config
	version string

	registry     *registry.Registry
	orchestrator *runner.Orchestrator
	console      *reporting.Console
	progress     *runner.ProgressReporter
	suiteLogs    *logging.FileLogger
	service      *service.Service

	running atomic.Bool
	mu      sync.Mutex
	record  *types.RunRecord

	shutdownCallback func(error) // Callback to signal application shutdown
	exit             func(code int)
}

// Option customizes a harness before it is started.
type Option func(*options)

type options struct {
	out      io.Writer
	prober   runner.ReadinessProber
	executor runner.SuiteExecutor
}

// WithOutput redirects console output, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(o *options) { o.out = w }
}

// WithProber replaces the HTTP readiness prober.
func WithProber(p runner.ReadinessProber) Option {
	return func(o *options) { o.prober = p }
}

// WithExecutor replaces the sub-process suite executor.
func WithExecutor(e runner.SuiteExecutor) Option {
	return func(o *options) { o.executor = e }
}

func New(ctx context.Context, config *Config, version string, shutdownCallback func(error), opts ...Option) (*harness, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	o := options{out: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	config.Log.Debug("Creating harness with config",
		"workDir", config.WorkDir,
		"reportsDir", config.ReportsDir,
		"plan", config.PlanFile,
		"devices", config.DevicesFile,
		"suiteTimeout", config.SuiteTimeout)

	reg, err := registry.NewRegistry(registry.Config{
		Log:      config.Log,
		PlanFile: config.PlanFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	var deviceNames []string
	env := []string{fmt.Sprintf("%s=%s", runner.EnvReportsDir, config.ReportsDir)}
	if config.DevicesFile != "" {
		catalog, err := devices.Load(config.DevicesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load device catalog: %w", err)
		}
		deviceNames = catalog.Names()
		env = append(env, fmt.Sprintf("%s=%s", runner.EnvDevicesConfig, catalog.Path()))
	}

	console := reporting.NewConsole(o.out, config.Colors)

	prober := o.prober
	if prober == nil {
		prober = probe.New(probe.Config{
			Log:            config.Log,
			Observer:       console,
			MaxAttempts:    config.ProbeAttempts,
			Interval:       config.ProbeInterval,
			RequestTimeout: config.ProbeTimeout,
		})
	}

	suiteLogs, err := logging.NewFileLogger(config.ReportsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create suite logger: %w", err)
	}

	executor := o.executor
	if executor == nil {
		executor, err = runner.NewSuiteExecutor(runner.ExecutorConfig{
			Log:          config.Log,
			WorkDir:      config.WorkDir,
			ReportsDir:   config.ReportsDir,
			RunnerBinary: config.RunnerBinary,
			Timeout:      config.SuiteTimeout,
			Env:          env,
			Output:       suiteLogs,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create suite executor: %w", err)
		}
	}

	reporter, err := reporting.NewReporter(reporting.Config{
		Log:        config.Log,
		ReportsDir: config.ReportsDir,
		Console:    console,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create reporter: %w", err)
	}

	suites := reg.GetSuites()
	observers := runner.Observers{console, suiteLogs}
	var progress *runner.ProgressReporter
	if config.ProgressInterval > 0 {
		progress = runner.NewProgressReporter(config.Log, config.ProgressInterval, len(suites))
		observers = append(observers, progress)
	}

	orch, err := runner.NewOrchestrator(runner.Config{
		Log:         config.Log,
		ReportsDir:  config.ReportsDir,
		Suites:      suites,
		Endpoints:   config.Endpoints,
		Devices:     deviceNames,
		SettleDelay: config.SettleDelay,
		Prober:      prober,
		Executor:    executor,
		Reporter:    reporter,
		Observer:    observers,
	})
	if err != nil {
		if progress != nil {
			progress.Stop()
		}
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	config.Log.Info("harness.New: created registry and orchestrator", "suites", len(suites))

	h := &harness{
		config:           config,
		version:          version,
		registry:         reg,
		orchestrator:     orch,
		console:          console,
		progress:         progress,
		suiteLogs:        suiteLogs,
		shutdownCallback: shutdownCallback,
		exit:             os.Exit,
	}
	if config.Serve || config.MetricsEnabled {
		h.service = service.New(service.Config{
			Log:          config.Log,
			ServeHealthz: config.Serve,
			HealthzAddr:  config.HealthzAddr,
			ServeMetrics: config.MetricsEnabled,
			MetricsAddr:  config.MetricsAddr,
		}, orch)
	}
	return h, nil
}

// Start performs the run and returns once reports are written.
// Start implements the cliapp.Lifecycle interface.
func (h *harness) Start(ctx context.Context) (err error) {
	// A panic anywhere in the run is a runtime error.
	defer func() {
		if r := recover(); r != nil {
			h.config.Log.Error("Runtime error occurred", "error", r)
			h.exit(exitcodes.RuntimeErr)
		}
	}()

	h.running.Store(true)
	if h.service != nil {
		h.service.Start()
	}

	h.config.Log.Info("Starting mobile-harness", "version", h.version)
	record, runErr := h.orchestrator.RunAll(ctx)

	h.mu.Lock()
	h.record = record
	h.mu.Unlock()

	if err := classify(record, runErr); err != nil {
		h.config.Log.Warn("Run finished with errors", "err", err, "exit_code", ExitCode(err))
		return err
	}

	h.config.Log.Info("All suites passed, exiting")
	go func() {
		h.shutdownCallback(nil)
	}()
	return nil
}

// classify turns the outcome of a run into the error kind the CLI maps to an
// exit code.
func classify(record *types.RunRecord, runErr error) error {
	if runErr != nil {
		return NewRuntimeError(runErr)
	}
	if record == nil {
		return NewRuntimeError(errors.New("run produced no record"))
	}
	if record.Summary.FailedSuites > 0 {
		return NewTestFailureError(fmt.Sprintf("%d of %d suites failed",
			record.Summary.FailedSuites, record.Summary.TotalSuites))
	}
	return nil
}

// Stop stops the harness.
// Stop implements the cliapp.Lifecycle interface.
func (h *harness) Stop(ctx context.Context) error {
	h.config.Log.Info("Stopping mobile-harness")
	if !h.running.Load() {
		h.config.Log.Debug("Harness already stopped, nothing to do")
		return nil
	}
	h.running.Store(false)

	if h.progress != nil {
		h.progress.Stop()
	}
	if err := h.suiteLogs.Close(); err != nil {
		h.config.Log.Warn("Failed to close suite logs", "err", err)
	}
	if h.service != nil {
		h.service.Shutdown()
	}
	h.config.Log.Info("mobile-harness stopped successfully")
	return nil
}

// Stopped returns true if the harness is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (h *harness) Stopped() bool {
	return !h.running.Load()
}

// State returns the orchestrator's current state.
func (h *harness) State() types.RunState {
	return h.orchestrator.State()
}

// Record returns the record of the last run, nil before Start.
func (h *harness) Record() *types.RunRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.record
}
