package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/saythanks/mobile-harness/metrics"
	"github.com/saythanks/mobile-harness/probe"
	"github.com/saythanks/mobile-harness/types"
)

// ErrReadinessGate is returned when a required backend never became ready.
// No suite has run and no report was written when it is returned.
var ErrReadinessGate = errors.New("readiness gate failed")

const tracerName = "github.com/saythanks/mobile-harness/runner"

// ReadinessProber waits for the automation backends.
type ReadinessProber interface {
	WaitForServices(ctx context.Context, endpoints []types.Endpoint) (probe.Readiness, error)
}

// Reporter turns a finalized run record into report artifacts.
type Reporter interface {
	Report(record *types.RunRecord) error
}

// Observer receives real-time progress of a run.
type Observer interface {
	StateChanged(state types.RunState)
	SuiteStarted(suite types.Suite)
	SuiteFinished(suite types.Suite, result types.SuiteResult)
}

// Config holds the dependencies and settings of an Orchestrator.
type Config struct {
	Log         log.Logger
	ReportsDir  string
	Suites      []types.Suite
	Endpoints   []types.Endpoint
	Devices     []string
	SettleDelay time.Duration

	Prober   ReadinessProber
	Executor SuiteExecutor
	Reporter Reporter
	Observer Observer

	// Sleep and Now default to real time; tests replace them.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

// Orchestrator owns the ordered suite list and drives one run from
// readiness probing to reporting.
type Orchestrator struct {
	log         log.Logger
	reportsDir  string
	suites      []types.Suite
	endpoints   []types.Endpoint
	devices     []string
	settleDelay time.Duration

	prober   ReadinessProber
	executor SuiteExecutor
	reporter Reporter
	observer Observer
	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	tracer   trace.Tracer

	mu    sync.RWMutex
	state types.RunState
}

// NewOrchestrator validates the configuration and creates an Orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.ReportsDir == "" {
		return nil, errors.New("reports directory is required")
	}
	if cfg.Prober == nil {
		return nil, errors.New("prober is required")
	}
	if cfg.Executor == nil {
		return nil, errors.New("executor is required")
	}
	if cfg.Reporter == nil {
		return nil, errors.New("reporter is required")
	}
	if err := validateSuites(cfg.Suites); err != nil {
		return nil, err
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleepContext
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Orchestrator{
		log:         cfg.Log,
		reportsDir:  cfg.ReportsDir,
		suites:      append([]types.Suite{}, cfg.Suites...),
		endpoints:   append([]types.Endpoint{}, cfg.Endpoints...),
		devices:     append([]string{}, cfg.Devices...),
		settleDelay: cfg.SettleDelay,
		prober:      cfg.Prober,
		executor:    cfg.Executor,
		reporter:    cfg.Reporter,
		observer:    cfg.Observer,
		sleep:       cfg.Sleep,
		now:         cfg.Now,
		tracer:      otel.Tracer(tracerName),
		state:       types.RunStateInit,
	}, nil
}

func validateSuites(suites []types.Suite) error {
	seen := make(map[string]struct{}, len(suites))
	for i, s := range suites {
		if s.Name == "" {
			return fmt.Errorf("suite %d has no name", i)
		}
		if s.Path == "" {
			return fmt.Errorf("suite %q has no path", s.Name)
		}
		if _, ok := seen[s.Name]; ok {
			return fmt.Errorf("%w: %q", types.ErrDuplicateSuite, s.Name)
		}
		seen[s.Name] = struct{}{}
	}
	return nil
}

// State returns the current run state. Safe for concurrent use.
func (o *Orchestrator) State() types.RunState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

func (o *Orchestrator) setState(next types.RunState) {
	o.mu.Lock()
	prev := o.state
	if !prev.CanTransition(next) {
		o.log.Warn("Unexpected run state transition", "from", prev, "to", next)
	}
	o.state = next
	o.mu.Unlock()

	o.log.Debug("Run state changed", "from", prev, "to", next)
	if o.observer != nil {
		o.observer.StateChanged(next)
	}
}

// RunAll performs one complete run. If the readiness gate fails it returns
// an error wrapping ErrReadinessGate before any suite runs. Otherwise every
// suite runs in order regardless of earlier failures, and the finalized
// record is reported and returned.
func (o *Orchestrator) RunAll(ctx context.Context) (*types.RunRecord, error) {
	ctx, span := o.tracer.Start(ctx, "run_all")
	defer span.End()

	o.mu.Lock()
	o.state = types.RunStateInit
	o.mu.Unlock()

	record := types.NewRunRecord(o.now())
	record.Devices = o.devices
	span.SetAttributes(attribute.String("run.id", record.RunID))
	ctx = WithRunID(ctx, record.RunID)

	if err := os.MkdirAll(o.reportsDir, 0755); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reports directory")
		return nil, fmt.Errorf("failed to create reports directory %s: %w", o.reportsDir, err)
	}

	if err := o.probe(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "readiness gate")
		return record, err
	}

	if o.settleDelay > 0 {
		o.log.Debug("Waiting for backends to settle", "delay", o.settleDelay)
		if err := o.sleep(ctx, o.settleDelay); err != nil {
			return record, fmt.Errorf("interrupted during settle delay: %w", err)
		}
	}

	o.setState(types.RunStateRunning)
	for _, suite := range o.suites {
		result := o.runSuite(ctx, suite)
		if err := record.Add(suite.Name, result); err != nil {
			// Names are validated up front, so this only fires on a programming error.
			o.log.Error("Failed to record suite result", "suite", suite.Name, "err", err)
		}
	}

	o.setState(types.RunStateReporting)
	if err := record.Finalize(o.now()); err != nil {
		return record, fmt.Errorf("failed to finalize run record: %w", err)
	}
	span.SetAttributes(
		attribute.Int("run.total_suites", record.Summary.TotalSuites),
		attribute.Int("run.failed_suites", record.Summary.FailedSuites),
	)

	if err := o.reporter.Report(record); err != nil {
		metrics.RecordErrorDetails("report", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "report")
		return record, fmt.Errorf("failed to generate reports: %w", err)
	}

	o.setState(types.RunStateDone)
	o.log.Info("Run completed", "run_id", record.RunID,
		"passed", record.Summary.PassedSuites, "failed", record.Summary.FailedSuites,
		"success_rate", record.Summary.SuccessRate)
	return record, nil
}

func (o *Orchestrator) probe(ctx context.Context, record *types.RunRecord) error {
	ctx, span := o.tracer.Start(ctx, "probe")
	defer span.End()

	o.setState(types.RunStateProbing)
	readiness, err := o.prober.WaitForServices(ctx, o.endpoints)
	record.Services = readiness.Services

	if err == nil && !readiness.Ready() {
		err = probe.ErrRequiredServiceUnavailable
	}
	if err != nil {
		o.log.Error("Required services not ready, aborting run", "err", err)
		metrics.RecordErrorDetails("readiness", err)
		span.RecordError(err)
		o.setState(types.RunStateAbort)
		return fmt.Errorf("%w: %w", ErrReadinessGate, err)
	}
	return nil
}

func (o *Orchestrator) runSuite(ctx context.Context, suite types.Suite) types.SuiteResult {
	ctx, span := o.tracer.Start(ctx, "suite", trace.WithAttributes(
		attribute.String("suite.name", suite.Name),
		attribute.String("suite.path", suite.Path),
	))
	defer span.End()

	if o.observer != nil {
		o.observer.SuiteStarted(suite)
	}
	result := o.executor.Execute(ctx, suite)

	span.SetAttributes(
		attribute.Bool("suite.success", result.Success),
		attribute.Int("suite.exit_code", result.ExitCode),
		attribute.Float64("suite.duration_seconds", result.Duration),
	)
	if !result.Success {
		span.SetStatus(codes.Error, "suite failed")
	}

	metrics.RecordSuiteResult(suite.Name, result)
	if o.observer != nil {
		o.observer.SuiteFinished(suite, result)
	}
	return result
}

type runIDKey struct{}

// WithRunID returns a context carrying the run identifier exported to suites.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFromContext returns the run identifier set by WithRunID, if any.
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
