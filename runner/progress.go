package runner

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/saythanks/mobile-harness/types"
)

// DefaultProgressInterval is how often a long run reports progress.
const DefaultProgressInterval = 30 * time.Second

// Observers fans run events out to several observers in order.
type Observers []Observer

func (o Observers) StateChanged(state types.RunState) {
	for _, obs := range o {
		obs.StateChanged(state)
	}
}

func (o Observers) SuiteStarted(suite types.Suite) {
	for _, obs := range o {
		obs.SuiteStarted(suite)
	}
}

func (o Observers) SuiteFinished(suite types.Suite, result types.SuiteResult) {
	for _, obs := range o {
		obs.SuiteFinished(suite, result)
	}
}

// Progress is a point-in-time view of a run.
type Progress struct {
	State        types.RunState
	CurrentSuite string
	Running      time.Duration // time spent in the current suite
	Completed    int
	Failed       int
	Total        int
}

// Percent returns the share of completed suites.
func (p Progress) Percent() float64 {
	if p.Total == 0 {
		return 0
	}
	return float64(p.Completed) * 100.0 / float64(p.Total)
}

// ProgressReporter periodically logs which suite is running and how far the
// run has got. Suites may run for minutes, so without it a run looks stuck.
type ProgressReporter struct {
	logger log.Logger
	ticker *time.Ticker
	stopCh chan struct{}
	once   sync.Once
	now    func() time.Time

	mu             sync.RWMutex
	state          types.RunState
	currentSuite   string
	suiteStartTime time.Time
	completed      int
	failed         int
	total          int
}

// NewProgressReporter starts a reporter for a run of total suites. Call Stop
// when the run is over; terminal run states stop it as well.
func NewProgressReporter(logger log.Logger, updateInterval time.Duration, total int) *ProgressReporter {
	if updateInterval <= 0 {
		updateInterval = DefaultProgressInterval
	}
	p := &ProgressReporter{
		logger: logger,
		ticker: time.NewTicker(updateInterval),
		stopCh: make(chan struct{}),
		now:    time.Now,
		state:  types.RunStateInit,
		total:  total,
	}
	go p.progressReporter()
	return p
}

func (p *ProgressReporter) StateChanged(state types.RunState) {
	p.mu.Lock()
	p.state = state
	p.mu.Unlock()

	if state.Terminal() {
		p.Stop()
	}
}

func (p *ProgressReporter) SuiteStarted(suite types.Suite) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.currentSuite = suite.Name
	p.suiteStartTime = p.now()
}

func (p *ProgressReporter) SuiteFinished(suite types.Suite, result types.SuiteResult) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	if !result.Success {
		p.failed++
	}
	p.currentSuite = ""
	p.logger.Debug("Suite completed", "suite", suite.Name, "status", result.Status(),
		"completed", p.completed, "total", p.total)
}

// Snapshot returns the current progress.
func (p *ProgressReporter) Snapshot() Progress {
	p.mu.RLock()
	defer p.mu.RUnlock()

	snap := Progress{
		State:        p.state,
		CurrentSuite: p.currentSuite,
		Completed:    p.completed,
		Failed:       p.failed,
		Total:        p.total,
	}
	if p.currentSuite != "" {
		snap.Running = p.now().Sub(p.suiteStartTime).Truncate(time.Second)
	}
	return snap
}

func (p *ProgressReporter) progressReporter() {
	for {
		select {
		case <-p.ticker.C:
			p.reportProgress()
		case <-p.stopCh:
			return
		}
	}
}

func (p *ProgressReporter) reportProgress() {
	snap := p.Snapshot()
	if snap.State != types.RunStateRunning {
		return
	}
	p.logger.Info("Progress update",
		"suite", snap.CurrentSuite,
		"running", snap.Running,
		"completed", snap.Completed,
		"failed", snap.Failed,
		"total", snap.Total,
		"percent", fmt.Sprintf("%.1f%%", snap.Percent()))
}

// Stop stops periodic reporting. It is safe to call more than once.
func (p *ProgressReporter) Stop() {
	p.once.Do(func() {
		p.ticker.Stop()
		close(p.stopCh)
	})
}
