// Package registry resolves the ordered list of suites a run executes, either
// from a YAML plan file or from the built-in cross-platform plan.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	"gopkg.in/yaml.v3"

	"github.com/saythanks/mobile-harness/types"
)

// DefaultSuiteDir is where the built-in suites live, relative to the working directory.
const DefaultSuiteDir = "tests/mobile/cross_platform"

var defaultPlan = []types.Suite{
	{Path: "simple_test.py", Name: "Connection Test"},
	{Path: "responsive_tests.py", Name: "Responsive Layout Tests"},
	{Path: "touch_tests.py", Name: "Touch Interaction Tests"},
	{Path: "content_tests.py", Name: "Content Adaptation Tests"},
	{Path: "javascript_tests.py", Name: "JavaScript Functionality Tests"},
	{Path: "performance_tests.py", Name: "Performance Tests"},
	{Path: "browser_tests.py", Name: "Cross-Browser Tests"},
}

// DefaultSuites returns the built-in plan in execution order.
func DefaultSuites() []types.Suite {
	suites := make([]types.Suite, len(defaultPlan))
	for i, s := range defaultPlan {
		suites[i] = types.Suite{Path: path.Join(DefaultSuiteDir, s.Path), Name: s.Name}
	}
	return suites
}

// Plan is the on-disk suite plan.
type Plan struct {
	Suites []types.Suite `yaml:"suites"`
}

// Registry holds the resolved suite plan.
type Registry struct {
	config Config
	suites []types.Suite
	mu     sync.RWMutex
}

// Config contains registry configuration
type Config struct {
	Log log.Logger
	// PlanFile is optional; the built-in plan is used when it is empty.
	PlanFile string
}

// NewRegistry creates a new registry instance
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}

	r := &Registry{config: cfg}
	if err := r.load(); err != nil {
		return nil, err
	}

	cfg.Log.Debug("Registry loaded", "plan", cfg.PlanFile, "len(suites)", len(r.suites))
	return r, nil
}

func (r *Registry) load() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.config.PlanFile == "" {
		r.suites = DefaultSuites()
		return nil
	}

	plan, err := LoadPlan(r.config.Log, r.config.PlanFile)
	if err != nil {
		return fmt.Errorf("failed to load plan: %w", err)
	}
	r.suites = plan.Suites
	return nil
}

// GetSuites returns a copy of the suite plan in execution order.
func (r *Registry) GetSuites() []types.Suite {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]types.Suite(nil), r.suites...)
}

// GetConfig returns the registry configuration
func (r *Registry) GetConfig() Config {
	return r.config
}

// LoadPlan reads and validates a suite plan file.
func LoadPlan(logger log.Logger, path string) (*Plan, error) {
	if logger == nil {
		logger = log.Root()
	}
	logger.Debug("Reading suite plan file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan file: %w", err)
	}

	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parsing plan file: %w", err)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

// Validate rejects empty fields and duplicate display names.
func (p *Plan) Validate() error {
	if len(p.Suites) == 0 {
		return errors.New("plan declares no suites")
	}
	seen := make(map[string]int, len(p.Suites))
	for i, s := range p.Suites {
		if s.Name == "" {
			return fmt.Errorf("suite %d: name is required", i)
		}
		if s.Path == "" {
			return fmt.Errorf("suite %q: path is required", s.Name)
		}
		if prev, ok := seen[s.Name]; ok {
			return fmt.Errorf("suite %d: %w %q (first declared as suite %d)", i, types.ErrDuplicateSuite, s.Name, prev)
		}
		seen[s.Name] = i
	}
	return nil
}
