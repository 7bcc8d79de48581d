package harness

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/saythanks/mobile-harness/devices"
	"github.com/saythanks/mobile-harness/flags"
	"github.com/saythanks/mobile-harness/types"
)

// Config holds the application configuration
type Config struct {
	WorkDir          string        // Directory suites are resolved against and run from
	ReportsDir       string        // Absolute reports directory
	PlanFile         string        // Suite plan, empty for the built-in plan
	DevicesFile      string        // Device catalog exported to suites, may be empty
	RunnerBinary     string        // Test runner invoked once per suite
	SuiteTimeout     time.Duration // Hard per-suite ceiling
	SettleDelay      time.Duration // Pause after a successful readiness gate
	ProgressInterval time.Duration // Progress log interval, 0 disables
	ProbeAttempts    int           // Readiness attempts per backend
	ProbeInterval    time.Duration // Delay between readiness attempts
	ProbeTimeout     time.Duration // Timeout of one readiness request
	Endpoints        []types.Endpoint

	Serve          bool   // Serve /healthz and /status during the run
	HealthzAddr    string // host:port of the healthz server
	MetricsEnabled bool
	MetricsAddr    string // host:port of the metrics server
	Colors         bool   // ANSI colors in console output

	Log log.Logger
}

// Backends holds the addresses of the automation backends.
type Backends struct {
	SeleniumHost, SeleniumPort string
	AndroidHost, AndroidPort   string
	IOSHost, IOSPort           string
}

// Endpoints returns the readiness endpoints in probe order. Only the
// Selenium hub is required.
func (b Backends) Endpoints() []types.Endpoint {
	return []types.Endpoint{
		{Name: "Selenium Hub", Host: b.SeleniumHost, Port: b.SeleniumPort, Path: "/wd/hub/status", Required: true, Check: types.CheckSeleniumReady},
		{Name: "Android Appium", Host: b.AndroidHost, Port: b.AndroidPort, Path: "/status", Check: types.CheckStatusOK},
		{Name: "iOS Appium", Host: b.IOSHost, Port: b.IOSPort, Path: "/status", Check: types.CheckStatusOK},
	}
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	if envFile := ctx.String(flags.EnvFile.Name); envFile != "" {
		// Existing variables win over the file.
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("failed to load env file '%s': %w", envFile, err)
		}
		log.Debug("Loaded env file", "path", envFile)
	}

	workDir, err := filepath.Abs(ctx.String(flags.WorkDir.Name))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work directory: %w", err)
	}
	if info, err := os.Stat(workDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("work directory '%s' does not exist", workDir)
	}

	reportsDir := ctx.String(flags.ReportsDir.Name)
	if reportsDir == "" {
		return nil, fmt.Errorf("reports directory is required")
	}
	if !filepath.IsAbs(reportsDir) {
		reportsDir = filepath.Join(workDir, reportsDir)
	}

	var planFile string
	if p := ctx.String(flags.Plan.Name); p != "" {
		planFile, err = filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for plan '%s': %w", p, err)
		}
	}

	devicesFile, err := devices.Find(ctx.String(flags.Devices.Name))
	if err != nil {
		return nil, err
	}
	if devicesFile != "" {
		if devicesFile, err = filepath.Abs(devicesFile); err != nil {
			return nil, fmt.Errorf("failed to resolve device catalog path: %w", err)
		}
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics config: %w", err)
	}

	backends := Backends{
		SeleniumHost: backendValue(ctx, flags.SeleniumHost),
		SeleniumPort: backendValue(ctx, flags.SeleniumPort),
		AndroidHost:  backendValue(ctx, flags.AndroidHost),
		AndroidPort:  backendValue(ctx, flags.AndroidPort),
		IOSHost:      backendValue(ctx, flags.IOSHost),
		IOSPort:      backendValue(ctx, flags.IOSPort),
	}

	return &Config{
		WorkDir:          workDir,
		ReportsDir:       reportsDir,
		PlanFile:         planFile,
		DevicesFile:      devicesFile,
		RunnerBinary:     ctx.String(flags.RunnerBinary.Name),
		SuiteTimeout:     ctx.Duration(flags.SuiteTimeout.Name),
		SettleDelay:      ctx.Duration(flags.SettleDelay.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		ProbeAttempts:    ctx.Int(flags.ProbeAttempts.Name),
		ProbeInterval:    ctx.Duration(flags.ProbeInterval.Name),
		ProbeTimeout:     ctx.Duration(flags.ProbeTimeout.Name),
		Endpoints:        backends.Endpoints(),
		Serve:            ctx.Bool(flags.Serve.Name),
		HealthzAddr:      net.JoinHostPort(ctx.String(flags.HealthzAddr.Name), strconv.Itoa(ctx.Int(flags.HealthzPort.Name))),
		MetricsEnabled:   metricsCfg.Enabled,
		MetricsAddr:      net.JoinHostPort(metricsCfg.ListenAddr, strconv.Itoa(metricsCfg.ListenPort)),
		Colors:           !ctx.Bool(flags.NoColor.Name),
		Log:              log,
	}, nil
}

// backendValue prefers an explicit flag, then the environment (which may have
// been extended by the env file after flags were parsed), then the default.
func backendValue(ctx *cli.Context, f *cli.StringFlag) string {
	if ctx.IsSet(f.Name) {
		return ctx.String(f.Name)
	}
	for _, env := range f.EnvVars {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}
	return f.Value
}
