package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"
)

const EnvVarPrefix = "MOBILE_HARNESS"

var (
	ReportsDir = &cli.StringFlag{
		Name:    "reports-dir",
		Value:   "reports",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORTS_DIR"),
		Usage:   "Directory that receives per-suite and summary reports",
	}
	WorkDir = &cli.StringFlag{
		Name:    "workdir",
		Value:   ".",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "WORKDIR"),
		Usage:   "Directory suites are resolved against and run from",
	}
	Plan = &cli.StringFlag{
		Name:    "plan",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PLAN"),
		Usage:   "Path to a YAML suite plan. The built-in cross-platform plan is used when empty",
	}
	Devices = &cli.StringFlag{
		Name:    "devices",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "DEVICES"),
		Usage:   "Path to the device profile catalog exported to suites",
	}
	RunnerBinary = &cli.StringFlag{
		Name:    "runner-binary",
		Value:   "pytest",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUNNER_BINARY"),
		Usage:   "Test runner used to execute one suite",
	}
	SuiteTimeout = &cli.DurationFlag{
		Name:    "suite-timeout",
		Value:   300 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SUITE_TIMEOUT"),
		Usage:   "Hard time limit for a single suite",
		Action:  positiveDuration("suite-timeout"),
	}
	SettleDelay = &cli.DurationFlag{
		Name:    "settle-delay",
		Value:   5 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SETTLE_DELAY"),
		Usage:   "Pause between a successful readiness gate and the first suite",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress log lines while suites run, 0 disables them",
	}
	ProbeAttempts = &cli.IntFlag{
		Name:    "probe-attempts",
		Value:   30,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROBE_ATTEMPTS"),
		Usage:   "Maximum readiness attempts per backend",
		Action: func(_ *cli.Context, v int) error {
			if v < 1 {
				return fmt.Errorf("probe-attempts must be at least 1, got %d", v)
			}
			return nil
		},
	}
	ProbeInterval = &cli.DurationFlag{
		Name:    "probe-interval",
		Value:   2 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROBE_INTERVAL"),
		Usage:   "Delay between readiness attempts",
	}
	ProbeTimeout = &cli.DurationFlag{
		Name:    "probe-timeout",
		Value:   5 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROBE_TIMEOUT"),
		Usage:   "Timeout of a single readiness request",
		Action:  positiveDuration("probe-timeout"),
	}
	EnvFile = &cli.StringFlag{
		Name:    "env-file",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ENV_FILE"),
		Usage:   "Optional dotenv file loaded before the backend addresses are resolved",
	}
	Serve = &cli.BoolFlag{
		Name:    "serve",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SERVE"),
		Usage:   "Serve /healthz and /status while the run is in progress",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "0.0.0.0",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the healthz server",
	}
	HealthzPort = &cli.IntFlag{
		Name:    "healthz.port",
		Value:   8080,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_PORT"),
		Usage:   "Listen port of the healthz server",
	}
	NoColor = &cli.BoolFlag{
		Name:    "no-color",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NO_COLOR"),
		Usage:   "Disable ANSI colors in console output",
	}
)

// Backend address flags read the bare variable names the container setup exports.
var (
	SeleniumHost = &cli.StringFlag{
		Name:    "selenium.host",
		Value:   "selenium",
		EnvVars: []string{"SELENIUM_HUB_HOST"},
		Usage:   "Selenium hub host",
	}
	SeleniumPort = &cli.StringFlag{
		Name:    "selenium.port",
		Value:   "4444",
		EnvVars: []string{"SELENIUM_HUB_PORT"},
		Usage:   "Selenium hub port",
	}
	AndroidHost = &cli.StringFlag{
		Name:    "android.host",
		Value:   "android",
		EnvVars: []string{"ANDROID_HOST"},
		Usage:   "Android automation server host",
	}
	AndroidPort = &cli.StringFlag{
		Name:    "android.port",
		Value:   "4723",
		EnvVars: []string{"ANDROID_PORT"},
		Usage:   "Android automation server port",
	}
	IOSHost = &cli.StringFlag{
		Name:    "ios.host",
		Value:   "ios",
		EnvVars: []string{"IOS_HOST"},
		Usage:   "iOS automation server host",
	}
	IOSPort = &cli.StringFlag{
		Name:    "ios.port",
		Value:   "4725",
		EnvVars: []string{"IOS_PORT"},
		Usage:   "iOS automation server port",
	}
)

// BackendFlags are the flags whose env vars carry no prefix.
var BackendFlags = []cli.Flag{
	SeleniumHost,
	SeleniumPort,
	AndroidHost,
	AndroidPort,
	IOSHost,
	IOSPort,
}

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	ReportsDir,
	WorkDir,
	Plan,
	Devices,
	RunnerBinary,
	SuiteTimeout,
	SettleDelay,
	ProgressInterval,
	ProbeAttempts,
	ProbeInterval,
	ProbeTimeout,
	EnvFile,
	Serve,
	HealthzAddr,
	HealthzPort,
	NoColor,
}

var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, BackendFlags...)
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}

func positiveDuration(name string) func(*cli.Context, time.Duration) error {
	return func(_ *cli.Context, d time.Duration) error {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
		return nil
	}
}
