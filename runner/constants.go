package runner

import "time"

// Suite execution constants
const (
	// DefaultSuiteTimeout is the hard ceiling for one suite sub-process
	DefaultSuiteTimeout = 300 * time.Second

	// DefaultSettleDelay absorbs backend warm-up races after readiness
	DefaultSettleDelay = 5 * time.Second

	// DefaultRunnerBinary is the test runner invoked per suite
	DefaultRunnerBinary = "pytest"

	// Test runner arguments
	VerboseFlag          = "-v"
	ShortTracebackFlag   = "--tb=short"
	HTMLReportFlag       = "--html"
	SelfContainedHTMLArg = "--self-contained-html"
	JUnitXMLFlag         = "--junit-xml"

	// Environment exported to every suite
	EnvReportsDir     = "REPORTS_DIR"
	EnvDevicesConfig  = "MOBILE_DEVICES_CONFIG"
	EnvHarnessRunID   = "MOBILE_HARNESS_RUN_ID"
	EnvHarnessSuiteID = "MOBILE_HARNESS_SUITE"

	// killGracePeriod bounds how long Wait blocks on inherited pipes after the
	// suite process has been killed.
	killGracePeriod = 5 * time.Second
)
