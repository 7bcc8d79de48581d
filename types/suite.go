// Package types contains the shared data model of the mobile test harness.
package types

import (
	"strings"
)

// Suite is one independently executable collection of test assertions,
// run as a single sub-process invocation.
type Suite struct {
	Path string `yaml:"path"` // Locator of the suite's test definitions
	Name string `yaml:"name"` // Display name, unique within a run
}

var slugReplacer = strings.NewReplacer(" ", "_", "-", "_")

// Slug returns the deterministic name used for the suite's report files.
func (s Suite) Slug() string {
	return Slug(s.Name)
}

// Slug lower-cases a display name and replaces spaces and hyphens with
// underscores. The executor and the HTML summary must agree on it, otherwise
// the summary links to report files that were never written.
func Slug(name string) string {
	return slugReplacer.Replace(strings.ToLower(name))
}

// HTMLReportName returns the per-suite HTML report file name.
func (s Suite) HTMLReportName() string {
	return s.Slug() + "_report.html"
}

// JUnitReportName returns the per-suite JUnit XML report file name.
func (s Suite) JUnitReportName() string {
	return s.Slug() + "_junit.xml"
}

// LogDir is the reports subdirectory that holds complete suite output.
const LogDir = "logs"

// LogName returns the per-suite output log, relative to the reports directory.
func (s Suite) LogName() string {
	return LogDir + "/" + s.Slug() + ".log"
}
