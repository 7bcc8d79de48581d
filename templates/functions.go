package templates

import (
	"fmt"
	"html/template"

	"github.com/saythanks/mobile-harness/types"
)

// GetTemplateFunc returns the template functions shared by every HTML report.
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatSeconds": FormatSeconds,
		"formatRate": func(rate float64) string {
			return fmt.Sprintf("%.1f%%", rate)
		},
		"getStatusClass": func(status types.TestStatus) string {
			return "status-" + getStatusString(status)
		},
		"getStatusText": func(status types.TestStatus) string {
			switch status {
			case types.TestStatusPass:
				return "PASS"
			case types.TestStatusFail:
				return "FAIL"
			default:
				return "UNKNOWN"
			}
		},
	}
}

// FormatSeconds renders a duration in seconds with two decimals.
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2fs", seconds)
}

// getStatusString returns a consistent lowercase status string
func getStatusString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "pass"
	case types.TestStatusFail:
		return "fail"
	default:
		return "unknown"
	}
}
