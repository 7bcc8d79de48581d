package reporting

import (
	"time"

	"github.com/saythanks/mobile-harness/types"
)

// Report artifact names, relative to the reports directory.
const (
	SummaryJSONFile = "test_summary.json"
	SummaryHTMLFile = "summary_report.html"
	ConsoleLogFile  = "console.log"
)

const reportTimeFormat = "2006-01-02 15:04:05"

// ReportSuite is one row of the summary report.
type ReportSuite struct {
	Name       string
	Status     types.TestStatus
	Duration   float64
	ExitCode   int
	Error      string
	ReportLink string
	LogLink    string // Empty when no output log was kept
}

// ReportData contains everything a summary renderer needs, in execution order.
type ReportData struct {
	RunID     string
	StartTime string
	EndTime   string
	Summary   types.SummaryStats
	Suites    []ReportSuite
	Services  []types.ServiceStatus
	Devices   []string
}

// BuildReportData flattens a finalized run record for rendering.
func BuildReportData(record *types.RunRecord) *ReportData {
	data := &ReportData{
		RunID:     record.RunID,
		StartTime: formatTime(record.StartTime),
		EndTime:   formatTime(record.EndTime),
		Summary:   record.Summary,
		Suites:    make([]ReportSuite, 0, record.Len()),
		Services:  record.Services,
		Devices:   record.Devices,
	}
	for _, name := range record.Names() {
		res, _ := record.Result(name)
		data.Suites = append(data.Suites, ReportSuite{
			Name:       name,
			Status:     res.Status(),
			Duration:   res.Duration,
			ExitCode:   res.ExitCode,
			Error:      res.Error,
			ReportLink: types.Suite{Name: name}.HTMLReportName(),
		})
	}
	return data
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(reportTimeFormat)
}
