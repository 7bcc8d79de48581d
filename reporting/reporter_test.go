package reporting

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saythanks/mobile-harness/types"
)

var testStart = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

func finalizedRecord(t *testing.T, results map[string]types.SuiteResult, order []string) *types.RunRecord {
	t.Helper()
	record := types.NewRunRecord(testStart)
	for _, name := range order {
		require.NoError(t, record.Add(name, results[name]))
	}
	require.NoError(t, record.Finalize(testStart.Add(42*time.Second)))
	return record
}

func mixedRecord(t *testing.T) *types.RunRecord {
	order := []string{"Connection Test", "Touch Interaction Tests", "Cross-Browser Tests"}
	record := finalizedRecord(t, map[string]types.SuiteResult{
		"Connection Test":         types.CompletedSuiteResult(0, 1500*time.Millisecond, "1 passed", ""),
		"Touch Interaction Tests": types.TimedOutSuiteResult(300 * time.Second),
		"Cross-Browser Tests":     types.CompletedSuiteResult(1, 2*time.Second, "", "AssertionError"),
	}, order)
	record.Services = []types.ServiceStatus{
		{Name: "selenium", URL: "http://selenium:4444/wd/hub/status", Required: true, Ready: true, Attempts: 1},
		{Name: "android", URL: "http://android:4723/status", Ready: false, Attempts: 30},
	}
	return record
}

func newTestReporter(t *testing.T, out *bytes.Buffer, colors bool) (*Reporter, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := NewReporter(Config{
		Log:        log.NewLogger(log.DiscardHandler()),
		ReportsDir: dir,
		Console:    NewConsole(out, colors),
	})
	require.NoError(t, err)
	return r, dir
}

func TestNewReporter_Validation(t *testing.T) {
	_, err := NewReporter(Config{Console: NewConsole(&bytes.Buffer{}, false)})
	assert.Error(t, err)

	_, err = NewReporter(Config{ReportsDir: t.TempDir()})
	assert.Error(t, err)
}

func TestReport_RejectsOpenRecord(t *testing.T) {
	var out bytes.Buffer
	r, dir := newTestReporter(t, &out, false)

	record := types.NewRunRecord(testStart)
	err := r.Report(record)
	assert.ErrorIs(t, err, ErrRecordNotFinalized)
	assert.NoFileExists(t, filepath.Join(dir, SummaryJSONFile))
}

func TestReport_WritesAllArtifacts(t *testing.T) {
	var out bytes.Buffer
	r, dir := newTestReporter(t, &out, true)
	record := mixedRecord(t)

	require.NoError(t, r.Report(record))

	// JSON
	raw, err := os.ReadFile(filepath.Join(dir, SummaryJSONFile))
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	summary := decoded["summary"].(map[string]any)
	assert.Equal(t, 3.0, summary["total_suites"])
	assert.Equal(t, 1.0, summary["passed_suites"])
	assert.Equal(t, 2.0, summary["failed_suites"])
	assert.Equal(t, 33.3, summary["success_rate"])
	assert.Equal(t, 42.0, summary["total_duration"])

	body := string(raw)
	first := strings.Index(body, `"Connection Test"`)
	second := strings.Index(body, `"Touch Interaction Tests"`)
	third := strings.Index(body, `"Cross-Browser Tests"`)
	require.True(t, first >= 0 && second >= 0 && third >= 0)
	assert.True(t, first < second && second < third, "suites keep execution order")
	assert.Contains(t, body, "\n  \"", "two-space indentation")

	// HTML
	html, err := os.ReadFile(filepath.Join(dir, SummaryHTMLFile))
	require.NoError(t, err)
	page := string(html)
	assert.Contains(t, page, `href="cross_browser_tests_report.html"`)
	assert.Contains(t, page, `href="connection_test_report.html"`)
	assert.Contains(t, page, `class="status-pass"`)
	assert.Contains(t, page, `class="status-fail"`)
	assert.Contains(t, page, "33.3%")
	assert.Contains(t, page, "42.00s")
	assert.Contains(t, page, types.ErrMsgSuiteTimedOut)
	assert.Contains(t, page, "http://android:4723/status")
	assert.Less(t, strings.Index(page, "Connection Test"), strings.Index(page, "Cross-Browser Tests"))

	// Console and transcript
	assert.Contains(t, out.String(), SomeFailedMessage)
	transcript, err := os.ReadFile(filepath.Join(dir, ConsoleLogFile))
	require.NoError(t, err)
	assert.Contains(t, string(transcript), "📊 TEST EXECUTION SUMMARY")
	assert.Contains(t, string(transcript), SomeFailedMessage)
	assert.NotContains(t, string(transcript), "\x1b[", "transcript has no ANSI sequences")
}

func TestHTMLSink_LinksKeptOutputLogs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, types.LogDir), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "logs", "connection_test.log"), []byte("1 passed\n"), 0644))

	sink, err := NewHTMLSink(dir)
	require.NoError(t, err)
	html, err := sink.Render(mixedRecord(t))
	require.NoError(t, err)

	page := string(html)
	assert.Contains(t, page, `href="logs/connection_test.log"`)
	assert.NotContains(t, page, `href="logs/cross_browser_tests.log"`)
}

func TestSummaryTemplate_RendersReportLink(t *testing.T) {
	tmpl, err := GetHTMLTemplate(SummaryTemplateName)
	require.NoError(t, err)

	data := &ReportData{
		RunID: "run-1",
		Suites: []ReportSuite{{
			Name:       "Connection Test",
			Status:     types.TestStatusPass,
			ReportLink: "suites/connection.html",
		}},
	}
	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, SummaryTemplateName, data))
	assert.Contains(t, buf.String(), `href="suites/connection.html"`)
	assert.NotContains(t, buf.String(), `href="connection_test_report.html"`)
}

func TestReport_AllPassed(t *testing.T) {
	var out bytes.Buffer
	r, dir := newTestReporter(t, &out, false)
	record := finalizedRecord(t, map[string]types.SuiteResult{
		"Connection Test": types.CompletedSuiteResult(0, time.Second, "", ""),
	}, []string{"Connection Test"})

	require.NoError(t, r.Report(record))
	assert.Contains(t, out.String(), AllPassedMessage)
	assert.NotContains(t, out.String(), SomeFailedMessage)
	assert.FileExists(t, filepath.Join(dir, SummaryHTMLFile))
}

func TestReport_EmptyRun(t *testing.T) {
	var out bytes.Buffer
	r, dir := newTestReporter(t, &out, false)
	record := finalizedRecord(t, nil, nil)

	require.NoError(t, r.Report(record))

	raw, err := os.ReadFile(filepath.Join(dir, SummaryJSONFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"test_suites": {}`)
	assert.Contains(t, out.String(), AllPassedMessage)
}

func TestBuildReportData(t *testing.T) {
	record := mixedRecord(t)
	data := BuildReportData(record)

	require.Len(t, data.Suites, 3)
	assert.Equal(t, record.RunID, data.RunID)
	assert.Equal(t, "2026-03-04 10:00:00", data.StartTime)
	assert.Equal(t, "2026-03-04 10:00:42", data.EndTime)

	assert.Equal(t, ReportSuite{
		Name:       "Cross-Browser Tests",
		Status:     types.TestStatusFail,
		Duration:   2,
		ExitCode:   1,
		ReportLink: "cross_browser_tests_report.html",
	}, data.Suites[2])
	assert.Equal(t, types.TestStatusPass, data.Suites[0].Status)
	assert.Equal(t, types.ErrMsgSuiteTimedOut, data.Suites[1].Error)
}

func TestFormatSummary(t *testing.T) {
	record := mixedRecord(t)
	summary := FormatSummary(record, false)

	assert.NotContains(t, summary, "\x1b[")
	assert.Contains(t, summary, "Total Suites:   3")
	assert.Contains(t, summary, "Passed:         1")
	assert.Contains(t, summary, "Failed:         2")
	assert.Contains(t, summary, "Success Rate:   33.3%")
	assert.Contains(t, summary, "✅ PASS Connection Test (1.50s)")
	assert.Contains(t, summary, "❌ FAIL Touch Interaction Tests (300.00s)")
	assert.True(t, strings.HasSuffix(summary, SomeFailedMessage+"\n"))

	colored := FormatSummary(record, true)
	assert.Contains(t, colored, "\x1b[")
}

func TestRenderResultsTable(t *testing.T) {
	out := RenderResultsTable(mixedRecord(t), false)
	assert.Contains(t, out, "Cross-Browser Tests")
	assert.Contains(t, out, "✓ pass")
	assert.Contains(t, out, "✗ fail")
	assert.Contains(t, out, "1/3 passed")
}
