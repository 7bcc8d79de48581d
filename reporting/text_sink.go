package reporting

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/saythanks/mobile-harness/templates"
	"github.com/saythanks/mobile-harness/types"
)

// Closing lines of the console summary.
const (
	AllPassedMessage  = "🎉 All tests completed successfully!"
	SomeFailedMessage = "💥 Some tests failed. Check reports for details."
)

const bannerWidth = 60

// FormatSummary renders the console summary of a finalized run: a banner,
// aggregate stats, one line per suite, a results table and a closing line.
func FormatSummary(record *types.RunRecord, colors bool) string {
	paint := func(c text.Colors, s string) string {
		if !colors {
			return s
		}
		return c.Sprint(s)
	}
	stats := record.Summary

	var b strings.Builder
	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, paint(colorHeader, "📊 TEST EXECUTION SUMMARY"), rule)
	fmt.Fprintf(&b, "Total Suites:   %d\n", stats.TotalSuites)
	fmt.Fprintf(&b, "Passed:         %s\n", paint(colorSuccess, fmt.Sprint(stats.PassedSuites)))
	fmt.Fprintf(&b, "Failed:         %s\n", paint(colorError, fmt.Sprint(stats.FailedSuites)))
	fmt.Fprintf(&b, "Success Rate:   %.1f%%\n", stats.SuccessRate)
	fmt.Fprintf(&b, "Total Duration: %s\n", templates.FormatSeconds(stats.TotalDuration))

	fmt.Fprintf(&b, "\n%s\n%s\n", paint(colorHeader, "📋 DETAILED RESULTS"), strings.Repeat("-", bannerWidth))
	for _, name := range record.Names() {
		res, _ := record.Result(name)
		if res.Success {
			fmt.Fprintf(&b, "✅ %s %s (%s)\n", paint(colorSuccess, "PASS"), name, templates.FormatSeconds(res.Duration))
		} else {
			fmt.Fprintf(&b, "❌ %s %s (%s)\n", paint(colorError, "FAIL"), name, templates.FormatSeconds(res.Duration))
		}
	}

	b.WriteString("\n")
	b.WriteString(RenderResultsTable(record, colors))
	b.WriteString("\n\n")

	if stats.FailedSuites == 0 {
		b.WriteString(paint(colorSuccess, AllPassedMessage))
	} else {
		b.WriteString(paint(colorError, SomeFailedMessage))
	}
	b.WriteString("\n")
	return b.String()
}

// RenderResultsTable renders one table row per suite with a totals footer.
func RenderResultsTable(record *types.RunRecord, colors bool) string {
	t := table.NewWriter()
	t.SetTitle("Mobile Web Test Results")
	t.AppendHeader(table.Row{"#", "Suite", "Status", "Duration", "Exit Code", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Suite", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Exit Code", Align: text.AlignRight},
		{Name: "Error", WidthMax: 40, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, name := range record.Names() {
		res, _ := record.Result(name)
		t.AppendRow(table.Row{
			i + 1,
			name,
			getResultString(res.Status()),
			templates.FormatSeconds(res.Duration),
			res.ExitCode,
			res.Error,
		})
	}

	stats := record.Summary
	t.AppendFooter(table.Row{
		"",
		"TOTAL",
		fmt.Sprintf("%d/%d passed", stats.PassedSuites, stats.TotalSuites),
		templates.FormatSeconds(stats.TotalDuration),
		"",
		"",
	})

	switch {
	case !colors:
		t.SetStyle(table.StyleLight)
	case stats.FailedSuites > 0:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	}
	return t.Render()
}

func getResultString(status types.TestStatus) string {
	if status == types.TestStatusPass {
		return "✓ pass"
	}
	return "✗ fail"
}

// PrintSummary writes the summary of a finalized run to the console.
func (c *Console) PrintSummary(record *types.RunRecord) {
	c.write(FormatSummary(record, c.colors))
}
