package reporting

import (
	"bytes"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/saythanks/mobile-harness/types"
)

// Console prints timestamped progress lines for a run and keeps a transcript
// of everything it printed. It satisfies both the probe and the run observer
// interfaces.
type Console struct {
	mu         sync.Mutex
	out        io.Writer
	colors     bool
	now        func() time.Time
	transcript bytes.Buffer
}

// NewConsole creates a Console writing to out. When colors is false no ANSI
// sequences are emitted.
func NewConsole(out io.Writer, colors bool) *Console {
	return &Console{
		out:    out,
		colors: colors,
		now:    time.Now,
	}
}

// Transcript returns everything printed so far with ANSI sequences removed.
func (c *Console) Transcript() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return stripansi.Strip(c.transcript.String())
}

// Println writes one timestamped line.
func (c *Console) Println(colors text.Colors, msg string) {
	c.write(fmt.Sprintf("[%s] %s\n", c.now().Format("15:04:05"), c.paint(colors, msg)))
}

// Printf writes one timestamped, formatted line.
func (c *Console) Printf(colors text.Colors, format string, args ...any) {
	c.Println(colors, fmt.Sprintf(format, args...))
}

// Write copies raw text, such as a rendered table, to the console.
func (c *Console) Write(p []byte) (int, error) {
	c.write(string(p))
	return len(p), nil
}

func (c *Console) write(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transcript.WriteString(s)
	_, _ = io.WriteString(c.out, s)
}

func (c *Console) paint(colors text.Colors, s string) string {
	if !c.colors || len(colors) == 0 {
		return s
	}
	return colors.Sprint(s)
}

var (
	colorInfo    = text.Colors{text.FgBlue}
	colorSuccess = text.Colors{text.FgGreen}
	colorWarn    = text.Colors{text.FgYellow}
	colorError   = text.Colors{text.FgRed}
	colorHeader  = text.Colors{text.Bold}
)

// ProbeStarted reports that an endpoint is being polled.
func (c *Console) ProbeStarted(ep types.Endpoint) {
	c.Printf(colorInfo, "Checking %s at %s...", ep.Name, ep.URL())
}

// ProbeFinished reports the final readiness of an endpoint.
func (c *Console) ProbeFinished(status types.ServiceStatus) {
	switch {
	case status.Ready:
		c.Printf(colorSuccess, "✅ %s is ready", status.Name)
	case status.Required:
		c.Printf(colorError, "❌ %s is not ready after %d attempts", status.Name, status.Attempts)
	default:
		c.Printf(colorWarn, "⚠️ %s not available, continuing without it", status.Name)
	}
}

// StateChanged announces run phases.
func (c *Console) StateChanged(state types.RunState) {
	switch state {
	case types.RunStateProbing:
		c.Println(colorHeader, "🚀 Starting mobile web test execution")
	case types.RunStateAbort:
		c.Println(colorError, "❌ Required services are not ready, aborting run")
	case types.RunStateReporting:
		c.Println(colorInfo, "Generating summary report...")
	}
}

// SuiteStarted announces a suite.
func (c *Console) SuiteStarted(suite types.Suite) {
	c.Printf(colorInfo, "Running %s...", suite.Name)
}

// SuiteFinished reports how a suite ended.
func (c *Console) SuiteFinished(suite types.Suite, result types.SuiteResult) {
	switch {
	case result.Success:
		c.Printf(colorSuccess, "✅ %s completed successfully (%.2fs)", suite.Name, result.Duration)
	case result.Error == types.ErrMsgSuiteTimedOut:
		c.Printf(colorError, "⏰ %s timed out after %.0fs", suite.Name, result.Duration)
	case result.Error == types.ErrMsgSuiteNotFound:
		c.Printf(colorError, "❌ %s failed: %s (%s)", suite.Name, result.Error, suite.Path)
	case result.NotRun():
		c.Printf(colorError, "💥 %s crashed: %s", suite.Name, result.Error)
	default:
		c.Printf(colorError, "❌ %s failed with exit code %d (%.2fs)", suite.Name, result.ExitCode, result.Duration)
	}
}
