package reporting

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/log"

	"github.com/saythanks/mobile-harness/metrics"
	"github.com/saythanks/mobile-harness/types"
)

// ErrRecordNotFinalized is returned when a record is reported before its
// summary has been computed.
var ErrRecordNotFinalized = errors.New("run record is not finalized")

// Config configures a Reporter.
type Config struct {
	Log        log.Logger
	ReportsDir string
	Console    *Console
}

// Reporter writes every report artifact for a finalized run.
type Reporter struct {
	log        log.Logger
	reportsDir string
	console    *Console
	html       *HTMLSink
}

// NewReporter creates a Reporter writing into cfg.ReportsDir.
func NewReporter(cfg Config) (*Reporter, error) {
	if cfg.ReportsDir == "" {
		return nil, errors.New("reports directory is required")
	}
	if cfg.Console == nil {
		return nil, errors.New("console is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.Root()
	}

	html, err := NewHTMLSink(cfg.ReportsDir)
	if err != nil {
		return nil, err
	}
	return &Reporter{
		log:        cfg.Log,
		reportsDir: cfg.ReportsDir,
		console:    cfg.Console,
		html:       html,
	}, nil
}

// Report writes test_summary.json, then summary_report.html, then prints the
// console summary and saves the plain-text transcript to console.log.
func (r *Reporter) Report(record *types.RunRecord) error {
	if !record.Finalized() {
		return ErrRecordNotFinalized
	}
	if err := os.MkdirAll(r.reportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports directory %s: %w", r.reportsDir, err)
	}

	jsonPath, err := WriteJSONSummary(r.reportsDir, record)
	if err != nil {
		return err
	}
	r.log.Debug("Wrote JSON summary", "path", jsonPath)

	htmlPath, err := r.html.Write(record)
	if err != nil {
		return err
	}
	r.log.Debug("Wrote HTML summary", "path", htmlPath)

	r.console.PrintSummary(record)

	logPath := filepath.Join(r.reportsDir, ConsoleLogFile)
	if err := os.WriteFile(logPath, []byte(r.console.Transcript()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", logPath, err)
	}

	metrics.RecordRun(record.RunID, record.Summary)
	r.log.Info("Reports written", "dir", r.reportsDir, "json", jsonPath, "html", htmlPath)
	return nil
}
