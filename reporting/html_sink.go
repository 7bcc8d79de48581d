package reporting

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/saythanks/mobile-harness/types"
)

// HTMLSink renders the human-readable run summary page.
type HTMLSink struct {
	tmpl    *template.Template
	baseDir string
}

// NewHTMLSink creates an HTMLSink that writes into baseDir.
func NewHTMLSink(baseDir string) (*HTMLSink, error) {
	tmpl, err := GetHTMLTemplate(SummaryTemplateName)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTML sink: %w", err)
	}
	return &HTMLSink{tmpl: tmpl, baseDir: baseDir}, nil
}

// Render executes the summary template for the record.
func (s *HTMLSink) Render(record *types.RunRecord) ([]byte, error) {
	data := BuildReportData(record)
	for i := range data.Suites {
		logName := types.Suite{Name: data.Suites[i].Name}.LogName()
		if _, err := os.Stat(filepath.Join(s.baseDir, logName)); err == nil {
			data.Suites[i].LogLink = logName
		}
	}

	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, SummaryTemplateName, data); err != nil {
		return nil, fmt.Errorf("failed to execute summary template: %w", err)
	}
	return buf.Bytes(), nil
}

// Write renders the summary page to summary_report.html and returns its path.
func (s *HTMLSink) Write(record *types.RunRecord) (string, error) {
	content, err := s.Render(record)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.baseDir, SummaryHTMLFile)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
