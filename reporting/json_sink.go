package reporting

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/saythanks/mobile-harness/types"
)

// WriteJSONSummary writes the machine-readable run record and returns the
// path of the written file.
func WriteJSONSummary(dir string, record *types.RunRecord) (string, error) {
	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run record: %w", err)
	}

	path := filepath.Join(dir, SummaryJSONFile)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
