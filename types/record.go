package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRecordFinalized = errors.New("run record already finalized")
	ErrDuplicateSuite  = errors.New("duplicate suite name")
)

// SummaryStats is derived from a RunRecord once all suites have finished.
type SummaryStats struct {
	EndTime       time.Time `json:"end_time"`
	TotalDuration float64   `json:"total_duration"` // seconds since the record was created
	TotalSuites   int       `json:"total_suites"`
	PassedSuites  int       `json:"passed_suites"`
	FailedSuites  int       `json:"failed_suites"`
	SuccessRate   float64   `json:"success_rate"` // percent, 1 decimal
}

// RunRecord aggregates one harness invocation. Suite results keep their
// insertion order, which is the execution order.
type RunRecord struct {
	RunID     string
	StartTime time.Time
	EndTime   time.Time
	Summary   SummaryStats

	// Services holds the readiness of every probed backend. It is kept for
	// observability and does not influence which suites run.
	Services []ServiceStatus
	// Devices lists the device profile names exported to the suites.
	Devices []string

	names     []string
	results   map[string]SuiteResult
	finalized bool
}

// NewRunRecord creates an empty record started at now.
func NewRunRecord(now time.Time) *RunRecord {
	return &RunRecord{
		RunID:     uuid.New().String(),
		StartTime: now,
		results:   make(map[string]SuiteResult),
	}
}

// Add appends the result of the named suite.
func (r *RunRecord) Add(name string, result SuiteResult) error {
	if r.finalized {
		return ErrRecordFinalized
	}
	if _, exists := r.results[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateSuite, name)
	}
	r.names = append(r.names, name)
	r.results[name] = result
	return nil
}

// Names returns the suite names in execution order.
func (r *RunRecord) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Result looks up the result of the named suite.
func (r *RunRecord) Result(name string) (SuiteResult, bool) {
	res, ok := r.results[name]
	return res, ok
}

// Len returns the number of recorded suites.
func (r *RunRecord) Len() int {
	return len(r.names)
}

// Finalized reports whether Finalize has been called.
func (r *RunRecord) Finalized() bool {
	return r.finalized
}

// Finalize stamps the end time and computes the summary. It may be called once.
func (r *RunRecord) Finalize(now time.Time) error {
	if r.finalized {
		return ErrRecordFinalized
	}
	r.EndTime = now
	r.Summary = ComputeSummary(r, now)
	r.finalized = true
	return nil
}

// ComputeSummary derives the aggregate statistics of r as of now.
func ComputeSummary(r *RunRecord, now time.Time) SummaryStats {
	stats := SummaryStats{
		EndTime:       now,
		TotalDuration: RoundSeconds(now.Sub(r.StartTime)),
		TotalSuites:   len(r.names),
	}
	for _, name := range r.names {
		if r.results[name].Success {
			stats.PassedSuites++
		}
	}
	stats.FailedSuites = stats.TotalSuites - stats.PassedSuites
	stats.SuccessRate = SuccessRate(stats.PassedSuites, stats.TotalSuites)
	return stats
}

// SuccessRate returns passed/total as a percentage rounded to 1 decimal,
// or 0 when there is nothing to count.
func SuccessRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return round(float64(passed)/float64(total)*100, 1)
}

// MarshalJSON writes test_suites as an object whose keys keep execution order.
func (r *RunRecord) MarshalJSON() ([]byte, error) {
	var suites bytes.Buffer
	suites.WriteByte('{')
	for i, name := range r.names {
		if i > 0 {
			suites.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.results[name])
		if err != nil {
			return nil, err
		}
		suites.Write(key)
		suites.WriteByte(':')
		suites.Write(val)
	}
	suites.WriteByte('}')

	services := r.Services
	if services == nil {
		services = []ServiceStatus{}
	}

	return json.Marshal(struct {
		RunID      string          `json:"run_id"`
		StartTime  time.Time       `json:"start_time"`
		Services   []ServiceStatus `json:"services"`
		Devices    []string        `json:"devices,omitempty"`
		TestSuites json.RawMessage `json:"test_suites"`
		Summary    SummaryStats    `json:"summary"`
	}{
		RunID:      r.RunID,
		StartTime:  r.StartTime,
		Services:   services,
		Devices:    r.Devices,
		TestSuites: suites.Bytes(),
		Summary:    r.Summary,
	})
}
