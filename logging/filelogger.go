// Package logging keeps the complete output of every suite on disk, next to
// the reports that only carry output tails.
package logging

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/saythanks/mobile-harness/types"
)

const (
	FailedDirName   = "failed"
	AllLogsFilename = "all.log"
)

// FileLogger writes suite output under <reports>/logs:
//
//	logs/<slug>.log         complete output of one suite
//	logs/failed/<slug>.log  copy for every failed suite
//	logs/all.log            one entry per finished suite
type FileLogger struct {
	logDir      string
	failedDir   string
	allLogsFile string
	allLogs     *AsyncFile
	now         func() time.Time

	mu     sync.Mutex
	closed bool
}

// AsyncFile provides non-blocking file writing capabilities
type AsyncFile struct {
	file    *os.File
	queue   chan []byte
	wg      sync.WaitGroup
	mu      sync.Mutex
	stopped bool
}

// NewAsyncFile creates a new AsyncFile for non-blocking writes
func NewAsyncFile(path string) (*AsyncFile, error) {
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file %s: %w", path, err)
	}

	af := &AsyncFile{
		file:  file,
		queue: make(chan []byte, 100),
	}
	af.wg.Add(1)
	go af.processQueue()

	return af, nil
}

// Write queues data to be written asynchronously
func (af *AsyncFile) Write(data []byte) error {
	af.mu.Lock()
	defer af.mu.Unlock()

	if af.stopped {
		return fmt.Errorf("async file is closed")
	}

	dataCopy := make([]byte, len(data))
	copy(dataCopy, data)
	af.queue <- dataCopy
	return nil
}

func (af *AsyncFile) processQueue() {
	defer af.wg.Done()

	for data := range af.queue {
		if _, err := af.file.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing to file: %v\n", err)
		}
	}
}

// Close stops the async writer and closes the file
func (af *AsyncFile) Close() error {
	af.mu.Lock()
	if !af.stopped {
		af.stopped = true
		close(af.queue)
	}
	af.mu.Unlock()

	af.wg.Wait()
	return af.file.Close()
}

// NewFileLogger creates a FileLogger below reportsDir. Nothing is written
// until the first suite starts, so an aborted run leaves no logs behind.
func NewFileLogger(reportsDir string) (*FileLogger, error) {
	if reportsDir == "" {
		return nil, fmt.Errorf("reportsDir cannot be empty")
	}

	logDir := filepath.Join(reportsDir, types.LogDir)
	return &FileLogger{
		logDir:      logDir,
		failedDir:   filepath.Join(logDir, FailedDirName),
		allLogsFile: filepath.Join(logDir, AllLogsFilename),
		now:         time.Now,
	}, nil
}

// ensureFiles creates the log directories and all.log. Callers hold mu.
func (l *FileLogger) ensureFiles() error {
	if l.closed {
		return fmt.Errorf("file logger is closed")
	}
	if l.allLogs != nil {
		return nil
	}
	for _, dir := range []string{l.logDir, l.failedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	allLogs, err := NewAsyncFile(l.allLogsFile)
	if err != nil {
		return err
	}
	l.allLogs = allLogs
	return nil
}

// Open creates the suite's output log. Stdout and stderr of the suite share
// the returned writer.
func (l *FileLogger) Open(suite types.Suite) (io.WriteCloser, error) {
	l.mu.Lock()
	err := l.ensureFiles()
	l.mu.Unlock()
	if err != nil {
		return nil, err
	}

	path := l.SuiteLogFile(suite)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create suite log %s: %w", path, err)
	}
	return &suiteLog{file: f}, nil
}

// SuiteLogFile returns the path of the suite's output log.
func (l *FileLogger) SuiteLogFile(suite types.Suite) string {
	return filepath.Join(l.logDir, filepath.Base(suite.LogName()))
}

// FailedLogFile returns the path of the suite's copy in the failed directory.
func (l *FileLogger) FailedLogFile(suite types.Suite) string {
	return filepath.Join(l.failedDir, filepath.Base(suite.LogName()))
}

// GetAllLogsFile returns the path of the combined log.
func (l *FileLogger) GetAllLogsFile() string {
	return l.allLogsFile
}

func (l *FileLogger) StateChanged(state types.RunState) {
	if state.Terminal() {
		_ = l.Close()
	}
}

// SuiteStarted removes logs a previous run left for the suite, so a suite
// that never produces output this run is not linked to old output.
func (l *FileLogger) SuiteStarted(suite types.Suite) {
	for _, path := range []string{l.SuiteLogFile(suite), l.FailedLogFile(suite)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Error removing stale log %s: %v\n", path, err)
		}
	}
}

// SuiteFinished appends the suite's entry to all.log and keeps a copy of the
// output of failed suites.
func (l *FileLogger) SuiteFinished(suite types.Suite, result types.SuiteResult) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureFiles(); err != nil {
		return
	}

	if !result.Success {
		if err := l.writeFailedLog(suite, result); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing failed log for %s: %v\n", suite.Name, err)
		}
	}
	_ = l.allLogs.Write([]byte(l.formatEntry(suite, result)))
}

func (l *FileLogger) writeFailedLog(suite types.Suite, result types.SuiteResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Suite: %s\n", suite.Name)
	fmt.Fprintf(&b, "Path: %s\n", suite.Path)
	fmt.Fprintf(&b, "Exit Code: %d\n", result.ExitCode)
	if result.Error != "" {
		fmt.Fprintf(&b, "Error: %s\n", result.Error)
	}
	b.WriteString("\n")

	if output, err := os.ReadFile(l.SuiteLogFile(suite)); err == nil {
		b.Write(output)
	}
	return os.WriteFile(l.FailedLogFile(suite), []byte(b.String()), 0644)
}

func (l *FileLogger) formatEntry(suite types.Suite, result types.SuiteResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== %s [%s] ===\n", suite.Name, l.now().Format(time.RFC3339))
	fmt.Fprintf(&b, "Path:      %s\n", suite.Path)
	fmt.Fprintf(&b, "Status:    %s\n", strings.ToUpper(string(result.Status())))
	fmt.Fprintf(&b, "Duration:  %.2fs\n", result.Duration)
	fmt.Fprintf(&b, "Exit Code: %d\n", result.ExitCode)
	if result.Error != "" {
		fmt.Fprintf(&b, "Error:     %s\n", result.Error)
	}
	if result.Stdout != "" {
		b.WriteString("--- stdout (tail) ---\n")
		b.WriteString(indentText(stripansi.Strip(result.Stdout), "  "))
	}
	if result.Stderr != "" {
		b.WriteString("--- stderr (tail) ---\n")
		b.WriteString(indentText(stripansi.Strip(result.Stderr), "  "))
	}
	b.WriteString("\n")
	return b.String()
}

// Close flushes all.log. Entries for suites finishing afterwards are dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if l.allLogs == nil {
		return nil
	}
	return l.allLogs.Close()
}

func indentText(text, indent string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n") + "\n"
}

// suiteLog serializes writes from the stdout and stderr copiers.
type suiteLog struct {
	mu   sync.Mutex
	file *os.File
}

func (s *suiteLog) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Write(p)
}

func (s *suiteLog) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
