// Package logging stores per-run artifacts on disk: the captured pytest
// output of each cycle and a snapshot of each cycle's JSON report.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/acarl005/stripansi"
)

// RunDirectoryPrefix is the standardized prefix for run directories.
const RunDirectoryPrefix = "run-"

// FileLogger writes cycle artifacts under <baseDir>/run-<runID>/.
type FileLogger struct {
	baseDir string
	logDir  string
	runID   string
}

// NewFileLogger creates the run directory and returns a logger for it.
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
	}

	return &FileLogger{
		baseDir: baseDir,
		logDir:  logDir,
		runID:   runID,
	}, nil
}

// RunID returns the run identifier this logger was created for.
func (l *FileLogger) RunID() string {
	return l.runID
}

// Dir returns the directory artifacts are written to.
func (l *FileLogger) Dir() string {
	return l.logDir
}

// LogCycleOutput stores the captured runner output for one cycle. ANSI
// escape sequences are stripped so the files are grep-friendly.
func (l *FileLogger) LogCycleOutput(cycle int, output []byte) error {
	if len(output) == 0 {
		return nil
	}
	clean := stripansi.Strip(string(output))
	path := filepath.Join(l.logDir, fmt.Sprintf("cycle-%02d.out.log", cycle+1))
	if err := os.WriteFile(path, []byte(clean), 0644); err != nil {
		return fmt.Errorf("failed to write cycle output %s: %w", path, err)
	}
	return nil
}

// SnapshotReport copies the runner's JSON report for one cycle into the run
// directory, so earlier cycles survive the runner overwriting its report
// file on the next cycle.
func (l *FileLogger) SnapshotReport(cycle int, reportPath string) error {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return fmt.Errorf("failed to read report %s: %w", reportPath, err)
	}
	path := filepath.Join(l.logDir, fmt.Sprintf("cycle-%02d.report.json", cycle+1))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report snapshot %s: %w", path, err)
	}
	return nil
}
