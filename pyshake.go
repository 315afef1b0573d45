// Package pyshake characterizes flaky pytest tests: it runs a suspect list
// of tests through repeated cycles and reports which fail reliably, pass
// reliably, or flap, with timing statistics.
package pyshake

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pyshake/pyshake/collector"
	"github.com/pyshake/pyshake/logging"
	"github.com/pyshake/pyshake/reporting"
	"github.com/pyshake/pyshake/runner"
	"github.com/pyshake/pyshake/service"
)

// Shaker wires the collector, cycle runner and reporter together for one
// invocation. Nothing persists across runs; every run starts from an empty
// result set.
type Shaker struct {
	cfg      *Config
	version  string
	reporter *reporting.ConsoleReporter
}

// New creates a Shaker from a validated config.
func New(cfg *Config, version string) (*Shaker, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	reporter := reporting.NewConsole(reporting.ConsoleConfig{
		Out:             os.Stdout,
		RequestedCycles: cfg.RequestedCycles,
		FailureFocus:    cfg.FailureFocus,
		CycleDetail:     cfg.ReportCycles,
		Debug:           cfg.Debug,
	})
	return &Shaker{
		cfg:      cfg,
		version:  version,
		reporter: reporter,
	}, nil
}

// Run executes the whole flow: collect and translate the suspect tests, run
// the requested cycles, then render the flakiness summary. Collection errors
// and results-file errors are fatal and surface with their own types so the
// caller can map them to exit codes.
func (s *Shaker) Run(ctx context.Context) error {
	start := time.Now()
	s.cfg.Log.Debug("Starting pyshake",
		"version", s.version,
		"testsFile", s.cfg.TestsFile,
		"cycles", s.cfg.RequestedCycles,
		"failureFocus", s.cfg.FailureFocus,
		"echo", s.cfg.Echo)

	resultsPath, cleanup, err := s.resultsFile()
	if err != nil {
		return NewRuntimeError(err)
	}
	defer cleanup()

	if s.cfg.MonitorAddr != "" {
		monitor := service.NewMonitor(s.cfg.MonitorAddr, s.cfg.Log)
		monitor.Start()
		defer func() {
			if err := monitor.Shutdown(context.Background()); err != nil {
				s.cfg.Log.Warn("Monitor shutdown failed", "error", err)
			}
		}()
	}

	var fileLogger *logging.FileLogger
	if s.cfg.LogDir != "" {
		fileLogger, err = logging.NewFileLogger(s.cfg.LogDir, uuid.New().String())
		if err != nil {
			return NewRuntimeError(err)
		}
		s.cfg.Log.Info("Storing run artifacts", "dir", fileLogger.Dir())
	}

	col, err := collector.New(collector.Config{
		TestsFile: s.cfg.TestsFile,
		WorkDir:   s.cfg.WorkDir,
		Log:       s.cfg.Log,
		Reporter:  s.reporter,
	})
	if err != nil {
		return NewRuntimeError(err)
	}
	specs, err := col.Collect()
	if err != nil {
		return err
	}
	if len(specs) == 0 {
		s.reporter.NoTestsFound()
		return nil
	}

	cycleRunner, err := runner.NewCycleRunner(runner.Config{
		RequestedCycles: s.cfg.RequestedCycles,
		FailureFocus:    s.cfg.FailureFocus,
		Echo:            s.cfg.Echo,
		Python:          s.cfg.Python,
		ExtraArgs:       s.cfg.ExtraArgs,
		ResultsPath:     resultsPath,
		WorkDir:         s.cfg.WorkDir,
		Log:             s.cfg.Log,
		Reporter:        s.reporter,
		FileLogger:      fileLogger,
	})
	if err != nil {
		return NewRuntimeError(err)
	}

	results, actualCycles, err := cycleRunner.RunTests(ctx, specs)
	if err != nil {
		return err
	}

	s.reporter.Summary(specs, results, actualCycles, time.Since(start))
	s.cfg.Log.Info("Run completed",
		"run_id", cycleRunner.RunID(),
		"cycles", actualCycles,
		"elapsed", time.Since(start))
	return nil
}

// resultsFile returns the path pytest should write its report to and a
// cleanup function. A caller-supplied path is kept after the run; otherwise
// a temp file is allocated and removed however the run ends.
func (s *Shaker) resultsFile() (string, func(), error) {
	if s.cfg.ResultsPath != "" {
		return s.cfg.ResultsPath, func() {}, nil
	}
	tmp, err := os.CreateTemp("", "pyshake-report-*.json")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp results file: %w", err)
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		return "", nil, fmt.Errorf("closing temp results file: %w", err)
	}
	return path, func() { _ = os.Remove(path) }, nil
}
