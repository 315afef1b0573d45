package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/pyshake/pyshake/logging"
	"github.com/pyshake/pyshake/reporting"
	"github.com/pyshake/pyshake/types"
)

// CycleExecutor runs the external test runner over one cycle's active specs
// and returns the parsed per-test results. The scheduler only ever talks to
// this interface, which keeps it testable without a Python installation.
type CycleExecutor interface {
	ExecuteCycle(ctx context.Context, cycle int, specs []string, echo bool) (map[string]types.CycleResult, error)
}

// pytestExecutor invokes pytest as a child process and parses the JSON
// report it writes.
type pytestExecutor struct {
	python      string
	extraArgs   []string
	resultsPath string
	workDir     string
	env         []string // immutable snapshot, cloned per invocation
	log         log.Logger
	reporter    reporting.Reporter
	fileLogger  *logging.FileLogger
}

var _ CycleExecutor = (*pytestExecutor)(nil)

func newPytestExecutor(cfg Config) *pytestExecutor {
	return &pytestExecutor{
		python:      cfg.Python,
		extraArgs:   cfg.ExtraArgs,
		resultsPath: cfg.ResultsPath,
		workDir:     cfg.WorkDir,
		env:         os.Environ(),
		log:         cfg.Log,
		reporter:    cfg.Reporter,
		fileLogger:  cfg.FileLogger,
	}
}

// ExecuteCycle implements the CycleExecutor interface.
func (e *pytestExecutor) ExecuteCycle(ctx context.Context, cycle int, specs []string, echo bool) (map[string]types.CycleResult, error) {
	command := e.buildCommand(specs)
	e.reporter.CycleCommand(command)
	e.log.Debug("Running pytest", "command", strings.Join(command, " "), "echo", echo)

	exitCode, captured, err := e.invoke(ctx, command, echo)
	if err != nil {
		return nil, err
	}
	// pytest exits non-zero whenever any test fails; that is a result, not
	// an engine error.
	e.log.Debug("pytest exited", "code", exitCode)

	if e.fileLogger != nil {
		if err := e.fileLogger.LogCycleOutput(cycle, captured); err != nil {
			e.log.Warn("Failed to store cycle output", "cycle", cycle+1, "error", err)
		}
	}

	results, err := ParseResultsFile(e.resultsPath)
	if err != nil {
		return nil, err
	}

	if e.fileLogger != nil {
		if err := e.fileLogger.SnapshotReport(cycle, e.resultsPath); err != nil {
			e.log.Warn("Failed to snapshot cycle report", "cycle", cycle+1, "error", err)
		}
	}
	return results, nil
}

// buildCommand constructs the pytest invocation: the python executable, the
// pytest module subcommand, caller-supplied extra args verbatim, the JSON
// report flag, then every active spec.
func (e *pytestExecutor) buildCommand(specs []string) []string {
	command := []string{expandHome(e.python), "-m", "pytest"}
	command = append(command, e.extraArgs...)
	command = append(command, "--json="+e.resultsPath)
	command = append(command, specs...)
	return command
}

// invoke runs the command synchronously and returns its exit status. When
// echo is set the child inherits our stdout/stderr; otherwise output is
// captured and returned for artifact logging.
func (e *pytestExecutor) invoke(ctx context.Context, command []string, echo bool) (int, []byte, error) {
	cmd := exec.CommandContext(ctx, command[0], command[1:]...)
	cmd.Dir = e.workDir
	// Each child gets its own copy of the snapshot, so nothing it does can
	// leak into later cycles.
	cmd.Env = append([]string(nil), e.env...)

	var captured bytes.Buffer
	if echo {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &captured
		cmd.Stderr = &captured
	}

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), captured.Bytes(), nil
		}
		return -1, captured.Bytes(), fmt.Errorf("running %s: %w", command[0], err)
	}
	return 0, captured.Bytes(), nil
}

// expandHome expands a leading ~ in the runner path.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
