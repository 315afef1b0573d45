// Package runner drives repeated pytest cycles over a shrinking set of
// active tests and accumulates per-test results.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/pyshake/pyshake/logging"
	"github.com/pyshake/pyshake/metrics"
	"github.com/pyshake/pyshake/reporting"
	"github.com/pyshake/pyshake/types"
)

// EchoMode selects which cycles stream the runner's output live.
type EchoMode string

const (
	EchoNone  EchoMode = "none"
	EchoAll   EchoMode = "all"
	EchoFinal EchoMode = "final"
)

// Config holds configuration for creating a new cycle runner.
type Config struct {
	RequestedCycles int
	FailureFocus    bool // Drop a test from later cycles once it has passed
	Echo            EchoMode
	Python          string   // Path to the python executable used to run pytest
	ExtraArgs       []string // Passed through to pytest verbatim
	ResultsPath     string   // Where pytest writes its JSON report
	WorkDir         string
	Log             log.Logger
	Reporter        reporting.Reporter
	FileLogger      *logging.FileLogger
	Executor        CycleExecutor // Defaults to the pytest subprocess executor
}

// CycleRunner runs the requested number of test cycles and owns the results
// store for the duration of the run. Cycles execute strictly sequentially;
// each invocation blocks until the child runner exits.
type CycleRunner struct {
	cfg      Config
	executor CycleExecutor
	runID    string
	tracer   trace.Tracer
}

// NewCycleRunner creates a new cycle runner instance.
func NewCycleRunner(cfg Config) (*CycleRunner, error) {
	if cfg.RequestedCycles < 1 {
		return nil, fmt.Errorf("requested cycles must be positive, got %d", cfg.RequestedCycles)
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = reporting.Nop()
	}
	if cfg.Echo == "" {
		cfg.Echo = EchoNone
	}

	executor := cfg.Executor
	if executor == nil {
		if cfg.Python == "" {
			cfg.Python = "python"
		}
		if cfg.ResultsPath == "" {
			return nil, fmt.Errorf("results file path is required")
		}
		executor = newPytestExecutor(cfg)
	}

	runID := uuid.New().String()
	if cfg.FileLogger != nil {
		runID = cfg.FileLogger.RunID()
	}

	return &CycleRunner{
		cfg:      cfg,
		executor: executor,
		runID:    runID,
		tracer:   otel.Tracer("cycle runner"),
	}, nil
}

// RunID returns the identifier metrics and artifacts are labelled with.
func (r *CycleRunner) RunID() string {
	return r.runID
}

// RunTests executes up to the requested number of cycles over the given
// specs and returns the accumulated results plus the number of cycles that
// actually invoked the runner. The loop stops early once no tests remain
// active; such no-op cycles are not counted.
func (r *CycleRunner) RunTests(ctx context.Context, specs []string) (types.ResultsStore, int, error) {
	results := types.NewResultsStore(specs)
	active := append([]string(nil), specs...)
	actualCycles := 0

	r.cfg.Log.Debug("Starting test cycles",
		"run_id", r.runID,
		"requested", r.cfg.RequestedCycles,
		"tests", len(specs),
		"failureFocus", r.cfg.FailureFocus)

	for cycle := 0; cycle < r.cfg.RequestedCycles; cycle++ {
		if len(active) == 0 {
			r.cfg.Reporter.NoActiveTests()
			break
		}

		// Advisory only; nothing is scheduled off this number.
		estimate := estimateCycleTime(active, results)
		r.cfg.Reporter.CycleStarted(cycle, active, estimate)

		cycleResults, duration, err := r.runCycle(ctx, cycle, active)
		if err != nil {
			return nil, actualCycles, err
		}
		actualCycles++
		r.cfg.Reporter.CycleFinished(cycle, duration)
		metrics.RecordCycle(r.runID, len(active), duration)

		for _, spec := range active {
			result, ok := cycleResults[spec]
			if !ok {
				// The runner produced no result for this spec (it may have
				// crashed part-way); the test simply gains no history entry
				// for this cycle.
				continue
			}
			results.Append(spec, result)
			metrics.RecordTestResult(r.runID, spec, result.Outcome)
		}

		if r.cfg.FailureFocus {
			active = narrowActive(active, cycleResults)
		}
	}

	return results, actualCycles, nil
}

// runCycle executes a single cycle and times it.
func (r *CycleRunner) runCycle(ctx context.Context, cycle int, active []string) (map[string]types.CycleResult, time.Duration, error) {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("cycle %d", cycle+1))
	defer span.End()

	// "Final" is judged against the requested count. If failure focus
	// empties the active set early, the nominal final cycle never runs and
	// echo-final streams nothing at all.
	echo := r.cfg.Echo == EchoAll ||
		(r.cfg.Echo == EchoFinal && cycle == r.cfg.RequestedCycles-1)

	start := time.Now()
	cycleResults, err := r.executor.ExecuteCycle(ctx, cycle, active, echo)
	duration := time.Since(start)
	if err != nil {
		metrics.RecordErrorDetails("cycle_failed", err)
		return nil, duration, err
	}
	return cycleResults, duration, nil
}

// narrowActive keeps only the tests that are not confirmed passing: a test
// leaves the active set solely on a PASSED result. A test with no result
// this cycle is retained — absence of data is not a pass. Whether such a
// test should instead be flagged as an error state is an open question;
// retaining it matches the historical behavior.
func narrowActive(active []string, cycleResults map[string]types.CycleResult) []string {
	var next []string
	for _, spec := range active {
		result, ok := cycleResults[spec]
		if !ok || result.Outcome != types.OutcomePassed {
			next = append(next, spec)
		}
	}
	return next
}

// estimateCycleTime predicts a cycle's duration as the sum of the mean
// duration each active test has shown so far (0 for tests with no history).
func estimateCycleTime(active []string, results types.ResultsStore) time.Duration {
	var total time.Duration
	for _, spec := range active {
		total += results.History(spec).MeanDuration()
	}
	return total
}
