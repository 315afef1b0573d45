package reporting

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pyshake/pyshake/types"
)

func newTestReporter(cfg ConsoleConfig) (*ConsoleReporter, *bytes.Buffer) {
	var buf bytes.Buffer
	cfg.Out = &buf
	return NewConsole(cfg), &buf
}

func seedStore(specs []string, outcomes map[string][]types.CycleResult) types.ResultsStore {
	store := types.NewResultsStore(specs)
	for spec, results := range outcomes {
		for _, result := range results {
			store.Append(spec, result)
		}
	}
	return store
}

func TestConsoleReporter_Progress(t *testing.T) {
	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 10})

	r.CollectingTests("suspects.txt")
	assert.Contains(t, buf.String(), "Collecting tests from suspects.txt")
	buf.Reset()

	r.CollectedTests([]string{"tests/test_a.py::test_x", "tests/test_b.py::test_y"})
	out := buf.String()
	assert.Contains(t, out, "Will run the following 2 tests:")
	assert.Contains(t, out, "  tests/test_a.py::test_x\n")
	buf.Reset()

	r.CycleStarted(0, []string{"tests/test_a.py::test_x"}, 0)
	assert.Contains(t, buf.String(), "Test cycle  1 of 10  --  1 tests to run")
	assert.NotContains(t, buf.String(), "time estimate", "no estimate before any history exists")
	buf.Reset()

	r.CycleStarted(1, []string{"tests/test_a.py::test_x"}, 2500*time.Millisecond)
	assert.Contains(t, buf.String(), "time estimate: 2.50s")
	buf.Reset()

	r.CycleFinished(1, 3*time.Second)
	assert.Contains(t, buf.String(), "3.00s for cycle")
	buf.Reset()

	r.NoActiveTests()
	assert.Contains(t, buf.String(), "No tests to run")
}

func TestConsoleReporter_CycleCommandOnlyInDebug(t *testing.T) {
	command := []string{"python", "-m", "pytest", "tests/test_a.py::test_x"}

	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 1})
	r.CycleCommand(command)
	assert.Empty(t, buf.String())

	r, buf = newTestReporter(ConsoleConfig{RequestedCycles: 1, Debug: true})
	r.CycleCommand(command)
	assert.Contains(t, buf.String(), "python -m pytest tests/test_a.py::test_x")
}

func TestSummary(t *testing.T) {
	specs := []string{"tests/test_a.py::test_x", "tests/test_b.py::test_y"}
	store := seedStore(specs, map[string][]types.CycleResult{
		specs[0]: {
			{Outcome: types.OutcomePassed, Duration: time.Second},
			{Outcome: types.OutcomeFailed, Duration: 3 * time.Second},
		},
		specs[1]: {
			{Outcome: types.OutcomePassed, Duration: time.Second},
			{Outcome: types.OutcomePassed, Duration: time.Second},
		},
	})

	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 2})
	r.Summary(specs, store, 2, 10*time.Second)

	out := buf.String()
	assert.Contains(t, out, "Ran 2 cycles of tests in 10.00s")
	assert.Contains(t, out, "Flakiness Summary")
	assert.Contains(t, out, "MIXED (50%)")
	assert.Contains(t, out, specs[0])
	assert.Contains(t, out, specs[1])
	assert.Contains(t, out, "4.00s", "flapping test total duration")
	assert.Contains(t, out, "2.00s", "flapping test mean duration")
}

func TestSummary_SingleCycleWording(t *testing.T) {
	specs := []string{"tests/test_a.py::test_x"}
	store := seedStore(specs, map[string][]types.CycleResult{
		specs[0]: {{Outcome: types.OutcomePassed, Duration: time.Second}},
	})

	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 1})
	r.Summary(specs, store, 1, time.Second)
	assert.Contains(t, buf.String(), "Ran 1 cycle of tests in")
}

func TestSummary_FailureFocusSuppressesNonFailures(t *testing.T) {
	specs := []string{
		"tests/test_a.py::test_fails",
		"tests/test_a.py::test_passes",
		"tests/test_a.py::test_flaps",
		"tests/test_a.py::test_never_ran",
	}
	store := seedStore(specs, map[string][]types.CycleResult{
		specs[0]: {
			{Outcome: types.OutcomeFailed, Duration: time.Second},
			{Outcome: types.OutcomeFailed, Duration: time.Second},
		},
		specs[1]: {{Outcome: types.OutcomePassed, Duration: time.Second}},
		specs[2]: {
			{Outcome: types.OutcomeFailed, Duration: time.Second},
			{Outcome: types.OutcomePassed, Duration: time.Second},
		},
	})

	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 2, FailureFocus: true})
	r.Summary(specs, store, 2, 5*time.Second)

	out := buf.String()
	assert.Contains(t, out, "test_fails")
	assert.NotContains(t, out, "test_passes")
	assert.NotContains(t, out, "test_flaps", "a flapper is not a confirmed failure")
	assert.NotContains(t, out, "test_never_ran")
}

func TestSummary_NotRunAppearsWithoutFailureFocus(t *testing.T) {
	specs := []string{"tests/test_a.py::test_ghost"}
	store := types.NewResultsStore(specs)

	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 3})
	r.Summary(specs, store, 3, time.Second)

	out := buf.String()
	assert.Contains(t, out, types.OutcomeNotRun)
	assert.Contains(t, out, "0%", "no results means zero consistency")
}

func TestSummary_CycleDetail(t *testing.T) {
	specs := []string{"tests/test_a.py::test_x"}
	store := seedStore(specs, map[string][]types.CycleResult{
		specs[0]: {
			{Outcome: types.OutcomeFailed, Duration: 1500 * time.Millisecond},
			{Outcome: types.OutcomePassed, Duration: 500 * time.Millisecond},
		},
	})

	r, buf := newTestReporter(ConsoleConfig{RequestedCycles: 2, CycleDetail: true})
	r.Summary(specs, store, 2, 2*time.Second)

	out := buf.String()
	assert.Contains(t, out, "cycle 1")
	assert.Contains(t, out, "cycle 2")
	assert.Contains(t, out, "1.50s")
	assert.Contains(t, out, "0.50s")

	// Without the flag the per-cycle rows are absent.
	r, buf = newTestReporter(ConsoleConfig{RequestedCycles: 2})
	r.Summary(specs, store, 2, 2*time.Second)
	assert.NotContains(t, buf.String(), "cycle 1")
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0.00s", formatDuration(0))
	assert.Equal(t, "1.50s", formatDuration(1500*time.Millisecond))
	assert.Equal(t, "90.00s", formatDuration(90*time.Second))
}

func TestNopReporterImplementsReporter(t *testing.T) {
	var r Reporter = Nop()
	require.NotNil(t, r)
	// All events are discarded without panicking.
	r.CollectingTests("x")
	r.CollectedTests(nil)
	r.NoTestsFound()
	r.NoActiveTests()
	r.CycleStarted(0, nil, 0)
	r.CycleCommand(nil)
	r.CycleFinished(0, 0)
}
