// Package reporting renders run progress and the final flakiness summary.
// The engine hands plain data to a Reporter at fixed points; reporters never
// influence the computation.
package reporting

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pyshake/pyshake/types"
)

// Reporter receives progress events from the collection and cycle-execution
// phases. The method set is fixed; implementations are checked at compile
// time.
type Reporter interface {
	CollectingTests(path string)
	CollectedTests(specs []string)
	NoTestsFound()
	NoActiveTests()
	CycleStarted(cycle int, active []string, estimate time.Duration)
	CycleCommand(command []string)
	CycleFinished(cycle int, duration time.Duration)
}

// nopReporter discards all events.
type nopReporter struct{}

func (nopReporter) CollectingTests(string)                    {}
func (nopReporter) CollectedTests([]string)                   {}
func (nopReporter) NoTestsFound()                             {}
func (nopReporter) NoActiveTests()                            {}
func (nopReporter) CycleStarted(int, []string, time.Duration) {}
func (nopReporter) CycleCommand([]string)                     {}
func (nopReporter) CycleFinished(int, time.Duration)          {}

// Nop returns a reporter that discards every event.
func Nop() Reporter {
	return nopReporter{}
}

// ConsoleReporter writes human-readable progress and results to a writer
// (normally stdout).
type ConsoleReporter struct {
	out             io.Writer
	requestedCycles int
	failureFocus    bool
	cycleDetail     bool
	debug           bool
}

var _ Reporter = (*ConsoleReporter)(nil)

// ConsoleConfig holds configuration for creating a console reporter.
type ConsoleConfig struct {
	Out             io.Writer
	RequestedCycles int
	FailureFocus    bool
	CycleDetail     bool // Also report each test's per-cycle outcome and timing
	Debug           bool
}

// NewConsole creates a ConsoleReporter.
func NewConsole(cfg ConsoleConfig) *ConsoleReporter {
	return &ConsoleReporter{
		out:             cfg.Out,
		requestedCycles: cfg.RequestedCycles,
		failureFocus:    cfg.FailureFocus,
		cycleDetail:     cfg.CycleDetail,
		debug:           cfg.Debug,
	}
}

func (r *ConsoleReporter) CollectingTests(path string) {
	fmt.Fprintf(r.out, "Collecting tests from %s\n", path)
}

func (r *ConsoleReporter) CollectedTests(specs []string) {
	fmt.Fprintf(r.out, "\nWill run the following %d tests:\n\n", len(specs))
	for _, spec := range specs {
		fmt.Fprintf(r.out, "  %s\n", spec)
	}
	fmt.Fprintln(r.out)
}

func (r *ConsoleReporter) NoTestsFound() {
	fmt.Fprintln(r.out, "No tests found")
}

func (r *ConsoleReporter) NoActiveTests() {
	fmt.Fprintln(r.out, "No tests to run")
}

func (r *ConsoleReporter) CycleStarted(cycle int, active []string, estimate time.Duration) {
	suffix := ""
	if estimate > 0 {
		suffix = fmt.Sprintf(", time estimate: %.2fs", estimate.Seconds())
	}
	fmt.Fprintf(r.out, "%s%d tests to run%s\n", r.cycleHeader(cycle), len(active), suffix)
}

func (r *ConsoleReporter) CycleCommand(command []string) {
	if r.debug {
		fmt.Fprintln(r.out, strings.Join(command, " "))
	}
}

func (r *ConsoleReporter) CycleFinished(cycle int, duration time.Duration) {
	indent := strings.Repeat(" ", len(r.cycleHeader(cycle)))
	fmt.Fprintf(r.out, "%s%.2fs for cycle\n", indent, duration.Seconds())
}

func (r *ConsoleReporter) cycleHeader(cycle int) string {
	return fmt.Sprintf("Test cycle %2d of %2d  --  ", cycle+1, r.requestedCycles)
}

// Summary renders the final per-test flakiness table in the original
// collection order. Under failure focus only tests whose overall outcome is
// FAILED appear; everything else was confirmed passing and is suppressed.
func (r *ConsoleReporter) Summary(specs []string, results types.ResultsStore, actualCycles int, elapsed time.Duration) {
	cycleWord := "cycles"
	if r.requestedCycles == 1 {
		cycleWord = "cycle"
	}
	fmt.Fprintf(r.out, "\nRan %d %s of tests in %.2fs\n\n", actualCycles, cycleWord, elapsed.Seconds())

	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle("Flakiness Summary")
	t.AppendHeader(table.Row{"Outcome", "Test", "Cycles", "Consistency", "Total", "Mean"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Test", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Cycles", Align: text.AlignRight},
		{Name: "Consistency", Align: text.AlignRight},
		{Name: "Total", Align: text.AlignRight},
		{Name: "Mean", Align: text.AlignRight},
	})

	anyFailed := false
	allPassed := true
	for _, spec := range specs {
		history := results.History(spec)
		overall := history.OverallOutcome()
		if overall == types.OutcomeFailed {
			anyFailed = true
		}
		if overall != types.OutcomePassed {
			allPassed = false
		}
		if r.failureFocus && overall != types.OutcomeFailed {
			continue
		}

		t.AppendRow(table.Row{
			overall,
			spec,
			history.Len(),
			fmt.Sprintf("%.0f%%", 100*history.Consistency()),
			formatDuration(history.TotalDuration()),
			formatDuration(history.MeanDuration()),
		})
		if r.cycleDetail {
			for i, cycle := range history.Cycles() {
				t.AppendRow(table.Row{
					cycle.Outcome,
					fmt.Sprintf("  cycle %d", i+1),
					"", "",
					formatDuration(cycle.Duration),
					"",
				})
			}
		}
	}

	switch {
	case anyFailed:
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	case allPassed:
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	default:
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	}
	t.Render()
}

// formatDuration formats a duration as seconds with 2 decimal places.
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
