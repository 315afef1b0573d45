package types

import (
	"fmt"
	"time"
)

// Well-known pytest outcome labels after normalization. The engine does not
// restrict outcomes to this set; the external runner may report any label.
const (
	OutcomePassed  = "PASSED"
	OutcomeFailed  = "FAILED"
	OutcomeSkipped = "SKIPPED"
	OutcomeError   = "ERROR"

	// OutcomeNotRun is the sentinel for a test that never produced a result.
	OutcomeNotRun = "NOT RUN"
)

// CycleResult captures one test's outcome from a single cycle.
type CycleResult struct {
	Outcome  string
	Duration time.Duration
}

// TestHistory is the ordered sequence of cycle results for one test,
// append-only, in chronological cycle order. Aggregate properties are
// computed on demand.
type TestHistory struct {
	cycles []CycleResult
}

// Append records the result of one more cycle.
func (h *TestHistory) Append(result CycleResult) {
	h.cycles = append(h.cycles, result)
}

// Cycles returns the recorded per-cycle results in chronological order.
func (h *TestHistory) Cycles() []CycleResult {
	return h.cycles
}

// Len returns the number of cycles recorded for this test.
func (h *TestHistory) Len() int {
	return len(h.cycles)
}

// Latest returns the most recent cycle result, if any.
func (h *TestHistory) Latest() (CycleResult, bool) {
	if len(h.cycles) == 0 {
		return CycleResult{}, false
	}
	return h.cycles[len(h.cycles)-1], true
}

// OverallOutcome classifies the whole history: "NOT RUN" when empty, the
// sole outcome when every cycle agreed, otherwise "MIXED (P%)" where P is
// the consistency percentage.
func (h *TestHistory) OverallOutcome() string {
	if len(h.cycles) == 0 {
		return OutcomeNotRun
	}
	first := h.cycles[0].Outcome
	for _, c := range h.cycles[1:] {
		if c.Outcome != first {
			return fmt.Sprintf("MIXED (%.0f%%)", 100*h.Consistency())
		}
	}
	return first
}

// Consistency is the frequency of the most common outcome as a fraction of
// all recorded cycles, 0 for an empty history.
func (h *TestHistory) Consistency() float64 {
	if len(h.cycles) == 0 {
		return 0
	}
	counts := make(map[string]int)
	top := 0
	for _, c := range h.cycles {
		counts[c.Outcome]++
		if counts[c.Outcome] > top {
			top = counts[c.Outcome]
		}
	}
	return float64(top) / float64(len(h.cycles))
}

// TotalDuration sums the durations of all recorded cycles.
func (h *TestHistory) TotalDuration() time.Duration {
	var total time.Duration
	for _, c := range h.cycles {
		total += c.Duration
	}
	return total
}

// MeanDuration is the per-cycle average, 0 for an empty history.
func (h *TestHistory) MeanDuration() time.Duration {
	if len(h.cycles) == 0 {
		return 0
	}
	return h.TotalDuration() / time.Duration(len(h.cycles))
}

// ResultsStore maps a pytest test spec to its accumulated history. One entry
// exists per collected test from the start of the run; entries are only ever
// appended to, never removed.
type ResultsStore map[string]*TestHistory

// NewResultsStore seeds a store with an empty history per collected spec.
func NewResultsStore(specs []string) ResultsStore {
	store := make(ResultsStore, len(specs))
	for _, spec := range specs {
		store[spec] = &TestHistory{}
	}
	return store
}

// History returns the history for a spec, creating it if the spec was not
// part of the original seed.
func (s ResultsStore) History(spec string) *TestHistory {
	h, ok := s[spec]
	if !ok {
		h = &TestHistory{}
		s[spec] = h
	}
	return h
}

// Append records a cycle result against a spec's history.
func (s ResultsStore) Append(spec string, result CycleResult) {
	s.History(spec).Append(result)
}
