package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pyshake/pyshake/types"
)

// ResultsFileError reports a missing, unreadable or malformed pytest JSON
// report. It is fatal to the run; cycles are never retried or skipped.
type ResultsFileError struct {
	Path string
	Err  error
}

func (e *ResultsFileError) Error() string {
	return fmt.Sprintf("results file %s: %v", e.Path, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *ResultsFileError) Unwrap() error {
	return e.Err
}

// reportDocument mirrors the pytest-json report shape:
// {"report": {"tests": [{"name": ..., "outcome": ..., <section>: {...}}]}}.
// Test entries are decoded loosely because section names are not fixed.
type reportDocument struct {
	Report struct {
		Tests []map[string]json.RawMessage `json:"tests"`
	} `json:"report"`
}

// ParseResultsFile decodes the runner's JSON report into a per-test result
// map. Outcomes are upper-cased; a test's duration is the sum of the
// "duration" field across every object-valued section on its entry, which
// accounts for setup/call/teardown being recorded separately.
func ParseResultsFile(path string) (map[string]types.CycleResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ResultsFileError{Path: path, Err: err}
	}

	var doc reportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &ResultsFileError{Path: path, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	results := make(map[string]types.CycleResult, len(doc.Report.Tests))
	for i, entry := range doc.Report.Tests {
		name, err := stringField(entry, "name")
		if err != nil {
			return nil, &ResultsFileError{Path: path, Err: fmt.Errorf("test entry %d: %w", i, err)}
		}
		outcome, err := stringField(entry, "outcome")
		if err != nil {
			return nil, &ResultsFileError{Path: path, Err: fmt.Errorf("test entry %d (%s): %w", i, name, err)}
		}
		duration, err := sumSectionDurations(entry)
		if err != nil {
			return nil, &ResultsFileError{Path: path, Err: fmt.Errorf("test entry %d (%s): %w", i, name, err)}
		}
		results[name] = types.CycleResult{
			Outcome:  strings.ToUpper(outcome),
			Duration: duration,
		}
	}
	return results, nil
}

// stringField extracts a required string field from a test entry.
func stringField(entry map[string]json.RawMessage, key string) (string, error) {
	raw, ok := entry[key]
	if !ok {
		return "", fmt.Errorf("missing %q field", key)
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("field %q is not a string: %w", key, err)
	}
	return value, nil
}

// sumSectionDurations totals the "duration" field over every object-valued
// field of a test entry. Sections without a duration contribute 0;
// non-object fields (name, outcome, and any scalar extras) are ignored.
func sumSectionDurations(entry map[string]json.RawMessage) (time.Duration, error) {
	var total float64
	for key, raw := range entry {
		var section map[string]json.RawMessage
		if err := json.Unmarshal(raw, &section); err != nil {
			continue // not an object, so not a timing section
		}
		rawDuration, ok := section["duration"]
		if !ok {
			continue
		}
		var seconds float64
		if err := json.Unmarshal(rawDuration, &seconds); err != nil {
			return 0, fmt.Errorf("section %q has non-numeric duration: %w", key, err)
		}
		total += seconds
	}
	return time.Duration(total * float64(time.Second)), nil
}
