// Package collector reads the suspect-test list and translates each
// dot-delimited identifier (as reported by CI systems such as Jenkins) into
// a pytest-native test spec by probing the filesystem for the module
// boundary.
package collector

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/pyshake/pyshake/reporting"
)

// SpecNotFoundError reports a test identifier whose module path could not be
// located on disk under any prefix split. It aborts the whole collection
// step, not just the one test.
type SpecNotFoundError struct {
	Parts []string
}

func (e *SpecNotFoundError) Error() string {
	return fmt.Sprintf("test module not found: %s", e.Path())
}

// Path returns the original dot-delimited identifier.
func (e *SpecNotFoundError) Path() string {
	return strings.Join(e.Parts, ".")
}

// Collector turns a test-list file into runnable pytest specs.
type Collector struct {
	testsFile string
	workDir   string
	log       log.Logger
	reporter  reporting.Reporter
}

// Config holds configuration for creating a new collector.
type Config struct {
	TestsFile string
	WorkDir   string // Directory the module paths are probed under; "" means the current directory
	Log       log.Logger
	Reporter  reporting.Reporter
}

// New creates a collector for the given test-list file.
func New(cfg Config) (*Collector, error) {
	if cfg.TestsFile == "" {
		return nil, fmt.Errorf("tests file path is required")
	}
	if cfg.Log == nil {
		cfg.Log = log.New()
	}
	if cfg.Reporter == nil {
		cfg.Reporter = reporting.Nop()
	}
	return &Collector{
		testsFile: cfg.TestsFile,
		workDir:   cfg.WorkDir,
		log:       cfg.Log,
		reporter:  cfg.Reporter,
	}, nil
}

// Collect reads the test-list file and translates every identifier into a
// pytest spec, preserving file order. A single unresolvable identifier fails
// the whole collection.
func (c *Collector) Collect() ([]string, error) {
	c.reporter.CollectingTests(c.testsFile)
	identifiers, err := readTestList(c.testsFile)
	if err != nil {
		return nil, err
	}

	specs := make([]string, 0, len(identifiers))
	for _, identifier := range identifiers {
		spec, err := c.Translate(identifier)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	c.log.Debug("Collected tests", "file", c.testsFile, "count", len(specs))
	c.reporter.CollectedTests(specs)
	return specs, nil
}

// Translate converts one dot-delimited identifier into a pytest spec.
// The identifier is split on "." and probed against the filesystem for
// increasing prefix lengths; the first (shortest) prefix whose joined path
// names a regular .py file fixes the module boundary. The remaining parts
// become the in-module selector path, joined with "::".
//
// When the module path consumes the whole identifier the result keeps a
// trailing "::" with an empty selector. pytest accepts both forms, so the
// historical output format is preserved.
func (c *Collector) Translate(identifier string) (string, error) {
	parts := strings.Split(identifier, ".")
	for k := 1; k <= len(parts); k++ {
		if !c.moduleFileExists(parts[:k]) {
			continue
		}
		modulePath := strings.Join(parts[:k], "/") + ".py"
		testPath := strings.Join(parts[k:], "::")
		return modulePath + "::" + testPath, nil
	}
	c.log.Error("Test not found", "identifier", identifier)
	return "", &SpecNotFoundError{Parts: parts}
}

// moduleFileExists reports whether the prefix names a regular .py file under
// the collector's working directory.
func (c *Collector) moduleFileExists(prefix []string) bool {
	elems := append([]string{c.workDir}, prefix...)
	path := filepath.Join(elems...) + ".py"
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// readTestList returns the non-blank, non-comment lines of the tests file.
func readTestList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening tests file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var identifiers []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		identifiers = append(identifiers, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading tests file: %w", err)
	}
	return identifiers, nil
}
