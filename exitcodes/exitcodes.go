// Package exitcodes defines the standard exit codes used by pyshake.
package exitcodes

// Exit code constants used by pyshake
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): The run completed; flaky or failing tests are data, not an error
// * SpecNotFound (1): A test identifier could not be resolved to a module on disk
// * RuntimeErr (2): Runtime errors such as a missing or malformed results file
const (
	Success      = 0 // Run completed
	SpecNotFound = 1 // Test spec module resolution failed
	RuntimeErr   = 2 // Runtime errors
)
