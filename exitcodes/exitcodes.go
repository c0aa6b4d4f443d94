// Package exitcodes defines the standard exit codes used by op-perfrun.
package exitcodes

// Exit code constants used by op-perfrun
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): The run completed, including runs skipped for lack of a baseline
// * BuildFailure (1): Usage errors, and failed builds when --fail-on-build-error is set
// * RuntimeErr (2): Runtime errors such as a malformed report or missing tools
const (
	Success      = 0 // Run completed
	BuildFailure = 1 // Usage error or enforced build failure
	RuntimeErr   = 2 // Runtime errors
)
