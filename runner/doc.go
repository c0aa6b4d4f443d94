// Package runner wraps the two external tools op-perfrun coordinates:
//   - BuildRunner: runs an integration test target through ninja, streaming its output
//   - ReportGenerator: runs the performance report script, either saving a baseline or
//     comparing the current measurements against it and capturing the markdown table
//
// Neither wrapper treats a non-zero exit status of the tool as an error. The status is
// reported back to the caller, which decides what to do with it. Only a failure to start
// the process is returned as an error.
package runner
