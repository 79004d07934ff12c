// Package exec owns external process invocation.
//
// Ownership boundary:
// - the Runner interface used by command helpers
// - local execution backed by os/exec
// - remote execution over SSH for worker hosts
package exec
