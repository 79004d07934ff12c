// Package cla resolves versioned command-line applications and runs them.
//
// Ownership boundary:
// - tool version lookup in file metainfo
// - toolset directory resolution under the programs tree
// - command construction, foreground runs, and output capture
// - the at-most-one-version invariant per task context
package cla
