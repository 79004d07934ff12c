// Package scripting runs task scripts in an embedded JavaScript engine.
//
// Ownership boundary:
// - interpreter header validation
// - host bindings: log, file, tools, fs
// - cancellation via engine interrupt
package scripting
