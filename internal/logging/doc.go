// Package logging owns the task log.
//
// Ownership boundary:
// - the two task streams: info (stdout) and warning (stderr)
// - UTC timestamp formatting shared by both streams
// - env-driven level and formatting overrides
package logging
