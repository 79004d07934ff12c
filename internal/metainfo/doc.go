// Package metainfo owns the key-value metadata record attached to a
// platform-managed file.
//
// Ownership boundary:
// - the closed set of typed metainfo values and their JSON wire shape
// - reserved key names, including the tool.version namespace
// - external link scheme validation
package metainfo
