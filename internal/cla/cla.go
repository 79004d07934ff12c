package cla

import (
	"errors"
	"fmt"

	"github.com/seqforge/taskkit/internal/exec"
	"github.com/seqforge/taskkit/internal/logging"
	"github.com/seqforge/taskkit/internal/metainfo"
)

var (
	// ErrVersionNotDeclared reports a toolset whose version key is absent
	// from the file's metainfo. Raised before any process is spawned.
	ErrVersionNotDeclared = errors.New("tool version not declared in file metainfo")
	// ErrNotInstalled reports a toolset/version pair with no directory under
	// the programs tree.
	ErrNotInstalled = errors.New("toolset is not installed")
	// ErrExecutableNotFound reports a missing executable inside a resolved
	// toolset.
	ErrExecutableNotFound = errors.New("tool executable not found")
	// ErrVersionConflict reports a second resolution of a toolset at a
	// different version within one task context.
	ErrVersionConflict = errors.New("conflicting toolset versions in one task context")
)

// Context resolves tools for one task execution. It reads versions from the
// initialized file's metainfo and enforces that each toolset resolves to at
// most one version for the lifetime of the context.
type Context struct {
	meta        metainfo.Metainfo
	programsDir string
	log         *logging.TaskLog
	runner      exec.Runner

	resolved map[string]string
}

// NewContext builds a resolver over the given metainfo and programs tree.
// A nil runner defaults to local execution.
func NewContext(meta metainfo.Metainfo, programsDir string, log *logging.TaskLog, runner exec.Runner) *Context {
	if runner == nil {
		runner = exec.LocalRunner{}
	}
	if log == nil {
		log = logging.New()
	}
	return &Context{
		meta:        meta,
		programsDir: programsDir,
		log:         log,
		runner:      runner,
		resolved:    make(map[string]string),
	}
}

// Tool resolves a named executable inside a toolset whose version the file's
// metainfo declares. Each name in uses is resolved the same way and its
// directory is appended to the command search path.
func (c *Context) Tool(toolset, tool string, uses ...string) (*Tool, error) {
	ts, err := c.Toolset(toolset, uses...)
	if err != nil {
		return nil, err
	}
	return ts.Tool(tool)
}

// Toolset resolves a toolset at the version declared in metainfo.
func (c *Context) Toolset(name string, uses ...string) (*Toolset, error) {
	version, err := c.declaredVersion(name)
	if err != nil {
		return nil, err
	}
	return c.ToolsetAt(name, version, uses...)
}

// ToolsetAt resolves a toolset at an explicit version. Callers holding a
// version from somewhere other than metainfo use this form; the one-version
// invariant still applies.
func (c *Context) ToolsetAt(name, version string, uses ...string) (*Toolset, error) {
	ts, err := c.resolve(name, version)
	if err != nil {
		return nil, err
	}
	for _, aux := range append(append([]string(nil), ts.manifest.Uses...), uses...) {
		auxVersion, err := c.declaredVersion(aux)
		if err != nil {
			return nil, err
		}
		auxSet, err := c.resolve(aux, auxVersion)
		if err != nil {
			return nil, err
		}
		ts.pathExtras = append(ts.pathExtras, auxSet.binDir)
	}
	return ts, nil
}

// ArgumentString returns the free-form tool arguments declared in metainfo,
// or "" when absent.
func (c *Context) ArgumentString() string {
	s, _ := c.meta.FirstString(metainfo.KeyToolArguments)
	return s
}

// ArgumentList returns every declared tool argument string.
func (c *Context) ArgumentList() []string {
	return c.meta.Strings(metainfo.KeyToolArguments)
}

func (c *Context) declaredVersion(toolset string) (string, error) {
	version, ok := c.meta.FirstString(metainfo.ToolVersionKey(toolset))
	if !ok || version == "" {
		return "", fmt.Errorf("toolset %q: %w", toolset, ErrVersionNotDeclared)
	}
	return version, nil
}

func (c *Context) resolve(name, version string) (*Toolset, error) {
	if prior, ok := c.resolved[name]; ok && prior != version {
		return nil, fmt.Errorf("toolset %q resolved at %q and %q: %w", name, prior, version, ErrVersionConflict)
	}
	ts, err := newToolset(c, name, version)
	if err != nil {
		return nil, err
	}
	c.resolved[name] = version
	return ts, nil
}
