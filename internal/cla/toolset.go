package cla

import (
	"fmt"
	"os"
	"path/filepath"
)

// Toolset is a named, versioned bundle of executables installed under the
// programs tree at <programs>/<name>/<version>.
type Toolset struct {
	ctx      *Context
	name     string
	version  string
	dir      string
	binDir   string
	manifest Manifest

	// pathExtras are prepended to PATH for every command built from this
	// toolset: the toolset's own bin directory first, auxiliary toolsets in
	// declaration order after it.
	pathExtras []string
}

func newToolset(ctx *Context, name, version string) (*Toolset, error) {
	dir := filepath.Join(ctx.programsDir, name, version)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("toolset %q version %q: %w", name, version, ErrNotInstalled)
	}

	binDir := dir
	if withBin := filepath.Join(dir, "bin"); isDir(withBin) {
		binDir = withBin
	}

	manifest, err := loadManifest(dir)
	if err != nil {
		return nil, fmt.Errorf("toolset %q version %q: %w", name, version, err)
	}

	return &Toolset{
		ctx:        ctx,
		name:       name,
		version:    version,
		dir:        dir,
		binDir:     binDir,
		manifest:   manifest,
		pathExtras: []string{binDir},
	}, nil
}

func (t *Toolset) Name() string    { return t.name }
func (t *Toolset) Version() string { return t.version }

// Dir returns the directory holding the toolset's executables, for callers
// that spawn processes through an exec.Runner themselves and inspect exit
// codes on their own.
func (t *Toolset) Dir() string { return t.binDir }

// Tool binds a named executable in this toolset. The executable must exist
// at resolve time.
func (t *Toolset) Tool(name string) (*Tool, error) {
	if len(t.manifest.Executables) > 0 && !t.manifest.declares(name) {
		return nil, fmt.Errorf("executable %q not declared by toolset %q version %q: %w",
			name, t.name, t.version, ErrExecutableNotFound)
	}
	path := filepath.Join(t.binDir, name)
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		return nil, fmt.Errorf("executable %q missing in toolset %q version %q: %w",
			name, t.name, t.version, ErrExecutableNotFound)
	}
	return &Tool{toolset: t, name: name, path: path}, nil
}

// Tool is a single resolved executable.
type Tool struct {
	toolset *Toolset
	name    string
	path    string
}

func (t *Tool) Name() string    { return t.name }
func (t *Tool) Path() string    { return t.path }
func (t *Tool) Version() string { return t.toolset.version }

// Command binds an argument list to the resolved executable. The returned
// command is immutable; args are copied.
func (t *Tool) Command(args ...string) *Command {
	return &Command{
		tool: t,
		args: append([]string(nil), args...),
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
