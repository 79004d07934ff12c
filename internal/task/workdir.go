// Package task owns the working directory scoped to one script execution.
//
// Ownership boundary:
// - path containment inside the task directory
// - unique output naming
// - size accounting and cleanup helpers
// - output artifact postcondition checks
package task

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrOutsideWorkDir reports a path escaping the task directory.
	ErrOutsideWorkDir = errors.New("path is outside the task directory")
	// ErrArtifactMissing reports an expected output file absent after a tool
	// claimed to have completed.
	ErrArtifactMissing = errors.New("expected output artifact is missing")
)

// WorkDir is the local directory where one task stages inputs and produces
// outputs before upload.
type WorkDir struct {
	root string
}

// New creates the directory if needed and returns the handle.
func New(root string) (*WorkDir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}
	return &WorkDir{root: abs}, nil
}

func (w *WorkDir) Root() string { return w.root }

// Resolve makes a path absolute relative to the working directory and
// rejects anything that escapes it.
func (w *WorkDir) Resolve(path string) (string, error) {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(w.root, abs)
	}
	abs = filepath.Clean(abs)
	if abs != w.root && !strings.HasPrefix(abs, w.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("%q: %w", path, ErrOutsideWorkDir)
	}
	return abs, nil
}

// UniqueName returns a path for name inside the working directory that does
// not collide with an existing file. On collision a randomized sibling name
// keeping the original as suffix is returned.
func (w *WorkDir) UniqueName(name string) (string, error) {
	path, err := w.Resolve(name)
	if err != nil {
		return "", err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return path, nil
	}
	f, err := os.CreateTemp(filepath.Dir(path), "*_"+filepath.Base(path))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.Name(), nil
}

// EnsureArtifact checks the postcondition that a tool actually produced the
// file it was asked for.
func (w *WorkDir) EnsureArtifact(path string) error {
	abs, err := w.Resolve(path)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("%q: %w", path, ErrArtifactMissing)
	}
	if info.IsDir() {
		return fmt.Errorf("%q is a directory: %w", path, ErrArtifactMissing)
	}
	return nil
}

// Size returns the byte size of a file, or the recursive total for a
// directory.
func Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return info.Size(), nil
	}
	var total int64
	err = filepath.WalkDir(path, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return err
		}
		total += fi.Size()
		return nil
	})
	return total, err
}

// Remove deletes a file, symlink, or directory tree. Missing paths are not
// an error.
func Remove(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}
