package files

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/seqforge/taskkit/internal/bridge"
	"github.com/seqforge/taskkit/internal/compression"
)

// StorageUnit is one group of files stored together under a storage key,
// with an optional format describing the whole group.
type StorageUnit struct {
	Files  []string
	Format map[string]string
}

// NewStorageUnit groups paths into one unit. Base names must be unique
// within the unit because the backend flattens them on storage.
func NewStorageUnit(paths ...string) (StorageUnit, error) {
	u := StorageUnit{Files: paths}
	if err := u.checkBaseNames(); err != nil {
		return StorageUnit{}, err
	}
	return u, nil
}

func (u StorageUnit) checkBaseNames() error {
	seen := make(map[string]struct{}, len(u.Files))
	for _, path := range u.Files {
		base := filepath.Base(path)
		if _, dup := seen[base]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateBaseName, base)
		}
		seen[base] = struct{}{}
	}
	return nil
}

// Validate checks the unit is storable: at least one file, unique base
// names, every path present on disk.
func (u StorageUnit) Validate() error {
	if len(u.Files) == 0 {
		return ErrEmptyUnit
	}
	if err := u.checkBaseNames(); err != nil {
		return err
	}
	var missing []string
	for _, path := range u.Files {
		if _, err := os.Stat(path); err != nil {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingFiles, missing)
	}
	return nil
}

// FirstFile returns the first path in the unit, the common case for
// single-file units.
func (u StorageUnit) FirstFile() string {
	if len(u.Files) == 0 {
		return ""
	}
	return u.Files[0]
}

func (u StorageUnit) wire() bridge.StorageUnit {
	return bridge.StorageUnit{Files: u.Files, Format: u.Format}
}

func unitsFromWire(wire []bridge.StorageUnit) []StorageUnit {
	units := make([]StorageUnit, 0, len(wire))
	for _, w := range wire {
		units = append(units, StorageUnit{Files: w.Files, Format: w.Format})
	}
	return units
}

// md5sum hashes the listed files and directories in a platform-stable
// order, reading gzip and bzip2 archives decompressed so the digest matches
// across storage formats. Zip archives are hashed as-is.
func md5sum(paths []string) (string, error) {
	h := md5.New()
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return "", err
		}
		if !info.IsDir() {
			if err := hashFile(h, path); err != nil {
				return "", err
			}
			continue
		}
		var entries []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() {
				entries = append(entries, p)
			}
			return nil
		})
		if err != nil {
			return "", err
		}
		sort.Strings(entries)
		for _, p := range entries {
			if err := hashFile(h, p); err != nil {
				return "", err
			}
		}
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func hashFile(h io.Writer, path string) error {
	var (
		r   io.ReadCloser
		err error
	)
	if compression.Detect(path) == compression.Zip {
		r, err = os.Open(path)
	} else {
		r, err = compression.Open(path)
	}
	if err != nil {
		return err
	}
	defer r.Close()
	_, err = io.Copy(h, r)
	return err
}
