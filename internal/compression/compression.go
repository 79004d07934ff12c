// Package compression detects and unwraps the archive formats the platform
// stores biological data in.
//
// Ownership boundary:
// - compression kind detection by extension and magic bytes
// - streaming readers for gzip and bzip2
// - whole-file gzip/decompress helpers used before PUT and after GET
package compression

import (
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind names a supported compression.
type Kind string

const (
	None  Kind = "uncompressed"
	Gzip  Kind = "gzip"
	Bzip2 Kind = "bzip2"
	Zip   Kind = "zip"
)

var (
	// ErrMixedCompression reports a file group mixing compressions.
	ErrMixedCompression = errors.New("all files must have the same compression")
	// ErrUnsupported reports an operation the kind cannot serve.
	ErrUnsupported = errors.New("compression not supported for this operation")
)

// Detect returns the compression of a file, judged by extension first and by
// magic bytes when the extension says nothing. ".bgz" is gzip under a
// different name; backends use it for tabix-indexed data.
func Detect(path string) Kind {
	switch {
	case strings.HasSuffix(path, ".gz"), strings.HasSuffix(path, ".bgz"):
		return Gzip
	case strings.HasSuffix(path, ".bz2"):
		return Bzip2
	case strings.HasSuffix(path, ".zip"):
		return Zip
	}
	return sniff(path)
}

func sniff(path string) Kind {
	f, err := os.Open(path)
	if err != nil {
		return None
	}
	defer f.Close()

	var magic [4]byte
	n, _ := io.ReadFull(f, magic[:])
	switch {
	case n >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		return Gzip
	case n >= 3 && magic[0] == 'B' && magic[1] == 'Z' && magic[2] == 'h':
		return Bzip2
	case n >= 4 && magic[0] == 'P' && magic[1] == 'K' && magic[2] == 0x03 && magic[3] == 0x04:
		return Zip
	}
	return None
}

// GroupKind returns the single compression shared by a file group.
func GroupKind(paths []string) (Kind, error) {
	kinds := make(map[Kind]struct{})
	for _, p := range paths {
		kinds[Detect(p)] = struct{}{}
	}
	if len(kinds) != 1 {
		return None, fmt.Errorf("%w: %s", ErrMixedCompression, strings.Join(paths, ", "))
	}
	for k := range kinds {
		return k, nil
	}
	return None, nil
}

type readCloser struct {
	io.Reader
	closers []io.Closer
}

func (r *readCloser) Close() error {
	var first error
	for _, c := range r.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Open returns a reader over the file's decompressed content. Zip archives
// have no single stream and are rejected; use Decompress for those.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	switch Detect(path) {
	case Gzip:
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return &readCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil
	case Bzip2:
		return &readCloser{Reader: bzip2.NewReader(f), closers: []io.Closer{f}}, nil
	case Zip:
		f.Close()
		return nil, fmt.Errorf("zip: %w", ErrUnsupported)
	}
	return f, nil
}

// IsEmpty reports whether a file holds zero bytes of content. Gzip files
// always carry a header, so they are opened and probed.
func IsEmpty(path string) (bool, error) {
	if Detect(path) == None {
		info, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		return info.Size() == 0, nil
	}
	r, err := Open(path)
	if err != nil {
		return false, err
	}
	defer r.Close()
	var probe [1]byte
	n, err := r.Read(probe[:])
	if n > 0 {
		return false, nil
	}
	if err == io.EOF || err == nil {
		return true, nil
	}
	return false, err
}

// GzipFile gzips a file into destDir (the file's own directory when empty)
// and returns the result path. Already-gzipped input is returned as is. The
// source is removed unless keepSource is set.
func GzipFile(path, destDir string, keepSource bool) (string, error) {
	if Detect(path) == Gzip {
		return path, nil
	}
	if destDir == "" {
		destDir = filepath.Dir(path)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	out, err := uniquePath(filepath.Join(destDir, filepath.Base(path)+".gz"))
	if err != nil {
		return "", err
	}

	src, err := Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return "", err
	}
	zw := gzip.NewWriter(dst)
	if _, err := io.Copy(zw, src); err != nil {
		dst.Close()
		os.Remove(out)
		return "", err
	}
	if err := zw.Close(); err != nil {
		dst.Close()
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}

	if !keepSource {
		if err := os.Remove(path); err != nil {
			return "", err
		}
	}
	return out, nil
}

// Decompress unpacks a file into destDir (current directory when empty) and
// returns the result path; uncompressed input is returned untouched. For zip
// archives the first regular entry is extracted.
func Decompress(path, destDir string) (string, error) {
	kind := Detect(path)
	if kind == None {
		return path, nil
	}
	if destDir == "" {
		destDir = "."
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", err
	}

	base := filepath.Base(path)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	out, err := uniquePath(filepath.Join(destDir, base))
	if err != nil {
		return "", err
	}

	var src io.ReadCloser
	if kind == Zip {
		src, err = openZipEntry(path)
	} else {
		src, err = Open(path)
	}
	if err != nil {
		return "", err
	}
	defer src.Close()

	dst, err := os.Create(out)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(out)
		return "", err
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return out, nil
}

func openZipEntry(path string) (io.ReadCloser, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			zr.Close()
			return nil, err
		}
		return &readCloser{Reader: rc, closers: []io.Closer{rc, zr}}, nil
	}
	zr.Close()
	return nil, fmt.Errorf("zip archive %q has no file entries", path)
}

func uniquePath(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		return path, nil
	}
	f, err := os.CreateTemp(filepath.Dir(path), "*_"+filepath.Base(path))
	if err != nil {
		return "", err
	}
	defer f.Close()
	return f.Name(), nil
}
