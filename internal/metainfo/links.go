package metainfo

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedScheme reports an external link URL whose scheme the
// platform's download service does not handle.
var ErrUnsupportedScheme = errors.New("unsupported external link scheme")

// Schemes the download collaborator accepts. "raw" is the internal reference
// scheme pointing at another platform-managed file (raw:<accession>).
var linkSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
	"ftp":   {},
	"ascp":  {},
	"s3":    {},
	"raw":   {},
}

// ValidateLinkURL checks that a URL carries a supported scheme.
func ValidateLinkURL(raw string) error {
	scheme, rest, found := strings.Cut(raw, ":")
	if !found || scheme == "" || rest == "" {
		return fmt.Errorf("%w: no scheme in %q", ErrUnsupportedScheme, raw)
	}
	if _, ok := linkSchemes[strings.ToLower(scheme)]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
	}
	return nil
}

// IsRawLink reports whether the URL uses the internal raw-file scheme.
func IsRawLink(raw string) bool {
	return strings.HasPrefix(strings.ToLower(raw), "raw:")
}
