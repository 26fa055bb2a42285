package staticfiles

import (
	"net/url"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrEscapesRoot is returned when a resolved path would land outside root.
type resolveError string

func (e resolveError) Error() string { return string(e) }

const ErrEscapesRoot = resolveError("staticfiles: resolved path escapes root")

// ResolvePath URL-decodes urlPath, strips the configured prefix, joins it
// against root, and rejects any result that escapes root. Comparison is
// case-insensitive on Windows and exact on Unix (§4.11, Design Note §9).
func ResolvePath(root, urlPrefix, urlPath string) (string, error) {
	decoded, err := url.PathUnescape(urlPath)
	if err != nil {
		return "", err
	}

	rel := strings.TrimPrefix(decoded, urlPrefix)
	rel = strings.TrimPrefix(rel, "/")

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(absRoot, filepath.FromSlash(rel))

	if !withinRoot(absRoot, candidate) {
		return "", ErrEscapesRoot
	}
	return candidate, nil
}

func withinRoot(root, candidate string) bool {
	rootCmp, candCmp := root, candidate
	if runtime.GOOS == "windows" {
		rootCmp = strings.ToLower(rootCmp)
		candCmp = strings.ToLower(candCmp)
	}
	if candCmp == rootCmp {
		return true
	}
	return strings.HasPrefix(candCmp, rootCmp+string(filepath.Separator))
}
