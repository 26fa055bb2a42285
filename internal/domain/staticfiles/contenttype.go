package staticfiles

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// builtinExtensions is the fast-path extension table consulted before any
// content sniffing (§4.11 additions: "a small built-in extension table
// first, no I/O").
var builtinExtensions = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "text/javascript; charset=utf-8",
	".mjs":  "text/javascript; charset=utf-8",
	".json": "application/json",
	".txt":  "text/plain; charset=utf-8",
	".xml":  "application/xml",
	".svg":  "image/svg+xml",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".ico":  "image/x-icon",
	".woff": "font/woff",
	".woff2": "font/woff2",
	".pdf":  "application/pdf",
	".wasm": "application/wasm",
}

// sniffWindowBytes bounds how much of a file mimetype.DetectReader reads
// when the extension table misses (§4.11 additions).
const sniffWindowBytes = 3072

// DetectContentType resolves path's content type via the extension table
// first; when the extension is unknown or missing, it sniffs up to
// sniffWindowBytes from r.
func DetectContentType(path string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ct, ok := builtinExtensions[ext]; ok {
		return ct, nil
	}

	mt, err := mimetype.DetectReader(io.LimitReader(r, sniffWindowBytes))
	if err != nil {
		return "application/octet-stream", nil
	}
	return mt.String(), nil
}
