package fsutil

import (
	"bytes"
	"path/filepath"
	"strings"
)

// sniffLength is the number of leading bytes inspected when no name-based
// heuristic is conclusive.
const sniffLength = 8000

// knownBinaryExtensions short-circuits the name heuristic for common binary
// file types so we never need to read their content.
var knownBinaryExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true,
	".ico": true, ".pdf": true, ".zip": true, ".gz": true, ".tar": true,
	".mp3": true, ".mp4": true, ".mov": true, ".woff": true, ".woff2": true,
	".ttf": true, ".otf": true, ".wasm": true, ".exe": true, ".so": true,
	".dylib": true,
}

// knownTextExtensions short-circuits the name heuristic for common text
// file types.
var knownTextExtensions = map[string]bool{
	".txt": true, ".md": true, ".json": true, ".yaml": true, ".yml": true,
	".js": true, ".ts": true, ".html": true, ".css": true, ".go": true,
	".py": true, ".sh": true, ".csv": true, ".xml": true, ".svg": true,
}

// LooksBinaryByName applies the name heuristic and reports whether a
// conclusive answer was reached.
func LooksBinaryByName(path string) (binary bool, conclusive bool) {
	ext := strings.ToLower(filepath.Ext(path))
	if knownBinaryExtensions[ext] {
		return true, true
	}
	if knownTextExtensions[ext] {
		return false, true
	}
	return false, false
}

// LooksBinaryByContent sniffs the leading bytes of content for NUL bytes, the
// classic signal used to distinguish binary from text content when the name
// heuristic is inconclusive.
func LooksBinaryByContent(content []byte) bool {
	sample := content
	if len(sample) > sniffLength {
		sample = sample[:sniffLength]
	}
	return bytes.IndexByte(sample, 0) != -1
}

// IsBinary combines the name heuristic and content sniff: the name heuristic
// is authoritative when conclusive, falling back to a content sniff
// otherwise. Matches the order specified for single-file diff: "name-
// heuristic first, then first-bytes content sniff".
func IsBinary(path string, content []byte) bool {
	if binary, ok := LooksBinaryByName(path); ok {
		return binary
	}
	return LooksBinaryByContent(content)
}
