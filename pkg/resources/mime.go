package resources

import (
	"path/filepath"
	"strings"
)

// mimeTable is the extension lookup from the glossary's MIME detection
// table; any extension absent from it falls back to application/octet-stream.
var mimeTable = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".json": "application/json",
	".xml":  "application/xml",
	".html": "text/html",
	".htm":  "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".csv":  "text/csv",
	".c":    "text/x-c",
	".h":    "text/x-c",
	".cpp":  "text/x-c++",
	".hpp":  "text/x-c++",
	".py":   "text/x-python",
	".rs":   "text/x-rust",
	".go":   "text/x-go",
	".java": "text/x-java",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

const defaultMimeType = "application/octet-stream"

// DetectMime maps a file path's extension to a MIME type per the glossary
// table, falling back to application/octet-stream.
func DetectMime(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mimeTable[ext]; ok {
		return mt
	}
	return defaultMimeType
}

// isTextual reports whether mimeType should be read as null-terminated text
// rather than binary, per §4.5's file read rules.
func isTextual(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/javascript":
		return true
	default:
		return false
	}
}
