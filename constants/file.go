package constants

import "strings"

// Extraction source tags stored per page.
const (
	SourceDigital = "digital"
	SourceOCR     = "ocr"
)

// AllowedExtensions holds the file extensions the watch gate accepts.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
