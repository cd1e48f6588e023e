package ingest

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/labex-extractor/constants"
)

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	ext = constants.NormalizeExt(ext)
	_, ok := constants.AllowedExtensions[ext]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._ -]+`)

// SanitizeFilename keeps the base name of an upload and drops characters
// that are unsafe in a path. The family token survives untouched.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeName.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	if name == "" {
		return "upload.pdf"
	}
	return name
}
