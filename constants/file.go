package constants

import "strings"

// PDF is the only document format the extractor accepts.
const PDF = "PDF"

// AllowedExtensions holds the file extensions accepted for staging and batch scans.
var AllowedExtensions = map[string]struct{}{
	"pdf": {},
}

// StagedPrefix is prepended to every staged upload's file name.
const StagedPrefix = "labex-"

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the job format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) string {
	if _, ok := AllowedExtensions[NormalizeExt(ext)]; ok {
		return PDF
	}
	return ""
}
