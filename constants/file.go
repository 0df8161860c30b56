package constants

import "strings"

// AllowedExtensions holds the spreadsheet extensions accepted for import.
var AllowedExtensions = map[string]struct{}{
	"xlsx": {},
	"xlsm": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsAllowedExt reports whether ext names an importable spreadsheet.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}
