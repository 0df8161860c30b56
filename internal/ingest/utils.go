package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/catalog-ingest/constants"
)

// AllowedExt checks if a file extension is an importable spreadsheet (xlsx/xlsm).
func AllowedExt(ext string) bool {
	return constants.IsAllowedExt(ext)
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".")
}

// IsLockFile matches the "~$name.xlsx" owner files office suites leave next to open
// workbooks.
func IsLockFile(path string) bool {
	return strings.HasPrefix(filepath.Base(path), "~$")
}

// Importable reports whether path names a spreadsheet worth queuing.
func Importable(path string) bool {
	return AllowedExt(filepath.Ext(path)) && !IsHidden(path) && !IsLockFile(path)
}
