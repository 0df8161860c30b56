package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/catalog-ingest/constants"
)

// ValidateSpreadsheetPath checks that path names an existing regular file with an
// importable extension.
func ValidateSpreadsheetPath(path string) error {
	if path == "" {
		return NewAppError(CodeInvalidFile, "path is required", ErrInvalidInput)
	}
	if !constants.IsAllowedExt(filepath.Ext(path)) {
		return NewAppError(CodeInvalidFile, fmt.Sprintf("unsupported file type %q", filepath.Ext(path)), ErrInvalidInput)
	}
	st, err := os.Stat(path)
	if err != nil {
		return NewAppError(CodeInvalidFile, "stat "+path, err)
	}
	if st.IsDir() {
		return NewAppError(CodeInvalidFile, path+" is a directory", ErrInvalidInput)
	}
	return nil
}
