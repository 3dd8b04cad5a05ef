package vectorfile

import (
	"errors"
	"fmt"
)

// FormatError reports a structural problem in a test vector or grid file.
// A FormatError aborts the whole read; no partial result is returned.
type FormatError struct {
	Path    string
	Line    int // 1-based; 0 when the error is not tied to a line
	Message string
}

func (e *FormatError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("FORMAT_ERROR: %s:%d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("FORMAT_ERROR: %s: %s", e.Path, e.Message)
}

// IsFormatError returns true if err is (or wraps) a FormatError.
func IsFormatError(err error) bool {
	var fe *FormatError
	return errors.As(err, &fe)
}

// Errorf builds a FormatError for line of path.
func Errorf(path string, line int, format string, args ...any) *FormatError {
	return &FormatError{Path: path, Line: line, Message: fmt.Sprintf(format, args...)}
}
