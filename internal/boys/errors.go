package boys

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes evaluation errors.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates a negative order or argument, or an
	// argument that is not a finite number.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"

	// ErrCodePrecision indicates a working precision that is non-positive,
	// above MaxPrecision, too small for the requested order, or one at which
	// an internal series failed to converge.
	ErrCodePrecision ErrorCode = "PRECISION_ERROR"
)

// Error is returned by every evaluator entry point.
type Error struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsInvalidArgument returns true if err is (or wraps) an invalid argument error.
func IsInvalidArgument(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == ErrCodeInvalidArgument
	}
	return false
}

// IsPrecisionError returns true if err is (or wraps) a precision error.
func IsPrecisionError(err error) bool {
	var be *Error
	if errors.As(err, &be) {
		return be.Code == ErrCodePrecision
	}
	return false
}

func invalidArgument(format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func precisionError(format string, args ...any) *Error {
	return &Error{Code: ErrCodePrecision, Message: fmt.Sprintf(format, args...)}
}
