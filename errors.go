package kresource

import "github.com/go-kresource/kresource/internal/kerr"

// Error is a structured kresource error carrying the failing
// operation, a high-level category, and an optional wrapped cause.
// It lives in internal/kerr so internal/rman and internal/intr can
// raise it directly without importing this package (which imports
// them), and is re-exported here as the public type.
type Error = kerr.Error

// ErrorCode is a high-level error category.
type ErrorCode = kerr.Code

// Error categories. Some are returned as errors: Reserve returns
// NoPlacement when nothing fits and InvalidAlignment for an alignment
// that is not a power of two, and Event.RemoveHandler returns
// HandlerDetached for a handler that is not attached (it does not
// panic). AllocFailed is not produced by any operation in this module.
// The remaining codes are raised via panic, since they indicate a
// programmer error — a static wiring mistake such as a double-managed
// region or tearing down a manager with live reservations — rather
// than a runtime condition to branch on.
const (
	ErrCodeOverlap          = kerr.CodeOverlap
	ErrCodeNotEmpty         = kerr.CodeNotEmpty
	ErrCodeStillActive      = kerr.CodeStillActive
	ErrCodeNoPlacement      = kerr.CodeNoPlacement
	ErrCodeAllocFailed      = kerr.CodeAllocFailed
	ErrCodeHandlerDetached  = kerr.CodeHandlerDetached
	ErrCodeNoService        = kerr.CodeNoService
	ErrCodeInvalidAlignment = kerr.CodeInvalidAlignment
)

// NewError creates a new structured error.
func NewError(op string, code ErrorCode, msg string) *Error {
	return kerr.New(op, code, msg)
}

// IsCode reports whether err is a *Error (at any depth of wrapping)
// with the given code.
func IsCode(err error, code ErrorCode) bool {
	return kerr.IsCode(err, code)
}
