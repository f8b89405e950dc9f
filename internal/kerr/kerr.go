// Package kerr defines the structured error taxonomy shared by
// internal/rman, internal/intr, and the root kresource package. It
// lives in its own package (rather than the root package) so the
// internal algorithmic packages can raise richly-typed errors without
// creating an import cycle back to the root package that depends on
// them — the same reason the teacher keeps its collaborator
// interfaces in internal/interfaces instead of the root package.
package kerr

import "fmt"

// Code is a high-level error category, analogous to the teacher's
// UblkErrorCode.
type Code string

const (
	CodeOverlap          Code = "overlapping region"
	CodeNotEmpty         Code = "resource manager not empty"
	CodeStillActive      Code = "resource still active"
	CodeNoPlacement      Code = "no placement available"
	CodeAllocFailed      Code = "allocation failed"
	CodeHandlerDetached  Code = "handler not attached to event"
	CodeNoService        Code = "delegate requires a service handler"
	CodeInvalidAlignment Code = "alignment must be a power of two"
)

// Error is a structured error carrying the failing operation, its
// category, a human-readable message, and an optional wrapped cause.
type Error struct {
	Op    string // e.g. "MANAGE_REGION", "RESERVE", "ADD_HANDLER"
	Code  Code
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Op != "" {
		return fmt.Sprintf("kresource: %s: %s", e.Op, msg)
	}
	return fmt.Sprintf("kresource: %s", msg)
}

// Unwrap supports errors.Is/errors.As against the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is supports errors.Is comparison by Code, so callers can test
// `errors.Is(err, &kerr.Error{Code: kerr.CodeNoPlacement})` or use the
// IsCode helper below.
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok || te == nil {
		return false
	}
	return e.Code == te.Code
}

// New creates a new structured error.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// Wrap attaches op/code context to an existing error.
func Wrap(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = unwrapper.Unwrap()
	}
	return e != nil && e.Code == code
}
