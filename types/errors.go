package types

import "fmt"

// ErrorCode identifies the category an Error belongs to. The set mirrors
// the error taxonomy the roundtable core recognizes when deciding whether
// an iteration can be retried, must abort, or must fail the session.
type ErrorCode string

const (
	// ErrInputValidation covers malformed configuration or request
	// parameters caught before any LLM/store work begins.
	ErrInputValidation ErrorCode = "INPUT_VALIDATION"
	// ErrTransientLLM covers an LLM call failure the client's own retry
	// policy is expected to recover from.
	ErrTransientLLM ErrorCode = "TRANSIENT_LLM"
	// ErrFatalLLM covers an LLM call failure that survived retries.
	ErrFatalLLM ErrorCode = "FATAL_LLM"
	// ErrMalformedReview covers a reviewer response that failed to parse
	// even after the one-shot salvage reformat.
	ErrMalformedReview ErrorCode = "MALFORMED_REVIEW"
	// ErrStoreWriteFailure covers a persistence write that could not be
	// completed atomically.
	ErrStoreWriteFailure ErrorCode = "STORE_WRITE_FAILURE"
	// ErrPlannerFailure covers a meta-planner failure that also exhausted
	// the built-in fallback template.
	ErrPlannerFailure ErrorCode = "PLANNER_FAILURE"
	// ErrCancelRequested marks cooperative cancellation observed at a
	// safe point.
	ErrCancelRequested ErrorCode = "CANCEL_REQUESTED"
	// ErrNotFound covers lookups against an artifact or session that does
	// not exist.
	ErrNotFound ErrorCode = "NOT_FOUND"
	// ErrConflict covers a request that is well-formed but violates the
	// current state of the target (e.g. continuing a non-continuable
	// session).
	ErrConflict ErrorCode = "CONFLICT"
	// ErrUnavailable covers a downstream dependency being temporarily
	// unable to serve any request.
	ErrUnavailable ErrorCode = "UNAVAILABLE"
	// ErrInternal covers defects in the core itself.
	ErrInternal ErrorCode = "INTERNAL"
)

// Error is the structured error type returned from every package in this
// module. Retryable distinguishes TransientLLM from FatalLLM without the
// caller needing to inspect Code directly.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Cause     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError constructs an Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause attaches the underlying cause and returns e for chaining.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithRetryable marks the error retryable and returns e for chaining.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// IsRetryable reports whether err is a *Error marked retryable.
func IsRetryable(err error) bool {
	var e *Error
	if as, ok := err.(*Error); ok {
		e = as
		return e.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, returning "" if err is not a
// *Error.
func CodeOf(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}
