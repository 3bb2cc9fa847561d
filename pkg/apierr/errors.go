// Package apierr defines the typed error taxonomy (SPEC_FULL.md §7) and
// translates it into the platform's uniform JSON error envelope at the
// HTTP boundary, following the sentinel-error-plus-mapping style used
// elsewhere in this module.
package apierr

import (
	"errors"
	"fmt"
)

// Code is the stable machine-readable error code carried on the wire,
// e.g. in a tool_result frame's {error:true, code:...} body or an HTTP
// error envelope's "code" field.
type Code string

const (
	CodeValidation          Code = "VALIDATION_ERROR"
	CodeAuth                Code = "AUTH_ERROR"
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE"
	CodeToolExecution       Code = "TOOL_EXECUTION_ERROR"
	CodeConfirmationCancel  Code = "CONFIRMATION_CANCELLED"
	CodeTimeout             Code = "TIMEOUT"
	CodeReadOnlyMode        Code = "READ_ONLY_MODE"
	CodeInternal            Code = "INTERNAL"
)

// Error is the common shape for every taxonomy member: a stable code,
// a human message, and the wrapped cause (if any).
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newErr(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed or out-of-bounds request input
// (e.g. a query exceeding the token ceiling, §8 scenario S5).
func ValidationError(format string, args ...any) *Error {
	return newErr(CodeValidation, format, args...)
}

// AuthError reports a failed or missing authentication/authorization check.
func AuthError(format string, args ...any) *Error {
	return newErr(CodeAuth, format, args...)
}

// ProviderUnavailable reports that no configured model provider could
// serve a request (all candidates down, unauthenticated, or unknown model).
func ProviderUnavailable(cause error, format string, args ...any) *Error {
	e := newErr(CodeProviderUnavailable, format, args...)
	e.Cause = cause
	return e
}

// ToolExecutionError wraps a tool's own failure, distinct from
// ReadOnlyModeError which is a policy rejection rather than a failure.
func ToolExecutionError(toolName string, cause error) *Error {
	return &Error{Code: CodeToolExecution, Message: fmt.Sprintf("tool %q failed", toolName), Cause: cause}
}

// ConfirmationCancelledError reports a user-declined or cancelled
// confirmation request (§4.3 Confirmation Broker).
func ConfirmationCancelledError(toolName string) *Error {
	return newErr(CodeConfirmationCancel, "confirmation for tool %q was cancelled", toolName)
}

// TimeoutError reports a bounded operation exceeding its deadline
// (workflow timeout, cancellation wait, provider call).
func TimeoutError(format string, args ...any) *Error {
	return newErr(CodeTimeout, format, args...)
}

// ReadOnlyModeError is the mode-enforcement rejection (§8 invariant,
// scenario S4): a mutating tool call made while in ask mode.
func ReadOnlyModeError(toolName string) *Error {
	return newErr(CodeReadOnlyMode, "tool %q is mutating and not permitted in ask mode", toolName)
}

// Internal wraps an unexpected error that should not leak detail to
// the client; the cause is still available via errors.Unwrap for logging.
func Internal(cause error) *Error {
	return &Error{Code: CodeInternal, Message: "internal error", Cause: cause}
}

// CodeOf extracts the Code from err if it (or something it wraps) is
// an *Error, defaulting to CodeInternal otherwise — used by the HTTP
// and gateway boundaries to pick a status/response shape uniformly.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}
