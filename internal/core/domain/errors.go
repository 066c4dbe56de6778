package domain

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable machine-readable identifier carried by every
// domain error. Codes are part of the external contract and never change.
type ErrorCode string

// Stable error codes.
const (
	// CodeUnsupportedFormat: the document format is not recognised.
	CodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"

	// CodeParse: content could not be extracted from the document.
	CodeParse ErrorCode = "PARSE_FAILED"

	// CodeEmbeddingBackend: the embedding backend failed (transient).
	CodeEmbeddingBackend ErrorCode = "EMBEDDING_BACKEND"

	// CodeGenerationBackend: the generation backend failed (transient).
	CodeGenerationBackend ErrorCode = "GENERATION_BACKEND"

	// CodeTimeout: an external call exceeded its deadline (transient).
	CodeTimeout ErrorCode = "TIMEOUT"

	// CodeNotFound: a requested document or model does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeResourceExhausted: no routable model is available.
	CodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"

	// CodeInvalidInput: malformed or invalid caller input.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeInternal: unclassified internal failure.
	CodeInternal ErrorCode = "INTERNAL"
)

// Error is a coded domain error. Message is human-readable and safe to
// surface to callers; internal detail travels in the wrapped cause and is
// only visible through logs, never through the external interfaces.
type Error struct {
	Code    ErrorCode
	Message string
	cause   error
}

// Error returns the human-readable message.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code, so a wrapped error still compares
// equal to its sentinel via errors.Is.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Domain error sentinels. Compare with errors.Is; wrap with WrapError
// to attach a cause without losing the code.
var (
	// ErrUnsupportedFormat indicates an unrecognised document format.
	ErrUnsupportedFormat = &Error{Code: CodeUnsupportedFormat, Message: "unsupported document format"}

	// ErrParse indicates content extraction failed. Not retryable
	// without fixing the input.
	ErrParse = &Error{Code: CodeParse, Message: "document content could not be parsed"}

	// ErrEmbeddingBackend indicates the embedding backend failed.
	// Transient; the caller may retry with backoff.
	ErrEmbeddingBackend = &Error{Code: CodeEmbeddingBackend, Message: "embedding backend request failed"}

	// ErrGenerationBackend indicates the generation backend failed.
	// Transient; the caller may retry with backoff.
	ErrGenerationBackend = &Error{Code: CodeGenerationBackend, Message: "generation backend request failed"}

	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = &Error{Code: CodeTimeout, Message: "operation timed out"}

	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = &Error{Code: CodeNotFound, Message: "not found"}

	// ErrResourceExhausted indicates no model can serve the request.
	// Rare: the router's lightweight fallback covers budget misses, so
	// this only fires when every catalogued model is deactivated.
	ErrResourceExhausted = &Error{Code: CodeResourceExhausted, Message: "no active model available"}

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = &Error{Code: CodeInvalidInput, Message: "invalid input"}
)

// WrapError attaches a cause to a coded sentinel. The returned error keeps
// the sentinel's code and message and unwraps to the cause.
func WrapError(sentinel *Error, cause error) *Error {
	return &Error{
		Code:    sentinel.Code,
		Message: sentinel.Message,
		cause:   cause,
	}
}

// Errorf builds a coded error with a formatted message. Use when the
// sentinel message needs caller context that is still safe to surface.
func Errorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// CodeOf extracts the stable code from an error chain.
// Unclassified errors report CodeInternal.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// StageError reports the query pipeline stage at which a request failed.
// It wraps the coded cause so both the stage and the code survive the
// trip to the caller.
type StageError struct {
	Stage QueryState
	Err   error
}

// Error includes the failed stage in the message.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage reports the stage recorded in an error chain, or an empty
// state when the error carries no stage information.
func FailedStage(err error) QueryState {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
