// Package errors separates programmer errors from protocol errors, per the
// MWA core's error-handling design: a precondition violation is a bug in
// the calling code and must never leak onto the wire, while a protocol
// error is something the remote peer caused and must be reported to it.
package errors

import "fmt"

// ProgrammerError signals a precondition violation: a wrong vector
// length or a nil success result. Callers
// should treat it as a bug, not a recoverable condition; it is never
// translated into a JSON-RPC error object.
type ProgrammerError struct {
	Op      string
	Message string
}

func (e *ProgrammerError) Error() string {
	return fmt.Sprintf("programmer error in %s: %s", e.Op, e.Message)
}

// NewProgrammerError builds a ProgrammerError for the given operation.
func NewProgrammerError(op, format string, args ...interface{}) *ProgrammerError {
	return &ProgrammerError{Op: op, Message: fmt.Sprintf(format, args...)}
}

// ProtocolError represents a codec or transport-level failure: malformed
// JSON, an unrecognized frame shape, a version mismatch. On the server
// these map to the standard JSON-RPC error codes. On the client they are
// not turned into InvalidResponse: the endpoint logs and drops a response
// frame it cannot decode, so the pending call ends in Timeout. They are
// never surfaced to the signer/UI layer.
type ProtocolError struct {
	Code    int
	Message string
	Details string
}

func (e *ProtocolError) Error() string {
	if e.Details == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Message, e.Details)
}

// Standard JSON-RPC 2.0 error codes used to build ProtocolErrors.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// NewProtocolError builds a ProtocolError with the given standard code.
func NewProtocolError(code int, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message}
}

// WithDetails attaches additional, non-wire-sensitive context.
func (e *ProtocolError) WithDetails(details string) *ProtocolError {
	e.Details = details
	return e
}

// Wrap turns an arbitrary error into a ProtocolError with the given code,
// keeping the original error text as details.
func Wrap(err error, code int, message string) *ProtocolError {
	return &ProtocolError{Code: code, Message: message, Details: err.Error()}
}

// ParseError builds the standard -32700 ProtocolError.
func ParseError(err error) *ProtocolError {
	return Wrap(err, CodeParseError, "parse error")
}

// InvalidRequest builds the standard -32600 ProtocolError.
func InvalidRequest(reason string) *ProtocolError {
	return NewProtocolError(CodeInvalidRequest, "invalid request").WithDetails(reason)
}

// MethodNotFound builds the standard -32601 ProtocolError.
func MethodNotFound(method string) *ProtocolError {
	return NewProtocolError(CodeMethodNotFound, fmt.Sprintf("method not found: %s", method))
}

// InvalidParams builds the standard -32602 ProtocolError.
func InvalidParams(reason string) *ProtocolError {
	return NewProtocolError(CodeInvalidParams, "invalid params").WithDetails(reason)
}

// Internal builds the standard -32603 ProtocolError, used whenever a
// handler verdict would otherwise leak internal state onto the wire.
func Internal(reason string) *ProtocolError {
	return NewProtocolError(CodeInternalError, "internal error").WithDetails(reason)
}
