package jsonrpc

import (
	"errors"
	"fmt"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func NewParseError(err error) *Error {
	return &Error{Code: CodeParseError, Message: fmt.Sprintf("Parse error: %v", err)}
}

func NewInvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: msg}
}

func NewMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("the method %s does not exist/is not available", method)}
}

func NewInvalidParams(format string, args ...any) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params: " + fmt.Sprintf(format, args...)}
}

// UpstreamError is a failure returned by the upstream node. It is never cached.
type UpstreamError struct {
	Method Method
	Err    error
}

func (e *UpstreamError) Error() string { return fmt.Sprintf("upstream %s: %v", e.Method, e.Err) }
func (e *UpstreamError) Unwrap() error { return e.Err }

// RecorderError is a storage or serialization failure of the recorder.
type RecorderError struct {
	Op  string
	Key string
	Err error
}

func (e *RecorderError) Error() string { return fmt.Sprintf("recorder %s %q: %v", e.Op, e.Key, e.Err) }
func (e *RecorderError) Unwrap() error { return e.Err }

// ToError converts any handler error into the error object sent to the caller.
func ToError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return &Error{Code: CodeInternalError, Message: fmt.Sprintf("Provider error: %v", upErr.Err)}
	}
	var recErr *RecorderError
	if errors.As(err, &recErr) {
		return &Error{Code: CodeInternalError, Message: fmt.Sprintf("Recorder error: %v", recErr.Err)}
	}
	return &Error{Code: CodeInternalError, Message: err.Error()}
}
