package compiler

import (
	"errors"
	"fmt"
	"time"
)

// RejectedError is returned when the compiler responds without a PDF: a
// non-2xx status, or a 2xx body that is not a PDF document. Detail holds the
// leading part of the response body, usually the TeX log.
type RejectedError struct {
	// StatusCode is the upstream HTTP status
	StatusCode int

	// Detail is the truncated upstream response body
	Detail string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("compiler rejected document (status %d)", e.StatusCode)
}

// TimeoutError is returned when the upstream call exceeds the compiler
// timeout or the request budget, whichever is shorter.
type TimeoutError struct {
	// Timeout is the limit that was exceeded
	Timeout time.Duration

	// Cause is the underlying transport error
	Cause error
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("compiler did not respond within %s", e.Timeout)
}

// Unwrap returns the underlying error for error chain support.
func (e *TimeoutError) Unwrap() error {
	return e.Cause
}

// TransportError is returned when the compiler cannot be reached or the
// response cannot be read.
type TransportError struct {
	// Cause is the underlying network error
	Cause error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("compiler request failed: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// ResponseTooLargeError is returned when the PDF exceeds the configured cap.
type ResponseTooLargeError struct {
	// Limit is compiler.max_response_bytes
	Limit int64
}

// Error implements the error interface.
func (e *ResponseTooLargeError) Error() string {
	return fmt.Sprintf("compiler response exceeds %d bytes", e.Limit)
}

// IsUpstreamFailure reports whether err means the document could not be
// compiled, as opposed to an internal failure of the proxy.
func IsUpstreamFailure(err error) bool {
	var rejected *RejectedError
	var timeout *TimeoutError
	return errors.As(err, &rejected) || errors.As(err, &timeout)
}

// ErrorDetail returns the text shown to the caller for an upstream failure.
func ErrorDetail(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Detail
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return timeout.Error()
	}
	return err.Error()
}
