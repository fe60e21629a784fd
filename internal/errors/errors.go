// Package errors provides the coded errors raised while registering a
// microscopy dropbox.
//
// Usage:
//
//	// In the pipeline - return typed errors
//	if node.Tag != manifest.TagExperiment {
//	    return errors.Structuralf("expected Experiment node, found %s", node.Tag)
//	}
//
//	// In callers - check with errors.Is
//	if errors.Is(err, errors.ErrStructural) {
//	    log.Error("manifest rejected", "error", err)
//	}
//
//	// Or use the Code directly for switch statements
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    switch domainErr.Code {
//	    case errors.CodeResource:
//	        ...
//	    }
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeStructural           Code = "STRUCTURAL"
	CodeChannelResolution    Code = "CHANNEL_RESOLUTION"
	CodeMalformedChannelCode Code = "MALFORMED_CHANNEL_CODE"
	CodeEntityCreation       Code = "ENTITY_CREATION"
	CodeRegistration         Code = "REGISTRATION"
	CodeResource             Code = "RESOURCE"
	CodeExtraction           Code = "EXTRACTION"
	CodeNotFound             Code = "NOT_FOUND"
	CodeValidation           Code = "VALIDATION"
	CodeInternal             Code = "INTERNAL"
)

// HTTPStatus returns the HTTP status code the inspection API uses for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeValidation, CodeMalformedChannelCode:
		return http.StatusBadRequest
	case CodeStructural, CodeChannelResolution:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrStructural           = &Error{Code: CodeStructural, Message: "manifest structure violated"}
	ErrChannelResolution    = &Error{Code: CodeChannelResolution, Message: "channel resolution failed"}
	ErrMalformedChannelCode = &Error{Code: CodeMalformedChannelCode, Message: "malformed channel code"}
	ErrEntityCreation       = &Error{Code: CodeEntityCreation, Message: "entity creation failed"}
	ErrRegistration         = &Error{Code: CodeRegistration, Message: "registration failed"}
	ErrResource             = &Error{Code: CodeResource, Message: "resource unavailable"}
	ErrExtraction           = &Error{Code: CodeExtraction, Message: "metadata extraction failed"}
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrValidation           = &Error{Code: CodeValidation, Message: "validation error"}
	ErrInternal             = &Error{Code: CodeInternal, Message: "internal error"}
)

// Constructor functions for creating errors with custom messages.

// Structural creates a manifest structure error.
func Structural(msg string) *Error {
	return &Error{Code: CodeStructural, Message: msg}
}

// Structuralf creates a manifest structure error with formatted message.
func Structuralf(format string, args ...any) *Error {
	return &Error{Code: CodeStructural, Message: fmt.Sprintf(format, args...)}
}

// ChannelResolutionf creates a channel resolution error with formatted message.
func ChannelResolutionf(format string, args ...any) *Error {
	return &Error{Code: CodeChannelResolution, Message: fmt.Sprintf(format, args...)}
}

// MalformedChannelCodef creates a malformed channel code error with formatted message.
func MalformedChannelCodef(format string, args ...any) *Error {
	return &Error{Code: CodeMalformedChannelCode, Message: fmt.Sprintf(format, args...)}
}

// EntityCreationf creates an entity creation error with formatted message.
func EntityCreationf(format string, args ...any) *Error {
	return &Error{Code: CodeEntityCreation, Message: fmt.Sprintf(format, args...)}
}

// Registrationf creates a registration error with formatted message.
func Registrationf(format string, args ...any) *Error {
	return &Error{Code: CodeRegistration, Message: fmt.Sprintf(format, args...)}
}

// Resource creates a resource error.
func Resource(msg string) *Error {
	return &Error{Code: CodeResource, Message: msg}
}

// Resourcef creates a resource error with formatted message.
func Resourcef(format string, args ...any) *Error {
	return &Error{Code: CodeResource, Message: fmt.Sprintf(format, args...)}
}

// Extractionf creates a metadata extraction error with formatted message.
func Extractionf(format string, args ...any) *Error {
	return &Error{Code: CodeExtraction, Message: fmt.Sprintf(format, args...)}
}

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// NotFoundf creates a not found error with formatted message.
func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Internalf creates an internal error with formatted message.
func Internalf(format string, args ...any) *Error {
	return &Error{Code: CodeInternal, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with a code and message.
func Wrap(err error, code Code, msg string) *Error {
	return &Error{Code: code, Message: msg, cause: err}
}

// Wrapf wraps an error with a code and formatted message.
func Wrapf(err error, code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: err}
}
