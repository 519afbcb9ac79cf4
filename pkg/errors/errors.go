// Package errors defines the typed errors the content API reports and how
// they map onto HTTP responses.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// ErrorType classifies an AppError. It doubles as the "type" field of error
// responses and as the outcome label on metrics.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnknownKind  ErrorType = "UNKNOWN_KIND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeStoreIO      ErrorType = "STORE_IO"
	ErrorTypeInternal     ErrorType = "INTERNAL"
)

var defaultStatus = map[ErrorType]int{
	ErrorTypeValidation:   http.StatusBadRequest,
	ErrorTypeNotFound:     http.StatusNotFound,
	ErrorTypeUnknownKind:  http.StatusBadRequest,
	ErrorTypeUnauthorized: http.StatusUnauthorized,
	ErrorTypeConflict:     http.StatusConflict,
	ErrorTypeStoreIO:      http.StatusInternalServerError,
	ErrorTypeInternal:     http.StatusInternalServerError,
}

// AppError is an error with a client-facing message and an HTTP status.
// Message is shown to callers for 4xx statuses only.
type AppError struct {
	Type       ErrorType
	Message    string
	Details    map[string]interface{}
	Cause      error
	HTTPStatus int

	pcs []uintptr
}

func newAppError(t ErrorType, message string) *AppError {
	var pcs [32]uintptr
	// Skip runtime.Callers, newAppError and the exported constructor
	n := runtime.Callers(3, pcs[:])
	return &AppError{
		Type:       t,
		Message:    message,
		HTTPStatus: defaultStatus[t],
		pcs:        pcs[:n],
	}
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails attaches structured context for logs and debug responses.
func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

// WithStatus overrides the HTTP status derived from the type.
func (e *AppError) WithStatus(status int) *AppError {
	e.HTTPStatus = status
	return e
}

// Stack renders the call stack captured when the error was created.
func (e *AppError) Stack() string {
	if len(e.pcs) == 0 {
		return ""
	}
	var b strings.Builder
	frames := runtime.CallersFrames(e.pcs)
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s:%d %s\n", frame.File, frame.Line, frame.Function)
		if !more {
			break
		}
	}
	return b.String()
}

// NewValidationError reports a malformed request.
func NewValidationError(message string) *AppError {
	return newAppError(ErrorTypeValidation, message)
}

// NewValidationErrorf is NewValidationError with a format string.
func NewValidationErrorf(format string, args ...interface{}) *AppError {
	return newAppError(ErrorTypeValidation, fmt.Sprintf(format, args...))
}

// NewNotFoundError reports that resource does not exist. The message reads
// "<resource> not found".
func NewNotFoundError(resource string) *AppError {
	return newAppError(ErrorTypeNotFound, resource+" not found")
}

// NewUnknownKindError reports a content kind that is not recognized.
func NewUnknownKindError(kind string) *AppError {
	return newAppError(ErrorTypeUnknownKind, "Invalid content type: "+kind).
		WithDetails(map[string]interface{}{"kind": kind})
}

func NewUnauthorizedError(message string) *AppError {
	if message == "" {
		message = "unauthorized"
	}
	return newAppError(ErrorTypeUnauthorized, message)
}

// NewConflictError reports a write that lost a race with another writer.
// The caller may retry.
func NewConflictError(message string, err error) *AppError {
	e := newAppError(ErrorTypeConflict, message)
	e.Cause = err
	return e
}

// NewStoreIOError reports a failed read or write of the content document.
func NewStoreIOError(operation string, err error) *AppError {
	e := newAppError(ErrorTypeStoreIO, fmt.Sprintf("document store %s failed", operation))
	e.Cause = err
	return e
}

func NewInternalError(message string) *AppError {
	return newAppError(ErrorTypeInternal, message)
}

// Internal wraps an unexpected error, leaving AppErrors untouched.
func Internal(err error, message string) error {
	if err == nil {
		return nil
	}
	if IsAppError(err) {
		return err
	}
	e := newAppError(ErrorTypeInternal, message)
	e.Cause = err
	return e
}

// GetAppError returns the first AppError in err's chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool {
	return GetAppError(err) != nil
}

// TypeOf classifies err, treating anything that is not an AppError as
// internal. A nil error has no type.
func TypeOf(err error) ErrorType {
	if err == nil {
		return ""
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr.Type
	}
	return ErrorTypeInternal
}

func IsType(err error, t ErrorType) bool {
	return err != nil && TypeOf(err) == t
}

func IsNotFound(err error) bool    { return IsType(err, ErrorTypeNotFound) }
func IsValidation(err error) bool  { return IsType(err, ErrorTypeValidation) }
func IsUnknownKind(err error) bool { return IsType(err, ErrorTypeUnknownKind) }
func IsStoreIO(err error) bool     { return IsType(err, ErrorTypeStoreIO) }
func IsConflict(err error) bool    { return IsType(err, ErrorTypeConflict) }
