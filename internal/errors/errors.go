// Package errors provides centralized error definitions and error handling
// utilities for the collaboration core. It defines sentinel errors, typed
// errors carrying context, and classification helpers.
//
// # Error Types
//
// Domain-specific errors:
//   - InvalidCodeError: a join attempted with a malformed session code
//   - SessionError: errors related to the session lifecycle
//
// Semantic errors:
//   - NotFoundError: resource not found
//   - AlreadyExistsError: resource already exists
//   - ValidationError: invalid input
//
// Two conditions are deliberately not errors at all: releasing an edit lock
// the caller no longer holds, and toggling a comment that does not exist.
// Both are silent no-ops so lagging UI handlers cannot crash the caller.
//
// # Usage
//
//	err := errors.NewInvalidCodeError("ABC")
//	if errors.Is(err, errors.ErrInvalidCode) { ... }
//
//	var sessErr *errors.SessionError
//	if errors.As(err, &sessErr) { ... }
//
//	// Status lines show only user-facing messages, styled by severity.
//	if errors.IsUserFacing(err) && errors.GetSeverity(err) <= errors.SeverityWarning { ... }
//
//	return errors.Wrapf(err, "cvstore: put %s", key)
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is  = errors.Is
	As  = errors.As
	New = errors.New
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Session-related sentinel errors
var (
	// ErrInvalidCode indicates a join code that is not 6 characters long.
	ErrInvalidCode = New("invalid session code")
	// ErrSessionActive indicates a start while a session is already active.
	ErrSessionActive = New("session already active")
	// ErrSessionInactive indicates an operation that needs an active session.
	ErrSessionInactive = New("session is not active")
)

// Participant-related sentinel errors
var (
	// ErrParticipantExists indicates a participant ID already on the roster.
	ErrParticipantExists = New("participant already in session")
	// ErrParticipantNotFound indicates a participant ID not on the roster.
	ErrParticipantNotFound = New("participant not found")
)

// General sentinel errors
var (
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Implementation
// -----------------------------------------------------------------------------

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Is checks if this error matches the target.
func (e *baseError) Is(target error) bool {
	if e.cause != nil {
		return errors.Is(e.cause, target)
	}
	return false
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Domain-Specific Errors
// -----------------------------------------------------------------------------

// InvalidCodeError reports a join attempted with a code of the wrong shape.
// It matches ErrInvalidCode under errors.Is.
type InvalidCodeError struct {
	baseError
	Code string
}

// NewInvalidCodeError creates an InvalidCodeError for the rejected code.
func NewInvalidCodeError(code string) *InvalidCodeError {
	return &InvalidCodeError{
		baseError: baseError{
			message:    "session code must be 6 characters",
			cause:      ErrInvalidCode,
			severity:   SeverityWarning,
			userFacing: true,
		},
		Code: code,
	}
}

// Error returns the formatted error message.
func (e *InvalidCodeError) Error() string {
	return fmt.Sprintf("invalid code %q: %s", e.Code, e.message)
}

// SessionError represents errors related to the session lifecycle.
//
// Example:
//
//	err := errors.NewSessionError("cannot start", errors.ErrSessionActive).WithCode("K3Q9ZX")
//	fmt.Println(err) // "session error [code=K3Q9ZX]: cannot start: session already active"
type SessionError struct {
	baseError
	SessionID string
	Code      string
}

// NewSessionError creates a new SessionError.
func NewSessionError(message string, cause error) *SessionError {
	return &SessionError{
		baseError: baseError{
			message:    message,
			cause:      cause,
			severity:   SeverityError,
			userFacing: true,
		},
	}
}

// WithSessionID adds a session ID to the error context.
func (e *SessionError) WithSessionID(id string) *SessionError {
	e.SessionID = id
	return e
}

// WithCode adds a session code to the error context.
func (e *SessionError) WithCode(code string) *SessionError {
	e.Code = code
	return e
}

// WithSeverity sets the error severity.
func (e *SessionError) WithSeverity(s Severity) *SessionError {
	e.severity = s
	return e
}

// Error returns the formatted error message.
func (e *SessionError) Error() string {
	var parts []string
	if e.SessionID != "" {
		parts = append(parts, fmt.Sprintf("session=%s", e.SessionID))
	}
	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	prefix := "session error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("session error [%s]", strings.Join(parts, ", "))
	}

	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *SessionError) Is(target error) bool {
	if _, ok := target.(*SessionError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError indicates that a requested resource was not found.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found", resourceType),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds an underlying cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
	}
	return fmt.Sprintf("%s not found", e.ResourceType)
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	if _, ok := target.(*NotFoundError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// AlreadyExistsError indicates that a resource already exists.
type AlreadyExistsError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(resourceType, resourceID string) *AlreadyExistsError {
	return &AlreadyExistsError{
		baseError: baseError{
			message:    fmt.Sprintf("%s already exists", resourceType),
			severity:   SeverityWarning,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds an underlying cause to the error.
func (e *AlreadyExistsError) WithCause(cause error) *AlreadyExistsError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *AlreadyExistsError) Error() string {
	if e.ResourceID != "" {
		return fmt.Sprintf("%s already exists: %s", e.ResourceType, e.ResourceID)
	}
	return fmt.Sprintf("%s already exists", e.ResourceType)
}

// Is checks if this error matches the target.
func (e *AlreadyExistsError) Is(target error) bool {
	if _, ok := target.(*AlreadyExistsError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// ValidationError indicates that input validation failed.
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			cause:      ErrInvalidInput,
			severity:   SeverityWarning,
			userFacing: true,
		},
	}
}

// WithField sets the field that failed validation.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue sets the invalid value.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		if e.Value != nil {
			return fmt.Sprintf("validation error [%s=%v]: %s", e.Field, e.Value, e.message)
		}
		return fmt.Sprintf("validation error [%s]: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return e.baseError.Is(target)
}

// -----------------------------------------------------------------------------
// Classification Helpers
// -----------------------------------------------------------------------------

type userFacer interface {
	IsUserFacing() bool
}

type severer interface {
	Severity() Severity
}

// IsUserFacing reports whether any error in the chain is marked safe to show
// to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	var uf userFacer
	if errors.As(err, &uf) {
		return uf.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity of the first classified error in the
// chain, or SeverityError for unclassified errors.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}
	var s severer
	if errors.As(err, &s) {
		return s.Severity()
	}
	return SeverityError
}

// -----------------------------------------------------------------------------
// Wrapping Helpers
// -----------------------------------------------------------------------------

// Wrap annotates err with a message. Returns nil if err is nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf annotates err with a formatted message. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
