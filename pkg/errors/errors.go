// Package errors defines the error taxonomy shared by the sync hub and its clients.
//
// Every command-level failure is an *AppError. The hub turns it into an `error`
// frame for the originating connection; Message is the user-facing text and is
// the only part ever sent over the wire.
package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of an error
type ErrorType string

const (
	// Connection errors
	ErrorTypeAuth      ErrorType = "AUTH"
	ErrorTypeTransport ErrorType = "TRANSPORT"

	// Command errors
	ErrorTypeValidation          ErrorType = "VALIDATION"
	ErrorTypeRateLimit           ErrorType = "RATE_LIMIT"
	ErrorTypeNotFoundOrForbidden ErrorType = "NOT_FOUND_OR_FORBIDDEN"

	// Infrastructure errors
	ErrorTypeInternal ErrorType = "INTERNAL"
)

// Error codes for programmatic handling
const (
	CodeTokenMissing   = "TOKEN_MISSING"
	CodeSessionInvalid = "SESSION_INVALID"
	CodeBadPayload     = "BAD_PAYLOAD"
	CodeMissingType    = "MISSING_TYPE"
	CodeUnknownType    = "UNKNOWN_TYPE"
	CodeBadContent     = "BAD_CONTENT"
	CodeMissingID      = "MISSING_ID"
)

// User-facing messages, as displayed by the list UI.
const (
	MsgTokenMissing        = "Token manquant."
	MsgSessionInvalid      = "Session invalide."
	MsgBadPayload          = "Payload invalide."
	MsgMissingType         = "Type manquant."
	MsgRateLimited         = "Trop d’actions. Patientez un instant."
	MsgBadContent          = "Contenu requis (1-280 caractères)."
	MsgMissingID           = "Identifiant manquant."
	MsgNotFoundOrForbidden = "Item introuvable ou non autorisé."
	MsgInternal            = "Erreur interne."
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// WithCause wraps an underlying error
func (e *AppError) WithCause(err error) *AppError {
	e.Cause = err
	return e
}

// Constructor functions for common error types

// NewAuthError creates an authentication error
func NewAuthError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeAuth, Code: code, Message: message}
}

// NewTokenMissingError is returned when the handshake carries no token
func NewTokenMissingError() *AppError {
	return NewAuthError(CodeTokenMissing, MsgTokenMissing)
}

// NewSessionInvalidError is returned when the token matches no session
func NewSessionInvalidError() *AppError {
	return NewAuthError(CodeSessionInvalid, MsgSessionInvalid)
}

// NewTransportError creates an error for frames that cannot be decoded
func NewTransportError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeTransport, Code: code, Message: message}
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError() *AppError {
	return &AppError{Type: ErrorTypeRateLimit, Message: MsgRateLimited}
}

// NewNotFoundOrForbiddenError creates the error returned for unknown ids,
// foreign items and items already deleted.
func NewNotFoundOrForbiddenError() *AppError {
	return &AppError{Type: ErrorTypeNotFoundOrForbidden, Message: MsgNotFoundOrForbidden}
}

// NewInternalError creates an internal error
func NewInternalError(err error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Message: MsgInternal, Cause: err}
}

// Helper functions

// GetAppError extracts AppError from an error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == errType
}

// IsAuth checks if an error is an authentication error
func IsAuth(err error) bool {
	return IsType(err, ErrorTypeAuth)
}

// IsValidation checks if an error is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}

// IsRateLimit checks if an error is a rate limit error
func IsRateLimit(err error) bool {
	return IsType(err, ErrorTypeRateLimit)
}

// IsNotFoundOrForbidden checks if an error is a not-found-or-forbidden error
func IsNotFoundOrForbidden(err error) bool {
	return IsType(err, ErrorTypeNotFoundOrForbidden)
}

// IsTransport checks if an error is a transport error
func IsTransport(err error) bool {
	return IsType(err, ErrorTypeTransport)
}

// Wrap converts any error into an *AppError, keeping the type of an existing one.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr := GetAppError(err); appErr != nil {
		return appErr
	}
	return NewInternalError(err)
}
