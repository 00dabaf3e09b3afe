// Package errors defines AppError, the coded error every layer returns so the
// HTTP layer can pick a status without string matching.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode classifies an AppError. Codes double as the "code" field of API
// error bodies and as metric tag values.
type ErrorCode string

const (
	ErrCodeNotFound     ErrorCode = "not_found"
	ErrCodeConflict     ErrorCode = "conflict"
	ErrCodeValidation   ErrorCode = "validation"
	ErrCodeForeignKey   ErrorCode = "foreign_key"
	ErrCodeInternal     ErrorCode = "internal"
	ErrCodeTimeout      ErrorCode = "timeout"
	ErrCodeCanceled     ErrorCode = "canceled"
	ErrCodeForbidden    ErrorCode = "forbidden"
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeInvalidPhone marks a phone number that is not a US number.
	ErrCodeInvalidPhone ErrorCode = "invalid_phone_format"
	// ErrCodeDeliveryFailure marks a failed notification. It surfaces as a
	// warning on the mutation that triggered it, never as the mutation's error.
	ErrCodeDeliveryFailure ErrorCode = "delivery_failure"
)

// AppError is a coded error with a client-safe message. Field names the
// offending input for validation errors.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Field   string
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newErr(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func NotFound(message string) *AppError { return newErr(ErrCodeNotFound, message) }

func NotFoundf(format string, args ...any) *AppError {
	return newErr(ErrCodeNotFound, fmt.Sprintf(format, args...))
}

func Conflict(message string) *AppError   { return newErr(ErrCodeConflict, message) }
func Validation(message string) *AppError { return newErr(ErrCodeValidation, message) }
func ForeignKey(message string) *AppError { return newErr(ErrCodeForeignKey, message) }
func Internal(message string) *AppError   { return newErr(ErrCodeInternal, message) }

func Internalf(format string, args ...any) *AppError {
	return newErr(ErrCodeInternal, fmt.Sprintf(format, args...))
}

// Forbidden is returned by role checks.
func Forbidden(message string) *AppError { return newErr(ErrCodeForbidden, message) }

// Unauthorized is returned for a missing session or bad credentials.
func Unauthorized(message string) *AppError { return newErr(ErrCodeUnauthorized, message) }

// ValidationField is a validation error attributed to one input field.
func ValidationField(field, message string) *AppError {
	e := newErr(ErrCodeValidation, message)
	e.Field = field
	return e
}

// InvalidPhone reports raw as not normalizable to a 10-digit US number.
func InvalidPhone(raw string) *AppError {
	e := newErr(ErrCodeInvalidPhone, fmt.Sprintf("phone number %q cannot be normalized to a US number", raw))
	e.Field = "phone"
	return e
}

// DeliveryFailure wraps a sink error.
func DeliveryFailure(err error, message string) *AppError {
	e := newErr(ErrCodeDeliveryFailure, message)
	e.Cause = err
	return e
}

func isCode(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

func IsNotFound(err error) bool     { return isCode(err, ErrCodeNotFound) }
func IsConflict(err error) bool     { return isCode(err, ErrCodeConflict) }
func IsValidation(err error) bool   { return isCode(err, ErrCodeValidation) }
func IsForbidden(err error) bool    { return isCode(err, ErrCodeForbidden) }
func IsUnauthorized(err error) bool { return isCode(err, ErrCodeUnauthorized) }
func IsInvalidPhone(err error) bool { return isCode(err, ErrCodeInvalidPhone) }

// GetCode returns the code of the first AppError in err's chain, or "".
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field of the first AppError in err's chain, or "".
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
