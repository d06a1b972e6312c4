// Package errors carries the error taxonomy shared by the ledger, the
// withdrawal workflow and the HTTP surface. Every failure a caller can act on
// is expressed as an *Error with a stable Kind; infrastructure failures are
// wrapped as KindInternal and must never leak partial writes.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Standard error functions
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// Kind classifies an error for callers and for HTTP status mapping.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindOtpExpired        Kind = "otp_expired"
	KindOtpInvalid        Kind = "otp_invalid"
	KindOtpAlreadyUsed    Kind = "otp_already_used"
	KindInvalidState      Kind = "invalid_state"
	KindAuthFailed        Kind = "auth_failed"
	KindNotFound          Kind = "not_found"
	KindInternal          Kind = "internal"
)

// Error is the domain error type passed between services and the HTTP layer.
type Error struct {
	Kind    Kind
	Message string
	// Fields carries field-level validation messages, keyed by field name.
	Fields map[string][]string
	err    error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// Is matches on Kind so callers can compare against the sentinel
// constructors, e.g. errors.Is(err, errors.InsufficientFunds("")).
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// WithField attaches a field-level message and returns the error.
func (e *Error) WithField(field, message string) *Error {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

// Wrap attaches an underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.err = err
	return e
}

// HTTPStatus maps the error kind to the status code the HTTP surface returns.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation, KindOtpInvalid:
		return http.StatusBadRequest
	case KindOtpExpired, KindOtpAlreadyUsed:
		return http.StatusGone
	case KindAuthFailed:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidState:
		return http.StatusConflict
	case KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Validation(message string) *Error        { return newError(KindValidation, message) }
func InsufficientFunds(message string) *Error { return newError(KindInsufficientFunds, message) }
func OtpExpired(message string) *Error        { return newError(KindOtpExpired, message) }
func OtpInvalid(message string) *Error        { return newError(KindOtpInvalid, message) }
func OtpAlreadyUsed(message string) *Error    { return newError(KindOtpAlreadyUsed, message) }
func InvalidState(message string) *Error      { return newError(KindInvalidState, message) }
func AuthFailed(message string) *Error        { return newError(KindAuthFailed, message) }
func NotFound(message string) *Error          { return newError(KindNotFound, message) }

// Internal wraps an infrastructure failure. The message is safe to surface;
// the cause is for logs only.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Message: message, err: err}
}

// KindOf extracts the Kind from any error, defaulting to KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
