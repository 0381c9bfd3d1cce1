package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error independently of its transport mapping.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindPersistence  Kind = "persistence"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Kind    Kind   `json:"-"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches errors sharing the same code so cloned errors still compare
// equal to their predefined template.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || e == nil || t == nil {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error instance.
func New(kind Kind, code string, status int, message string) *Error {
	return &Error{Kind: kind, Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error, inheriting kind and code from the template.
func Wrap(err error, template *Error, message string) *Error {
	wrapped := Clone(template, message)
	wrapped.Err = err
	return wrapped
}

// Predefined errors for common scenarios.
var (
	ErrValidation   = New(KindValidation, "VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrNotFound     = New(KindNotFound, "NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrInternal     = New(KindPersistence, "INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrUnauthorized = New(KindUnauthorized, "UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrForbidden    = New(KindForbidden, "FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrCacheMiss    = New(KindNotFound, "CACHE_MISS", http.StatusNotFound, "cache miss")

	ErrContentNotFound     = New(KindNotFound, "CONTENT_NOT_FOUND", http.StatusNotFound, "content not found")
	ErrVersionNotFound     = New(KindNotFound, "VERSION_NOT_FOUND", http.StatusNotFound, "content version not found")
	ErrNoPendingApproval   = New(KindConflict, "NO_PENDING_APPROVAL", http.StatusConflict, "no pending approval")
	ErrApprovalPending     = New(KindConflict, "APPROVAL_ALREADY_PENDING", http.StatusConflict, "an approval request is already pending")
	ErrContentNotApproved  = New(KindConflict, "CONTENT_NOT_APPROVED", http.StatusConflict, "content must be approved before publishing")
	ErrContentArchived     = New(KindConflict, "CONTENT_ARCHIVED", http.StatusConflict, "content is archived")
	ErrInvalidPreviewToken = New(KindUnauthorized, "INVALID_PREVIEW_TOKEN", http.StatusUnauthorized, "preview link is invalid or expired")
	ErrUnsupportedFormat   = New(KindValidation, "UNSUPPORTED_FORMAT", http.StatusBadRequest, "unsupported format")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal, ErrInternal.Message)
}

// KindOf reports the kind of err; untyped errors are persistence failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return FromError(err).Kind
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
