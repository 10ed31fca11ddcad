package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error. Each kind doubles as the public
// error code written to clients.
type Kind string

const (
	KindNoToken            Kind = "NO_TOKEN"
	KindTokenExpired       Kind = "TOKEN_EXPIRED"
	KindInvalidToken       Kind = "INVALID_TOKEN"
	KindAuthFailed         Kind = "AUTH_FAILED"
	KindUnauthorized       Kind = "UNAUTHORIZED"
	KindForbidden          Kind = "INSUFFICIENT_PERMISSIONS"
	KindValidationFailed   Kind = "VALIDATION_FAILED"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindBadRequest         Kind = "BAD_REQUEST"
	KindUpstream           Kind = "UPSTREAM_FAILED"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Violation is a single constraint failure found while validating input.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error standardizes application errors. Message is always safe to show to
// clients; Err holds the internal cause.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Details []Violation
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code returns the public error code.
func (e *Error) Code() string {
	return string(e.Kind)
}

// Is matches errors of the same kind, so errors.Is(err, &Error{Kind: KindNotFound}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// NewError constructs an Error.
func NewError(kind Kind, message string, status int) *Error {
	return &Error{Kind: kind, Message: message, Status: status}
}

func NewNoToken() *Error {
	return NewError(KindNoToken, "No token provided", http.StatusUnauthorized)
}

func NewTokenExpired() *Error {
	return NewError(KindTokenExpired, "Token expired. Please login again", http.StatusUnauthorized)
}

func NewInvalidToken() *Error {
	return NewError(KindInvalidToken, "Invalid token", http.StatusUnauthorized)
}

func NewAuthFailed(err error) *Error {
	e := NewError(KindAuthFailed, "Authentication failed", http.StatusUnauthorized)
	e.Err = err
	return e
}

func NewUnauthorized() *Error {
	return NewError(KindUnauthorized, "Unauthorized", http.StatusUnauthorized)
}

func NewForbidden() *Error {
	return NewError(KindForbidden, "Forbidden: Insufficient permissions", http.StatusForbidden)
}

func NewValidationError(details []Violation) *Error {
	e := NewError(KindValidationFailed, "Invalid data", http.StatusBadRequest)
	e.Details = details
	return e
}

func NewInvalidCredentials() *Error {
	return NewError(KindInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func NewNotFound(resource string) *Error {
	return NewError(KindNotFound, fmt.Sprintf("%s not found", resource), http.StatusNotFound)
}

func NewConflict(message string) *Error {
	return NewError(KindConflict, message, http.StatusConflict)
}

func NewBadRequest(message string) *Error {
	return NewError(KindBadRequest, message, http.StatusBadRequest)
}

// NewUpstreamError reports a failed call to a third party. The message is
// public, the cause is not.
func NewUpstreamError(message string, err error) *Error {
	e := NewError(KindUpstream, message, http.StatusInternalServerError)
	e.Err = err
	return e
}

func NewInternalError(err error) *Error {
	e := NewError(KindInternal, "Internal server error", http.StatusInternalServerError)
	e.Err = err
	return e
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
