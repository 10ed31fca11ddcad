package util

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// legacyMessages maps bare error strings raised by older collaborators to a
// response. New code returns *Error instead.
var legacyMessages = map[string]struct {
	kind   Kind
	status int
}{
	"Email already in use":                         {KindConflict, http.StatusConflict},
	"Invalid credentials":                          {KindInvalidCredentials, http.StatusUnauthorized},
	"Unauthorized":                                 {KindUnauthorized, http.StatusUnauthorized},
	"User not found":                               {KindNotFound, http.StatusNotFound},
	"Failed to fetch users":                        {KindInternal, http.StatusInternalServerError},
	"Failed to fetch user":                         {KindInternal, http.StatusInternalServerError},
	"Failed to create user":                        {KindInternal, http.StatusInternalServerError},
	"Failed to delete user":                        {KindInternal, http.StatusInternalServerError},
	"Email and password are required":              {KindBadRequest, http.StatusBadRequest},
	"Password is required":                         {KindBadRequest, http.StatusBadRequest},
	"Name, email, password, and role are required": {KindBadRequest, http.StatusBadRequest},
}

// uniqueViolationMarkers are substrings storage drivers put in unique index
// violations (sqlite and postgres wording).
var uniqueViolationMarkers = []string{
	"UNIQUE constraint failed",
	"violates unique constraint",
}

// ErrorBody is the JSON document written for every failed request.
type ErrorBody struct {
	Error   string      `json:"error"`
	Code    string      `json:"code,omitempty"`
	Details []Violation `json:"details,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Mapper converts arbitrary errors into *Error values and response bodies.
type Mapper struct {
	exposeDetails bool
}

// NewMapper builds a mapper. When exposeDetails is set the cause of internal
// errors is included in responses.
func NewMapper(exposeDetails bool) *Mapper {
	return &Mapper{exposeDetails: exposeDetails}
}

// Map classifies err. It never returns nil for a non-nil err.
func (m *Mapper) Map(err error) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return &Error{Kind: kindForStatus(fiberErr.Code), Message: fiberErr.Message, Status: fiberErr.Code, Err: err}
	}

	if isUniqueViolation(err) {
		return &Error{Kind: KindBadRequest, Message: "Email already exists", Status: http.StatusBadRequest, Err: err}
	}

	if legacy, ok := legacyMessages[err.Error()]; ok {
		return &Error{Kind: legacy.kind, Message: err.Error(), Status: legacy.status, Err: err}
	}

	return NewInternalError(err)
}

// Body renders the client-facing document for e.
func (m *Mapper) Body(e *Error) ErrorBody {
	body := ErrorBody{Error: e.Message, Code: e.Code(), Details: e.Details}
	if e.Kind == KindInternal && m.exposeDetails && e.Err != nil {
		body.Message = e.Err.Error()
	}
	return body
}

func isUniqueViolation(err error) bool {
	msg := err.Error()
	for _, marker := range uniqueViolationMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500:
		return KindInternal
	default:
		return KindBadRequest
	}
}
