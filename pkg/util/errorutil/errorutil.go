package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind groups error codes into the taxonomy callers branch on.
type Kind string

const (
	KindValidation     Kind = "validation"
	KindAuthentication Kind = "authentication"
	KindAuthorization  Kind = "authorization"
	KindNotFound       Kind = "not_found"
	KindConflict       Kind = "conflict"
	KindUpload         Kind = "upload"
	KindPersistence    Kind = "persistence"
	KindInternal       Kind = "internal"
)

// Error codes surfaced in API responses.
const (
	CodeValidation      = "VALIDATION_FAILED"
	CodeInvalidStatus   = "INVALID_STATUS"
	CodeInvalidAssignee = "INVALID_ASSIGNEE"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeConflict        = "CONFLICT"
	CodeUploadFailed    = "UPLOAD_FAILED"
	CodePersistence     = "PERSISTENCE_FAILED"
	CodeInternal        = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Kind       Kind
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(kind Kind, code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Kind: kind, Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(KindValidation, CodeValidation, message, http.StatusBadRequest, details)
}

// NewInvalidStatus reports an unrecognized ticket status literal.
func NewInvalidStatus(status string) error {
	return NewDomainError(KindValidation, CodeInvalidStatus, "status must be one of open, in_progress, resolved, closed",
		http.StatusBadRequest, map[string]any{"status": status})
}

// NewInvalidAssignee reports an assignee that cannot take tickets.
func NewInvalidAssignee(assigneeID string, role string) error {
	return NewDomainError(KindValidation, CodeInvalidAssignee, "assignee must be a technician",
		http.StatusBadRequest, map[string]any{"assignee_id": assigneeID, "role": role})
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Kind:       KindNotFound,
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(KindAuthentication, CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(KindAuthorization, CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(KindConflict, CodeConflict, message, http.StatusConflict, details)
}

// NewUploadError wraps a blob store failure. The cause is kept for logs only.
func NewUploadError(err error) error {
	return &DomainError{
		Kind:       KindUpload,
		Code:       CodeUploadFailed,
		Message:    "attachment upload failed, please retry",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// NewPersistenceError wraps a store failure. The cause is kept for logs only.
func NewPersistenceError(err error) error {
	return &DomainError{
		Kind:       KindPersistence,
		Code:       CodePersistence,
		Message:    "storage unavailable, please retry",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInternalError(err error) error {
	return &DomainError{
		Kind:       KindInternal,
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return NewInternalError(err).(*DomainError)
}

func MapError(err error) error {
	return ToDomainError(err)
}

// IsKind reports whether err carries a DomainError of the given kind.
func IsKind(err error, kind Kind) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	return domainErr.Kind == kind
}

// CodeOf returns the DomainError code of err, or an empty string.
func CodeOf(err error) string {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return ""
	}
	return domainErr.Code
}
