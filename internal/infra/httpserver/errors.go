package httpserver

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	appanalyses "github.com/bryanwahyu/endoscan/internal/application/analyses"
	"github.com/bryanwahyu/endoscan/internal/domain/analyses"
	"github.com/bryanwahyu/endoscan/internal/domain/auth"
	"github.com/bryanwahyu/endoscan/internal/domain/feedback"
	"github.com/bryanwahyu/endoscan/internal/domain/profiles"
	"github.com/bryanwahyu/endoscan/internal/domain/reports"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error for one request field.
func NewValidationError(field string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func NewNotFoundError(resource, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewUnauthenticatedError(message string) *APIError {
	return &APIError{
		Status:  http.StatusUnauthorized,
		Code:    "UNAUTHENTICATED",
		Message: message,
	}
}

func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

func NewServiceUnavailableError(message string) *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
	}
}

// toAPIError maps domain errors onto HTTP statuses. Unknown errors become
// a 500 whose details are only exposed outside production.
func toAPIError(err error, exposeDetails bool) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes), errors.Is(err, analyses.ErrFileTooLarge):
		return &APIError{
			Status:  http.StatusRequestEntityTooLarge,
			Code:    "FILE_TOO_LARGE",
			Message: "file exceeds the 500MB upload limit",
		}
	case errors.Is(err, analyses.ErrUnsupportedFileType):
		return &APIError{
			Status:  http.StatusUnsupportedMediaType,
			Code:    "UNSUPPORTED_FILE_TYPE",
			Message: "accepted types are mp4, avi, mov, jpeg, png and webp",
			Details: err.Error(),
		}

	case errors.Is(err, auth.ErrInvalidCredentials):
		return &APIError{
			Status:  http.StatusUnauthorized,
			Code:    "INVALID_CREDENTIALS",
			Message: "invalid email or password",
		}
	case errors.Is(err, auth.ErrUnauthenticated):
		return NewUnauthenticatedError("sign in required")

	case errors.Is(err, analyses.ErrNotFound):
		return NewNotFoundError("analysis", "")
	case errors.Is(err, feedback.ErrNotFound):
		return NewNotFoundError("feedback", "")
	case errors.Is(err, profiles.ErrNotFound):
		return NewNotFoundError("profile", "")
	case errors.Is(err, sql.ErrNoRows):
		return NewNotFoundError("record", "")

	case errors.Is(err, analyses.ErrNotCompleted):
		return &APIError{
			Status:  http.StatusConflict,
			Code:    "NOT_COMPLETED",
			Message: "analysis has not completed yet",
		}
	case errors.Is(err, analyses.ErrInvalidTransition),
		errors.Is(err, analyses.ErrConflict),
		errors.Is(err, feedback.ErrInvalidTransition):
		apiErr := NewConflictError("status cannot change from its current value")
		apiErr.Details = err.Error()
		return apiErr
	case errors.Is(err, profiles.ErrEmailTaken):
		return NewConflictError("email already registered")

	case errors.Is(err, appanalyses.ErrMissingFile):
		return NewValidationError("file", err)
	case errors.Is(err, analyses.ErrInvalidSeverity):
		return NewValidationError("severity", err)
	case errors.Is(err, analyses.ErrInvalidStatus), errors.Is(err, feedback.ErrInvalidStatus):
		return NewValidationError("status", err)
	case errors.Is(err, profiles.ErrInvalidRole):
		return NewValidationError("role", err)
	case errors.Is(err, auth.ErrWeakPassword):
		return NewValidationError("password", err)
	case errors.Is(err, feedback.ErrInvalidFeedback), errors.Is(err, analyses.ErrInvalidAnalysis):
		return NewBadRequestError("invalid request", err)

	case errors.Is(err, reports.ErrNarratorUnavailable):
		return NewServiceUnavailableError("narrative generation unavailable")
	}

	if exposeDetails {
		return NewInternalError("an unexpected error occurred", err)
	}
	return NewInternalError("an unexpected error occurred", nil)
}
