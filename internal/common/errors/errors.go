// internal/common/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ErrorCode string

const (
	ErrCodeValidationFailed  ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidPayload    ErrorCode = "INVALID_PAYLOAD"
	ErrCodeApplicationLocked ErrorCode = "APPLICATION_LOCKED"

	ErrCodeApplicationNotFound     ErrorCode = "APPLICATION_NOT_FOUND"
	ErrCodeInvalidStatusTransition ErrorCode = "INVALID_STATUS_TRANSITION"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodePersistenceFailed        ErrorCode = "PERSISTENCE_FAILED"

	ErrCodeSearchQueryFailed      ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeWorkflowStartFailed    ErrorCode = "WORKFLOW_START_FAILED"

	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeTimeout      ErrorCode = "TIMEOUT_ERROR"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// HTTPStatus maps the error code to the status returned by the registration API.
func (e *StandardError) HTTPStatus() int {
	switch e.Code {
	case ErrCodeValidationFailed:
		return http.StatusUnprocessableEntity
	case ErrCodeInvalidPayload:
		return http.StatusBadRequest
	case ErrCodeApplicationLocked, ErrCodeInvalidStatusTransition:
		return http.StatusConflict
	case ErrCodeApplicationNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeDatabaseConnectionFailed, ErrCodeSearchQueryFailed:
		return http.StatusServiceUnavailable
	case ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

func newError(code ErrorCode, message, details string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

func NewValidationFailedError(errorCount int) *StandardError {
	return newError(ErrCodeValidationFailed,
		"Please correct the errors in the form",
		fmt.Sprintf("%d field errors", errorCount), false)
}

func NewInvalidPayloadError(details string) *StandardError {
	return newError(ErrCodeInvalidPayload, "Request payload is malformed", details, false)
}

func NewApplicationLockedError(applicationID string) *StandardError {
	return newError(ErrCodeApplicationLocked,
		"Application has already been submitted",
		fmt.Sprintf("applicationId: %s", applicationID), false)
}

func NewApplicationNotFoundError(applicationID string) *StandardError {
	return newError(ErrCodeApplicationNotFound, "Application not found",
		fmt.Sprintf("applicationId: %s", applicationID), false)
}

func NewInvalidStatusTransitionError(from, to string) *StandardError {
	return newError(ErrCodeInvalidStatusTransition, "Status transition not allowed",
		fmt.Sprintf("from %s to %s", from, to), false)
}

func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", err.Error(), true)
}

// NewPersistenceFailedError hides storage details from the caller; Details is for logs only.
func NewPersistenceFailedError(err error) *StandardError {
	return newError(ErrCodePersistenceFailed,
		"We could not save your application, please try again", err.Error(), true)
}

func NewSearchQueryFailedError(err error) *StandardError {
	return newError(ErrCodeSearchQueryFailed, "Search query failed", err.Error(), true)
}

func NewNotificationSendFailedError(err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification could not be sent", err.Error(), true)
}

func NewWorkflowStartFailedError(err error) *StandardError {
	return newError(ErrCodeWorkflowStartFailed, "Review workflow could not be started", err.Error(), true)
}

func NewUnauthorizedError(details string) *StandardError {
	return newError(ErrCodeUnauthorized, "Authentication required", details, false)
}

func NewForbiddenError(role string) *StandardError {
	return newError(ErrCodeForbidden, "Access denied", fmt.Sprintf("role %q required", role), false)
}

func NewExternalServiceError(service string, err error) *StandardError {
	return newError("EXTERNAL_SERVICE_ERROR",
		fmt.Sprintf("External service '%s' error", service), err.Error(), true)
}

func NewTimeoutError(service string, err error) *StandardError {
	return newError(ErrCodeTimeout, fmt.Sprintf("Service '%s' timeout", service), err.Error(), true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error(), false)
}

// AsStandardError unwraps err into a StandardError, wrapping unknown errors as INTERNAL_ERROR.
func AsStandardError(err error) *StandardError {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodePersistenceFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeNotificationSendFailed,
		ErrCodeWorkflowStartFailed:
		return 3
	case "TIMEOUT_ERROR", "EXTERNAL_SERVICE_ERROR":
		return 2
	default:
		return 0
	}
}

func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

func GetErrorCategory(code ErrorCode) string {
	switch {
	case code == ErrCodeValidationFailed || code == ErrCodeInvalidPayload:
		return "validation"
	case strings.HasPrefix(string(code), "DATABASE_") || code == ErrCodePersistenceFailed:
		return "persistence"
	case code == ErrCodeApplicationLocked || code == ErrCodeInvalidStatusTransition || code == ErrCodeApplicationNotFound:
		return "business"
	default:
		return "technical"
	}
}

func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
