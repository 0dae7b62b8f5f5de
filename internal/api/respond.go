// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"

	apperrors "childcare-registration/internal/common/errors"
	"childcare-registration/internal/common/validation"
)

type errorResponse struct {
	Code    apperrors.ErrorCode      `json:"code"`
	Message string                   `json:"message"`
	Details string                   `json:"details,omitempty"`
	Errors  []validation.FieldError  `json:"errors,omitempty"`
	Input   interface{}              `json:"input,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError renders a StandardError. Server-side details stay in the logs.
func writeError(w http.ResponseWriter, stdErr *apperrors.StandardError) {
	status := stdErr.HTTPStatus()
	resp := errorResponse{Code: stdErr.Code, Message: stdErr.Message}
	if status < http.StatusInternalServerError {
		resp.Details = stdErr.Details
	}
	writeJSON(w, status, resp)
}

// writeValidationError answers 422 with every field error and the input as posted.
func writeValidationError(w http.ResponseWriter, errs []validation.FieldError, input interface{}) {
	stdErr := apperrors.NewValidationFailedError(len(errs))
	writeJSON(w, stdErr.HTTPStatus(), errorResponse{
		Code:    stdErr.Code,
		Message: stdErr.Message,
		Errors:  errs,
		Input:   input,
	})
}
