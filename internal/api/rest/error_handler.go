package rest

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	stderrors "errors"

	domainErrors "github.com/recomarket/recomarket-backend/internal/domain/errors"
)

// errorBody is the JSON error envelope
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// writeError maps an error to its HTTP status and writes the error envelope
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, field := mapError(err)

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			"error", err,
			"path", r.URL.Path,
			"request_id", RequestIDFromContext(r.Context()),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Error: errorDetail{
		Code:    code,
		Message: message,
		Field:   field,
	}})
}

func mapError(err error) (status int, code, message, field string) {
	var validationErr *ValidationError
	if stderrors.As(err, &validationErr) {
		return http.StatusBadRequest, "VALIDATION_FAILED", validationErr.Message, validationErr.Field
	}

	var appErr *domainErrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.StatusCode, appErr.Code, appErr.Message, ""
	}

	if stderrors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Resource not found", ""
	}
	if stderrors.Is(err, context.Canceled) {
		return http.StatusRequestTimeout, "REQUEST_CANCELED", "Request was canceled", ""
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusRequestTimeout, "REQUEST_TIMEOUT", "Request timed out", ""
	}

	return http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred", ""
}
