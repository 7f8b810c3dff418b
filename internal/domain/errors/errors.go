package errors

import (
	"errors"
	"fmt"
)

// Error types for different domains
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeAuthorization ErrorType = "authorization"
	ErrorTypeStateConflict ErrorType = "state_conflict"
	ErrorTypeNotFound      ErrorType = "not_found"
	ErrorTypeConsistency   ErrorType = "consistency"
	ErrorTypeInternal      ErrorType = "internal"
	ErrorTypeExternal      ErrorType = "external"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType              `json:"type"`
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Retryable  bool                   `json:"retryable"`
	StatusCode int                    `json:"status_code"`
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

func (e *AppError) WithDetails(details map[string]interface{}) *AppError {
	e.Details = details
	return e
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// Error constructors

// NewValidationError covers malformed input rejected before any state is
// touched. Safe to retry after correcting the input.
func NewValidationError(code, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

// NewInvalidPriceError rejects a non-positive offer price.
func NewInvalidPriceError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       "INVALID_PRICE",
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

// NewInvalidOfferError rejects an offer that does not belong to the sell
// request being awarded, or is otherwise not awardable.
func NewInvalidOfferError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       "INVALID_OFFER",
		Message:    message,
		Retryable:  false,
		StatusCode: 400,
	}
}

// NewNotOwnerError rejects a requester without rights over the entity. Never
// retryable with the same identity.
func NewNotOwnerError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeAuthorization,
		Code:       "NOT_OWNER",
		Message:    message,
		Retryable:  false,
		StatusCode: 403,
	}
}

// State-conflict constructors. The operation is individually valid but the
// entity's current state forbids it; callers should re-fetch before retrying.

func NewRequestNotOpenError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStateConflict,
		Code:       "REQUEST_NOT_OPEN",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewDuplicateOfferError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStateConflict,
		Code:       "DUPLICATE_OFFER",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewAlreadyResolvedError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStateConflict,
		Code:       "OFFER_ALREADY_RESOLVED",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewInvalidTransitionError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeStateConflict,
		Code:       "INVALID_TRANSITION",
		Message:    message,
		Retryable:  false,
		StatusCode: 409,
	}
}

func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       "RESOURCE_NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		Retryable:  false,
		StatusCode: 404,
	}
}

// NewPartialAwardError reports that the multi-row effect of an award could not
// be fully applied and compensating rollback has already been attempted.
func NewPartialAwardError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeConsistency,
		Code:       "PARTIAL_AWARD",
		Message:    message,
		Retryable:  false,
		StatusCode: 500,
	}
}

func NewInternalError(message string) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		Retryable:  true,
		StatusCode: 500,
	}
}

func NewExternalError(service, message string) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       "EXTERNAL_SERVICE_ERROR",
		Message:    fmt.Sprintf("%s service error: %s", service, message),
		Retryable:  true,
		StatusCode: 502,
		Details:    map[string]interface{}{"service": service},
	}
}

// Predefined common errors
var (
	ErrSellRequestNotFound = NewNotFoundError("sell request")
	ErrOfferNotFound       = NewNotFoundError("offer")
	ErrTransactionNotFound = NewNotFoundError("transaction")
)

// Wrap wraps an error with a message using fmt.Errorf with %w
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsType checks if an error is of a specific type
func IsType(err error, errorType ErrorType) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type == errorType
	}
	return false
}

// IsCode checks if an error carries a specific error code
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Retryable
	}
	return false
}

// GetStatusCode extracts HTTP status code from error
func GetStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}
	return 500
}
