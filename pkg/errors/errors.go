package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors shared by the client, the mock and the host handlers.
var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrConflict       = errors.New("conflict")
	ErrInternal       = errors.New("internal error")
	ErrServiceUnavail = errors.New("service unavailable")
	ErrPaymentFailed  = errors.New("payment failed")
)

// AppError represents a structured application error with HTTP status mapping.
// Details carries an optional payload (for example the provider's error body)
// that handlers echo back to the caller.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New builds an AppError with an explicit code, status and sentinel.
func New(code, message string, status int, sentinel error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     sentinel,
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return New("NOT_FOUND", fmt.Sprintf("%s with id %s not found", resource, id), http.StatusNotFound, ErrNotFound)
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return New("INVALID_INPUT", message, http.StatusBadRequest, ErrInvalidInput)
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return New("UNAUTHORIZED", message, http.StatusUnauthorized, ErrUnauthorized)
}

// Conflict creates a 409 error.
func Conflict(message string) *AppError {
	return New("CONFLICT", message, http.StatusConflict, ErrConflict)
}

// Internal creates a 500 error. The wrapped error is kept for logging only.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// PaymentFailed creates a 402 error for a charge the provider refused or that
// never reached the provider. details is echoed to the caller.
func PaymentFailed(message string, details any) *AppError {
	return &AppError{
		Code:    "PAYMENT_FAILED",
		Message: message,
		Details: details,
		Status:  http.StatusPaymentRequired,
		Err:     ErrPaymentFailed,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrPaymentFailed):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrServiceUnavail):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
