package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode is the stable, machine-readable error identifier returned to clients.
type ErrorCode string

const (
	CodeInvalidInput           ErrorCode = "invalid_input"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeForbidden              ErrorCode = "forbidden"
	CodeNotOwner               ErrorCode = "not_owner"
	CodeNotFound               ErrorCode = "not_found"
	CodeSlotTaken              ErrorCode = "slot_taken"
	CodeInvalidTransition      ErrorCode = "invalid_transition"
	CodeAlreadyTerminal        ErrorCode = "already_terminal"
	CodeServiceInactive        ErrorCode = "service_inactive"
	CodeOutsideOperatingWindow ErrorCode = "outside_operating_window"
	CodeTooLateToCancel        ErrorCode = "too_late_to_cancel"
	CodeRateLimited            ErrorCode = "rate_limited"
	CodeInternal               ErrorCode = "internal"
	CodeUnavailable            ErrorCode = "unavailable"
	CodeTimeout                ErrorCode = "timeout"
)

// AppError represents an application error
type AppError struct {
	Code    ErrorCode   `json:"code"`
	Status  int         `json:"-"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Err     error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(status int, code ErrorCode, message string, err error) *AppError {
	return &AppError{Code: code, Status: status, Message: message, Err: err}
}

// WithDetails attaches client-visible details, such as field errors.
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

func NotFound(resource string, err error) *AppError {
	return New(http.StatusNotFound, CodeNotFound, fmt.Sprintf("%s not found", resource), err)
}

func BadRequest(message string, err error) *AppError {
	return New(http.StatusBadRequest, CodeInvalidInput, message, err)
}

func Unauthorized(err error) *AppError {
	return New(http.StatusUnauthorized, CodeUnauthorized, "unauthorized", err)
}

func Forbidden(code ErrorCode, message string, err error) *AppError {
	return New(http.StatusForbidden, code, message, err)
}

func Conflict(code ErrorCode, message string, err error) *AppError {
	return New(http.StatusConflict, code, message, err)
}

func Unprocessable(code ErrorCode, message string, err error) *AppError {
	return New(http.StatusUnprocessableEntity, code, message, err)
}

func Internal(err error) *AppError {
	return New(http.StatusInternalServerError, CodeInternal, "internal server error", err)
}

func Unavailable(message string, err error) *AppError {
	return New(http.StatusServiceUnavailable, CodeUnavailable, message, err)
}

// As returns err as an *AppError when it is or wraps one.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}
