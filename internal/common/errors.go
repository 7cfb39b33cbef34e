package common

import (
	"errors"
	"fmt"
	"net/http"
)

// Code is the stable appCode token written into error envelopes.
type Code string

const (
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeNotFound         Code = "NOT_FOUND"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodeMethodNotAllowed Code = "METHOD_NOT_ALLOWED"
	CodeTooManyRequests  Code = "TOO_MANY_REQUESTS"
	CodeInternal         Code = "INTERNAL_ERROR"
)

func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case CodeTooManyRequests:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// FieldError is one violated rule on an inbound payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type AppError struct {
	Code    Code         `json:"appCode"`
	Message string       `json:"message"`
	Details []FieldError `json:"errors,omitempty"`
	Cause   error        `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Cause }

// Is matches any AppError of the same code, so errors.Is(err, ErrNotFound) works on wrapped values.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks.
var (
	ErrValidation   = &AppError{Code: CodeValidation}
	ErrNotFound     = &AppError{Code: CodeNotFound}
	ErrUnauthorized = &AppError{Code: CodeUnauthorized}
	ErrForbidden    = &AppError{Code: CodeForbidden}
	ErrRateLimited  = &AppError{Code: CodeTooManyRequests}
	ErrInternal     = &AppError{Code: CodeInternal}
)

func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *AppError {
	return &AppError{Code: code, Message: message, Cause: cause}
}

func ValidationError(message string, details ...FieldError) *AppError {
	return &AppError{Code: CodeValidation, Message: message, Details: details}
}

func NotFoundError(message string, cause error) *AppError {
	return Wrap(CodeNotFound, message, cause)
}

func UnauthorizedError(message string) *AppError {
	return New(CodeUnauthorized, message)
}

func ForbiddenError(message string) *AppError {
	return New(CodeForbidden, message)
}

func RateLimitError(message string) *AppError {
	return New(CodeTooManyRequests, message)
}

func InternalError(message string, cause error) *AppError {
	return Wrap(CodeInternal, message, cause)
}

// AsAppError returns err as an *AppError, hiding anything else behind INTERNAL_ERROR.
func AsAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return InternalError("Internal server error", err)
}
