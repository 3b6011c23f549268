// Package apperrors defines the coded errors shared by the HTTP and
// WebSocket surfaces.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Code identifies an error kind on the wire.
type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeAuthentication    Code = "AUTHENTICATION_ERROR"
	CodeAuthorization     Code = "AUTHORIZATION_ERROR"
	CodeNotFound          Code = "NOT_FOUND"
	CodeRateLimitExceeded Code = "RATE_LIMIT_EXCEEDED"
	CodeInvalidInput      Code = "INVALID_INPUT"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeMessageError      Code = "WEBSOCKET_MESSAGE_ERROR"
	CodeRoomNotFound      Code = "ROOM_NOT_FOUND"
	CodeRoomFull          Code = "ROOM_FULL"
	CodeGameNotActive     Code = "GAME_NOT_ACTIVE"
	CodeInvalidGameState  Code = "INVALID_GAME_STATE"
	CodeUserNotFound      Code = "USER_NOT_FOUND"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeUserAlreadyInRoom Code = "USER_ALREADY_IN_ROOM"
	CodeUsernameTaken     Code = "USERNAME_TAKEN"
	CodeKickedFromRoom    Code = "KICKED_FROM_ROOM"
)

// AppError is an error with a wire code and optional structured details.
type AppError struct {
	Code       Code           `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	RetryAfter time.Duration  `json:"-"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is makes errors.Is match on the code so handlers can compare against
// template errors without caring about the message.
func (e *AppError) Is(target error) bool {
	var other *AppError
	if errors.As(target, &other) {
		return e.Code == other.Code
	}
	return false
}

// Is reports whether err is an AppError carrying the given code.
func Is(err error, code Code) bool {
	var ae *AppError
	return errors.As(err, &ae) && ae.Code == code
}

// New creates an AppError with the given code and message.
func New(code Code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with a formatted message.
func Newf(code Code, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetails attaches structured details to a copy of the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

// RateLimited builds the standard rate-limit rejection carrying retryAfter.
func RateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Code:       CodeRateLimitExceeded,
		Message:    "rate limit exceeded",
		RetryAfter: retryAfter,
		Details:    map[string]any{"retryAfter": retryAfter.Milliseconds()},
	}
}

// From converts any error into an AppError, wrapping unknown errors as
// internal so raw error text never leaks to clients.
func From(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return New(CodeInternal, "internal server error")
}

// HTTPStatus maps an error code to the matching HTTP status.
func (e *AppError) HTTPStatus() int {
	switch e.Code {
	case CodeValidation, CodeInvalidInput:
		return http.StatusBadRequest
	case CodeAuthentication:
		return http.StatusUnauthorized
	case CodeAuthorization, CodePermissionDenied, CodeKickedFromRoom:
		return http.StatusForbidden
	case CodeNotFound, CodeRoomNotFound, CodeUserNotFound:
		return http.StatusNotFound
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeRoomFull, CodeUserAlreadyInRoom, CodeUsernameTaken,
		CodeGameNotActive, CodeInvalidGameState:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
