package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError represents a domain-specific error with a code and message
type DomainError struct {
	Code    string
	Message string
	Err     error // underlying error for wrapping
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is and errors.As
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches on Code, so a wrapped error still satisfies errors.Is against
// the predefined sentinel it was built from.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapError wraps an existing error with domain error context
func WrapError(domainErr *DomainError, err error) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: domainErr.Message,
		Err:     err,
	}
}

// WithMessage returns a copy of domainErr carrying a request-specific message.
func WithMessage(domainErr *DomainError, message string) *DomainError {
	return &DomainError{
		Code:    domainErr.Code,
		Message: message,
		Err:     domainErr.Err,
	}
}

// Predefined domain errors
var (
	// Account errors
	ErrDuplicateAccount = NewDomainError("DUPLICATE_ACCOUNT", "account already exists")
	ErrBadCredentials   = NewDomainError("BAD_CREDENTIALS", "invalid email or password")
	ErrAccountNotFound  = NewDomainError("ACCOUNT_NOT_FOUND", "account not found")

	// Refresh token errors
	ErrUnknownRefreshToken = NewDomainError("UNKNOWN_REFRESH_TOKEN", "refresh token does not exist")
	ErrExpiredRefreshToken = NewDomainError("EXPIRED_REFRESH_TOKEN", "refresh token is expired, please sign in again")

	// Access token errors
	ErrTokenMalformed = NewDomainError("TOKEN_MALFORMED", "token is malformed")
	ErrTokenExpired   = NewDomainError("TOKEN_EXPIRED", "token has expired")
	ErrTokenInvalid   = NewDomainError("TOKEN_INVALID", "token signature is invalid")
	ErrUnauthorized   = NewDomainError("UNAUTHORIZED", "unauthorized")

	// OAuth2 provider errors
	ErrInvalidCode         = NewDomainError("INVALID_CODE", "authorization code is invalid")
	ErrProviderUnavailable = NewDomainError("PROVIDER_UNAVAILABLE", "GitHub authentication failed: provider unavailable")
	ErrProviderRejected    = NewDomainError("PROVIDER_REJECTED", "GitHub authentication failed")

	// Validation errors
	ErrInvalidInput = NewDomainError("INVALID_INPUT", "invalid input")

	// System errors
	ErrInternal = NewDomainError("INTERNAL_ERROR", "internal server error")
)

// GetDomainError extracts the domain error from an error
func GetDomainError(err error) *DomainError {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return nil
}

// ToHTTPStatus maps domain errors to HTTP status codes
// This should only be used in the handler/presentation layer
func ToHTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErrorToHTTPStatus(domainErr)
	}

	return http.StatusInternalServerError
}

func domainErrorToHTTPStatus(err *DomainError) int {
	switch err.Code {
	// 400 Bad Request
	case "INVALID_INPUT", "INVALID_CODE":
		return http.StatusBadRequest

	// 401 Unauthorized
	case "UNAUTHORIZED", "BAD_CREDENTIALS", "UNKNOWN_REFRESH_TOKEN", "EXPIRED_REFRESH_TOKEN",
		"TOKEN_MALFORMED", "TOKEN_EXPIRED", "TOKEN_INVALID",
		"PROVIDER_REJECTED", "PROVIDER_UNAVAILABLE":
		return http.StatusUnauthorized

	// 404 Not Found
	case "ACCOUNT_NOT_FOUND":
		return http.StatusNotFound

	// 409 Conflict
	case "DUPLICATE_ACCOUNT":
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}

// GetErrorMessage safely extracts error message
func GetErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Message
	}

	return err.Error()
}

// GetErrorCode returns the domain code, or "" for foreign errors.
func GetErrorCode(err error) string {
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code
	}
	return ""
}
