package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeRateLimited  ErrorType = "RATE_LIMITED"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidBody      ErrorCode = "INVALID_REQUEST_BODY"
	ErrCodeBodyTooLarge     ErrorCode = "REQUEST_BODY_TOO_LARGE"
	ErrCodeInvalidID        ErrorCode = "INVALID_ID"
	ErrCodeInvalidLocation  ErrorCode = "INVALID_LOCATION"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"

	ErrCodePermitNotFound       ErrorCode = "PERMIT_NOT_FOUND"
	ErrCodeDuplicateWPNumber    ErrorCode = "DUPLICATE_WP_NUMBER"
	ErrCodeInvalidPermitStatus  ErrorCode = "INVALID_PERMIT_STATUS"
	ErrCodeInvalidEstimatedDays ErrorCode = "INVALID_ESTIMATED_DAYS"
	ErrCodePermitFinalized      ErrorCode = "PERMIT_FINALIZED"

	ErrCodeUserNotFound   ErrorCode = "USER_NOT_FOUND"
	ErrCodeAdminNotFound  ErrorCode = "ADMIN_NOT_FOUND"
	ErrCodeEmailTaken     ErrorCode = "EMAIL_TAKEN"
	ErrCodeSelfDelete     ErrorCode = "SELF_DELETE"
	ErrCodeLastAdmin      ErrorCode = "LAST_ADMIN"
	ErrCodeAdminRequired  ErrorCode = "ADMIN_REQUIRED"
	ErrCodeWeakPassword   ErrorCode = "WEAK_PASSWORD"
	ErrCodeInvalidToggle  ErrorCode = "INVALID_TOGGLE"
	ErrCodeRateLimited    ErrorCode = "RATE_LIMITED"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeMissingToken       ErrorCode = "MISSING_TOKEN"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithCause returns a copy so the package-level sentinels stay untouched.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// Is matches on type and code, so wrapped copies of a sentinel still compare equal.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Type == t.Type && e.Code == t.Code
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

var (
	ErrInvalidRequestBody = NewValidationError("Invalid request body", ErrCodeInvalidBody)
	ErrInvalidID          = NewValidationError("Invalid id", ErrCodeInvalidID)
	ErrBodyTooLarge       = &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeBodyTooLarge,
		Message:    "Request body too large",
		StatusCode: http.StatusRequestEntityTooLarge,
	}

	ErrPermitNotFound      = NewNotFoundError("Permit not found", ErrCodePermitNotFound)
	ErrDuplicateWPNumber   = NewConflictError("WP Number already exists", ErrCodeDuplicateWPNumber)
	ErrInvalidPermitStatus = NewValidationError("Status must be either approved or rejected", ErrCodeInvalidPermitStatus)
	ErrPermitFinalized     = NewConflictError("Permit has already been finalized", ErrCodePermitFinalized)

	ErrUserNotFound  = NewNotFoundError("User not found", ErrCodeUserNotFound)
	ErrAdminNotFound = NewNotFoundError("Admin not found", ErrCodeAdminNotFound)
	ErrEmailTaken    = NewConflictError("User with this email already exists", ErrCodeEmailTaken)
	ErrEmailInUse    = NewConflictError("Email is already taken by another user", ErrCodeEmailTaken)
	ErrSelfDelete    = NewValidationError("You cannot delete your own account", ErrCodeSelfDelete)
	ErrLastAdmin     = NewValidationError("Cannot delete the last admin. At least one admin must exist.", ErrCodeLastAdmin)
	ErrAdminRequired = NewForbiddenError("Access denied. Admin only.", ErrCodeAdminRequired)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrMissingToken       = NewUnauthorizedError("No token, authorization denied", ErrCodeMissingToken)
	ErrInvalidToken       = NewUnauthorizedError("Token is not valid", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)

	ErrRateLimited = &AppError{
		Type:       ErrorTypeRateLimited,
		Code:       ErrCodeRateLimited,
		Message:    "Too many requests, please try again later",
		StatusCode: http.StatusTooManyRequests,
	}
)

func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
