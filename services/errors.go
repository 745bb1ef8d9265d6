package services

import (
	"errors"
	"fmt"

	"github.com/upb/multichat/repositories"
	"github.com/upb/multichat/services/chat"
	"github.com/upb/multichat/services/files"
	"github.com/upb/multichat/services/providers"
)

// ErrorType represents the type/category of error
type ErrorType string

const (
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeTooLarge     ErrorType = "too_large"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeExternal     ErrorType = "external"
)

// DomainError represents a structured error with additional context
type DomainError struct {
	Type    ErrorType
	Message string
	Err     error
	Details map[string]interface{}
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches any DomainError of the same type
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// WithDetail returns a copy of the error carrying an extra detail
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{Type: e.Type, Message: e.Message, Err: e.Err, Details: details}
}

// NewDomainError creates a new domain error
func NewDomainError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

var (
	ErrChatNotFound     = NewDomainError(ErrorTypeNotFound, "chat not found", nil)
	ErrProviderNotFound = NewDomainError(ErrorTypeNotFound, "provider not found", nil)

	ErrInvalidInput   = NewDomainError(ErrorTypeValidation, "invalid input", nil)
	ErrInvalidChatID  = NewDomainError(ErrorTypeValidation, "invalid chat id", nil)
	ErrEmptyMessage   = NewDomainError(ErrorTypeValidation, "message cannot be empty", nil)
	ErrTooManyFiles   = NewDomainError(ErrorTypeValidation, "too many files in one upload", nil)
	ErrUploadTooLarge = NewDomainError(ErrorTypeTooLarge, "upload too large", nil)

	ErrUnauthorized = NewDomainError(ErrorTypeUnauthorized, "unauthorized", nil)
	ErrInvalidToken = NewDomainError(ErrorTypeUnauthorized, "invalid authentication token", nil)
	ErrTokenExpired = NewDomainError(ErrorTypeUnauthorized, "authentication token expired", nil)

	ErrInternal           = NewDomainError(ErrorTypeInternal, "internal server error", nil)
	ErrHistoryUnavailable = NewDomainError(ErrorTypeInternal, "chat history unavailable", nil)

	ErrProviderUnavailable = NewDomainError(ErrorTypeExternal, "LLM provider unavailable", nil)
)

// Classify maps errors raised by the chat, history and file layers to
// domain errors. Domain errors and nil pass through unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	switch {
	case errors.Is(err, repositories.ErrChatNotFound):
		return NewDomainError(ErrorTypeNotFound, ErrChatNotFound.Message, err)
	case errors.Is(err, repositories.ErrInvalidChatID):
		return NewDomainError(ErrorTypeValidation, ErrInvalidChatID.Message, err)
	case errors.Is(err, chat.ErrEmptyMessage):
		return NewDomainError(ErrorTypeValidation, ErrEmptyMessage.Message, err)
	case errors.Is(err, files.ErrTooManyFiles):
		return NewDomainError(ErrorTypeValidation, ErrTooManyFiles.Message, err)
	case errors.Is(err, providers.ErrProviderNotFound):
		return NewDomainError(ErrorTypeNotFound, ErrProviderNotFound.Message, err)
	default:
		return WrapInternal(ErrInternal.Message, err)
	}
}

func isType(err error, errType ErrorType) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type == errType
	}
	return false
}

// IsNotFoundError checks if an error is a not found error
func IsNotFoundError(err error) bool {
	return isType(err, ErrorTypeNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrorTypeValidation)
}

// IsUnauthorizedError checks if an error is an unauthorized error
func IsUnauthorizedError(err error) bool {
	return isType(err, ErrorTypeUnauthorized)
}

// IsTooLargeError checks if an error rejects an oversized request
func IsTooLargeError(err error) bool {
	return isType(err, ErrorTypeTooLarge)
}

// IsInternalError checks if an error is an internal error
func IsInternalError(err error) bool {
	return isType(err, ErrorTypeInternal)
}

// IsExternalError checks if an error is an external provider error
func IsExternalError(err error) bool {
	return isType(err, ErrorTypeExternal)
}

// GetErrorType returns the ErrorType of a domain error, or empty string if not a domain error
func GetErrorType(err error) ErrorType {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Type
	}
	return ""
}

// GetErrorDetails returns the details map of a domain error, or nil if not a domain error
func GetErrorDetails(err error) map[string]interface{} {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Details
	}
	return nil
}

// WrapError wraps an error with additional context
func WrapError(errType ErrorType, message string, err error) error {
	return NewDomainError(errType, message, err)
}

// WrapInternal wraps an error as an internal error
func WrapInternal(message string, err error) error {
	return NewDomainError(ErrorTypeInternal, message, err)
}

// WrapExternal wraps an error as an external provider error
func WrapExternal(message string, err error) error {
	return NewDomainError(ErrorTypeExternal, message, err)
}
