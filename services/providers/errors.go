package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies adapter failures
type ErrorKind string

const (
	// KindConfiguration covers unknown providers and unusable endpoints
	KindConfiguration ErrorKind = "configuration"

	// KindCredential is a missing API key; no request is sent
	KindCredential ErrorKind = "credential"

	// KindTransport covers network failures, timeouts and non-2xx replies
	KindTransport ErrorKind = "transport"

	// KindParse is an undecodable response body
	KindParse ErrorKind = "parse"
)

// ProviderError represents an error from a provider. Message is the
// human-readable text shown to the user in place of a reply.
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Kind of failure
	Kind ErrorKind

	// Message is the user-facing error text
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	return e.Message
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider string, kind ErrorKind, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Kind:       kind,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewCredentialError reports a missing API key environment variable
func NewCredentialError(provider, envVar string) *ProviderError {
	return NewProviderError(provider, KindCredential,
		fmt.Sprintf("Error: %s not found in environment variables", envVar), 0, nil)
}

// NewTransportError wraps a failed round trip. Deadline overruns are
// reported as transport failures too.
func NewTransportError(provider string, err error) *ProviderError {
	msg := err.Error()
	if errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return NewProviderError(provider, KindTransport, "Error: "+msg, 0, err)
}

// NewStatusError reports a non-2xx reply. detail is the upstream error
// message, appended when non-empty.
func NewStatusError(provider, label string, statusCode int, detail string) *ProviderError {
	msg := fmt.Sprintf("Error: %s API returned status code %d", label, statusCode)
	if detail != "" {
		msg += " - " + detail
	}
	return NewProviderError(provider, KindTransport, msg, statusCode, nil)
}

// NewParseError reports an undecodable response body
func NewParseError(provider string, err error) *ProviderError {
	return NewProviderError(provider, KindParse, "Error: failed to parse response: "+err.Error(), 0, err)
}

// KindOf returns the ErrorKind of err, or "" if err is not a *ProviderError
func KindOf(err error) ErrorKind {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Kind
	}
	return ""
}

// IsCredentialError checks if an error is a missing-credential error
func IsCredentialError(err error) bool {
	return KindOf(err) == KindCredential
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	return KindOf(err) == KindTransport
}
