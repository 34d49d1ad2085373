package courier

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a courier error for retry and reporting decisions.
type ErrorCode string

const (
	// CodeConfiguration covers unknown/inactive providers and missing
	// adapter mappings.
	CodeConfiguration ErrorCode = "configuration"

	// CodeValidation covers locally rejected input; no upstream call is made.
	CodeValidation ErrorCode = "validation"

	// CodeAuthentication covers credential exchange failures and 401s that
	// persist after the bounded re-authentication retry.
	CodeAuthentication ErrorCode = "authentication"

	// CodeRateLimit covers sustained upstream 429s beyond the retry budget.
	CodeRateLimit ErrorCode = "rate_limit"

	// CodeUpstreamClient covers terminal 4xx responses (other than 401/429).
	CodeUpstreamClient ErrorCode = "upstream_client"

	// CodeUpstreamTransient covers 5xx/timeout/network failures that
	// exhausted the retry budget.
	CodeUpstreamTransient ErrorCode = "upstream_transient"
)

// Error represents a failure from the courier aggregation layer.
type Error struct {
	Provider   string
	Code       ErrorCode
	Message    string
	StatusCode int
	Cause      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s error (%s): %s: %v", e.Provider, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s error (%s): %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches courier errors by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new courier Error.
func NewError(provider string, code ErrorCode, message string) *Error {
	return &Error{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// Sentinel errors for common aggregation scenarios.
var (
	// ErrProviderNotFound indicates the provider is missing or inactive in
	// the registry.
	ErrProviderNotFound = errors.New("provider not found")

	// ErrProviderUnsupported indicates no adapter is mapped for the provider.
	ErrProviderUnsupported = errors.New("provider not supported")

	// ErrMissingCredentials indicates the provider configuration lacks a
	// required credential.
	ErrMissingCredentials = errors.New("missing credentials")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier rate limit was exceeded.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrInvalidPhone indicates the recipient phone did not normalize to an
	// accepted national number.
	ErrInvalidPhone = errors.New("invalid phone number")

	// ErrInvalidPackage indicates package fields required by the provider
	// are missing or out of range.
	ErrInvalidPackage = errors.New("invalid package")

	// ErrMissingFilter indicates a zone/area lookup lacks the identifier
	// the provider requires.
	ErrMissingFilter = errors.New("missing location filter")
)

// IsRetryable reports whether the whole operation may be retried later.
func IsRetryable(err error) bool {
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code == CodeRateLimit || cerr.Code == CodeUpstreamTransient
	}
	return errors.Is(err, ErrRateLimitExceeded)
}
