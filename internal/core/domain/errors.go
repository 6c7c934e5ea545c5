package domain

import (
	"fmt"
)

// ErrorType is the client-facing error taxonomy, matching the OpenAI error
// envelope
type ErrorType string

const (
	ErrorTypeInvalidRequest ErrorType = "invalid_request_error"
	ErrorTypeAPI            ErrorType = "api_error"
	ErrorTypeRateLimit      ErrorType = "rate_limit_error"
)

// ValidationError is a malformed client request: missing fields, bad types,
// oversized bodies. Never retried.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RoutingError is a failure to resolve a model alias. Type distinguishes a
// bad client request (unknown alias or provider) from a configuration
// inconsistency (a slot naming a provider absent from the provider table).
type RoutingError struct {
	Type    ErrorType
	Alias   string
	Message string
}

func (e *RoutingError) Error() string {
	return e.Message
}

// SerializationError is a request or response that failed to round-trip as
// JSON. A bug, not a transient fault; never retried.
type SerializationError struct {
	Stage string
	Err   error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization failed during %s: %v", e.Stage, e.Err)
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// UpstreamError is a failed upstream dispatch. StatusCode is 0 when no
// response was observed (network-level failure); Timeout marks attempts cut
// off by the provider's deadline, reported as 504.
type UpstreamError struct {
	Err        error
	ProviderID string
	Body       []byte
	StatusCode int
	Attempts   int
	Timeout    bool
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("upstream %s returned HTTP %d after %d attempt(s)", e.ProviderID, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("upstream %s unreachable after %d attempt(s): %v", e.ProviderID, e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Retryable reports whether another attempt is worthwhile: network-level
// failures carry no status code, otherwise 408, 429 and any 5xx qualify
func (e *UpstreamError) Retryable() bool {
	if e.StatusCode == 0 {
		return true
	}
	if e.StatusCode == 408 || e.StatusCode == 429 {
		return true
	}
	return e.StatusCode >= 500
}
