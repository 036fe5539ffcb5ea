// Package errors defines the error taxonomy for the Stellar Ramp SDK.
//
// All SDK errors are represented as RampError, which provides:
//   - Code: machine-readable error identifier
//   - Kind: taxonomy class (validation, transport, not_found, capability, state)
//   - Message: human-readable error description
//   - HTTPStatus: originating provider HTTP status, when applicable
//   - Cause: underlying error, if any
//   - Context: additional details (provider name, transaction id, etc.)
//
// Validation errors are never retried and never reach the signer. Transport
// errors carry the provider's status code and message verbatim. Not-found
// errors are converted to nil returns for single-resource lookups. Capability
// errors mark operations a provider's descriptor does not support.
package errors

import (
	"fmt"
	"net/http"
)

// Code is a machine-readable error identifier.
type Code string

// Error codes - validation
const (
	CONFIG_INVALID     Code = "CONFIG_INVALID"
	CHALLENGE_INVALID  Code = "CHALLENGE_INVALID"
	CHALLENGE_EXPIRED  Code = "CHALLENGE_EXPIRED"
	TOKEN_MALFORMED    Code = "TOKEN_MALFORMED"
	TOKEN_EXPIRED      Code = "TOKEN_EXPIRED"
	QUOTE_INVALID      Code = "QUOTE_INVALID"
	QUOTE_EXPIRED      Code = "QUOTE_EXPIRED"
	TRANSITION_INVALID Code = "TRANSITION_INVALID"
)

// Error codes - transport
const (
	NETWORK_ERROR     Code = "NETWORK_ERROR"
	PROVIDER_REJECTED Code = "PROVIDER_REJECTED"
	NOT_FOUND         Code = "NOT_FOUND"
)

// Error codes - authentication
const (
	CHALLENGE_FETCH_FAILED Code = "CHALLENGE_FETCH_FAILED"
	AUTH_REJECTED          Code = "AUTH_REJECTED"
	SIGNER_ERROR           Code = "SIGNER_ERROR"
)

// Error codes - ramp lifecycle
const (
	CAPABILITY_UNSUPPORTED Code = "CAPABILITY_UNSUPPORTED"
	SUBMIT_FAILED          Code = "SUBMIT_FAILED"
	POLL_TIMEOUT           Code = "POLL_TIMEOUT"
	STATUS_UNMAPPED        Code = "STATUS_UNMAPPED"
)

// Kind is the taxonomy class of an error.
type Kind string

const (
	KindValidation Kind = "validation"
	KindTransport  Kind = "transport"
	KindNotFound   Kind = "not_found"
	KindCapability Kind = "capability"
	KindState      Kind = "state"
)

// RampError is the base error type for all SDK errors.
type RampError struct {
	Code       Code
	Kind       Kind
	Message    string
	HTTPStatus int // 0 when not HTTP-originated
	Cause      error
	Context    map[string]any
}

// Error returns a formatted error string.
func (e *RampError) Error() string {
	msg := fmt.Sprintf("[%s] %s: %s", e.Kind, e.Code, e.Message)
	if e.HTTPStatus != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.HTTPStatus)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause error, enabling error chain inspection.
func (e *RampError) Unwrap() error {
	return e.Cause
}

// Is checks if the target error is a RampError with the same code.
func (e *RampError) Is(target error) bool {
	other, ok := target.(*RampError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// NewValidationError creates a validation error. Validation failures abort
// the flow before any signing or network submission.
func NewValidationError(code Code, message string, cause error) *RampError {
	return &RampError{
		Code:    code,
		Kind:    KindValidation,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// NewTransportError creates a transport error carrying the provider's HTTP
// status code and message verbatim.
func NewTransportError(httpStatus int, message string, cause error) *RampError {
	return &RampError{
		Code:       NETWORK_ERROR,
		Kind:       KindTransport,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      cause,
		Context:    make(map[string]any),
	}
}

// NewProviderError creates a transport error for a non-2xx provider response.
// The body is kept verbatim so UIs can surface the provider's own message.
func NewProviderError(httpStatus int, body string) *RampError {
	return &RampError{
		Code:       PROVIDER_REJECTED,
		Kind:       KindTransport,
		Message:    body,
		HTTPStatus: httpStatus,
		Context:    make(map[string]any),
	}
}

// NewNotFoundError creates a not-found error for a single-resource lookup.
// The ramp engine converts these to nil returns rather than surfacing them.
func NewNotFoundError(resource, id string) *RampError {
	return &RampError{
		Code:       NOT_FOUND,
		Kind:       KindNotFound,
		Message:    fmt.Sprintf("%s %q not found", resource, id),
		HTTPStatus: http.StatusNotFound,
		Context:    map[string]any{"resource": resource, "id": id},
	}
}

// NewCapabilityError marks an operation invoked against a provider whose
// capability descriptor does not support it (HTTP-501-equivalent).
func NewCapabilityError(provider, operation string) *RampError {
	return &RampError{
		Code:       CAPABILITY_UNSUPPORTED,
		Kind:       KindCapability,
		Message:    fmt.Sprintf("provider %s does not support %s", provider, operation),
		HTTPStatus: http.StatusNotImplemented,
		Context:    map[string]any{"provider": provider, "operation": operation},
	}
}

// NewStateError creates a lifecycle/state-machine error.
func NewStateError(code Code, message string, cause error) *RampError {
	return &RampError{
		Code:    code,
		Kind:    KindState,
		Message: message,
		Cause:   cause,
		Context: make(map[string]any),
	}
}

// As checks if err is a RampError anywhere in its chain and assigns it.
func As(err error, target **RampError) bool {
	for err != nil {
		if v, ok := err.(*RampError); ok {
			*target = v
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsNotFound reports whether err is a not-found error anywhere in its chain.
func IsNotFound(err error) bool {
	var re *RampError
	if !As(err, &re) {
		return false
	}
	return re.Kind == KindNotFound
}
