package types

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies failures surfaced by vendor adapters
type ErrorKind string

const (
	// ErrKindTransport covers connection refused, timeouts and TLS failures
	ErrKindTransport ErrorKind = "transport"

	// ErrKindHTTPStatus is a non-2xx response from the vendor
	ErrKindHTTPStatus ErrorKind = "http_status"

	// ErrKindMalformedResponse is a shape mismatch or unparseable payload
	ErrKindMalformedResponse ErrorKind = "malformed_response"

	// ErrKindCancelled is cooperative cancellation observed by the adapter
	ErrKindCancelled ErrorKind = "cancelled"
)

// Remediation tips returned by ClassifyTip
const (
	TipCredential         = "Check that the API key is set and valid for this provider."
	TipEndpoint           = "Check the base URL; the endpoint was not found on the server."
	TipRateLimit          = "The provider is rate limiting requests; wait before sending more."
	TipBackendUnavailable = "The model backend is unavailable or failing; try again later."
	TipServerNotRunning   = "Could not connect; make sure the model server is running and reachable."
	TipModelNotLoaded     = "The requested model is not loaded or does not exist; load it or pick another model."
)

// LLMError is the typed error returned by every vendor adapter
type LLMError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Endpoint   string
	Tip        string
	Cause      error
}

func (e *LLMError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.StatusCode != 0 {
		b.WriteString(fmt.Sprintf(" %d", e.StatusCode))
	}
	if e.Endpoint != "" {
		b.WriteString(" ")
		b.WriteString(e.Endpoint)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	if e.Tip != "" {
		b.WriteString(" (tip: ")
		b.WriteString(e.Tip)
		b.WriteString(")")
	}
	return b.String()
}

func (e *LLMError) Unwrap() error {
	return e.Cause
}

// ClassifyTip maps an HTTP status and/or error message to a remediation tip.
// Message rules are checked before status rules. Returns "" when nothing
// matches.
func ClassifyTip(status int, message string) string {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "connection refused"):
		return TipServerNotRunning
	case strings.Contains(msg, "model") && strings.Contains(msg, "not"):
		return TipModelNotLoaded
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return TipCredential
	case status == http.StatusNotFound:
		return TipEndpoint
	case status == http.StatusTooManyRequests:
		return TipRateLimit
	case status >= 500 && status <= 599:
		return TipBackendUnavailable
	}
	return ""
}

// NewTransportError wraps a network-level failure
func NewTransportError(endpoint string, cause error) *LLMError {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return &LLMError{
		Kind:     ErrKindTransport,
		Message:  "request failed",
		Endpoint: endpoint,
		Tip:      ClassifyTip(0, msg),
		Cause:    cause,
	}
}

// NewHTTPStatusError builds an error for a non-2xx response
func NewHTTPStatusError(endpoint string, status int, message string) *LLMError {
	if message == "" {
		message = http.StatusText(status)
	}
	return &LLMError{
		Kind:       ErrKindHTTPStatus,
		Message:    message,
		StatusCode: status,
		Endpoint:   endpoint,
		Tip:        ClassifyTip(status, message),
	}
}

// NewMalformedResponseError reports a payload that does not match the
// expected vendor shape
func NewMalformedResponseError(endpoint, message string, cause error) *LLMError {
	return &LLMError{
		Kind:     ErrKindMalformedResponse,
		Message:  message,
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// NewCancellationError reports that the caller cancelled the request
func NewCancellationError(endpoint string, cause error) *LLMError {
	if cause == nil {
		cause = context.Canceled
	}
	return &LLMError{
		Kind:     ErrKindCancelled,
		Message:  "request cancelled",
		Endpoint: endpoint,
		Cause:    cause,
	}
}

// AsLLMError extracts an *LLMError from err
func AsLLMError(err error) (*LLMError, bool) {
	var le *LLMError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

// IsKind reports whether err is an LLMError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	le, ok := AsLLMError(err)
	return ok && le.Kind == kind
}

// IsCancelled reports whether err is a cancellation error
func IsCancelled(err error) bool {
	return IsKind(err, ErrKindCancelled)
}

// Error codes of the HTTP surface envelope
const (
	ErrCodeInvalidRequest = "llm-bridge.invalid_request"
	ErrCodeProvider       = "llm-bridge.provider_error"
	ErrCodeCancelled      = "llm-bridge.cancelled"
	ErrCodeInternalError  = "llm-bridge.internal_error"
)

// APIError is the JSON error envelope returned by the HTTP surface
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
	StatusCode int    `json:"statusCode,omitempty"`
	Type       string `json:"type,omitempty"`
	Tip        string `json:"tip,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf(`{"code":"%s","message":"%s","success":%v}`, e.Code, e.Message, e.Success)
}

// NewAPIError converts any error into the HTTP surface envelope
func NewAPIError(err error) *APIError {
	if errors.Is(err, ErrInvalidRequest) {
		return &APIError{
			Code:       ErrCodeInvalidRequest,
			Message:    err.Error(),
			StatusCode: http.StatusBadRequest,
			Type:       "invalid_request",
		}
	}

	le, ok := AsLLMError(err)
	if !ok {
		return &APIError{
			Code:       ErrCodeInternalError,
			Message:    err.Error(),
			StatusCode: http.StatusInternalServerError,
			Type:       "server_error",
		}
	}

	apiErr := &APIError{
		Code:    ErrCodeProvider,
		Message: le.Error(),
		Type:    string(le.Kind),
		Tip:     le.Tip,
	}
	switch le.Kind {
	case ErrKindCancelled:
		apiErr.Code = ErrCodeCancelled
		apiErr.StatusCode = 499
	case ErrKindHTTPStatus:
		apiErr.StatusCode = le.StatusCode
		if le.StatusCode < 400 {
			apiErr.StatusCode = http.StatusBadGateway
		}
	default:
		apiErr.StatusCode = http.StatusBadGateway
	}
	return apiErr
}
