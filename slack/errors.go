package slack

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors - use with errors.Is()
var (
	// API errors
	ErrInvalidAuth     = errors.New("slackcast: invalid authentication")
	ErrAccountInactive = errors.New("slackcast: account inactive or token revoked")
	ErrMissingScope    = errors.New("slackcast: token is missing a required scope")
	ErrNotAllowed      = errors.New("slackcast: token type not allowed")
	ErrRateLimited     = errors.New("slackcast: rate limited")
	ErrServerError     = errors.New("slackcast: slack server error")

	// Lookup errors
	ErrUserNotFound = errors.New("slackcast: user not found")

	// Message errors
	ErrChannelNotFound = errors.New("slackcast: channel not found")
	ErrNotInChannel    = errors.New("slackcast: not in channel")
	ErrMessageTooLong  = errors.New("slackcast: message too long")
	ErrNoText          = errors.New("slackcast: message has no text")

	// Client errors
	ErrCircuitOpen      = errors.New("slackcast: circuit breaker open")
	ErrMaxRetries       = errors.New("slackcast: max retries exceeded")
	ErrResponseTooLarge = errors.New("slackcast: response too large")

	// Validation errors
	ErrInvalidToken = errors.New("slackcast: invalid token")
	ErrInvalidEmail = errors.New("slackcast: invalid email address")
)

// APIError represents an error response from the Slack Web API.
// Slack reports most failures with HTTP 200 and ok=false; StatusCode keeps
// the HTTP status so rate limiting and server failures stay distinguishable.
// Use errors.As() to extract details, errors.Is() to match sentinels.
type APIError struct {
	Method     string        // API method that failed
	StatusCode int           // HTTP status code
	Code       string        // Slack error string, e.g. "users_not_found"
	Needed     string        // Scope needed, for missing_scope
	RetryAfter time.Duration // From the Retry-After header on 429
	cause      error         // Underlying sentinel for errors.Is()
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("slackcast: %s failed: %s (status=%d, retry_after=%s)",
			e.Method, e.Code, e.StatusCode, e.RetryAfter)
	}
	if e.Needed != "" {
		return fmt.Sprintf("slackcast: %s failed: %s (status=%d, needed=%s)",
			e.Method, e.Code, e.StatusCode, e.Needed)
	}
	return fmt.Sprintf("slackcast: %s failed: %s (status=%d)", e.Method, e.Code, e.StatusCode)
}

// Unwrap returns the underlying sentinel error for errors.Is() support.
func (e *APIError) Unwrap() error { return e.cause }

// IsRetryable returns true if the error is temporary and may succeed on retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		(e.StatusCode >= 500 && e.StatusCode <= 504) ||
		e.Code == "ratelimited" || e.Code == "internal_error" ||
		e.Code == "service_unavailable" || e.Code == "request_timeout"
}

// NewAPIError creates an APIError with automatic sentinel detection.
func NewAPIError(method string, statusCode int, code string) *APIError {
	return &APIError{
		Method:     method,
		StatusCode: statusCode,
		Code:       code,
		cause:      DetectSentinel(statusCode, code),
	}
}

// NewAPIErrorWithRetry creates an APIError with retry information.
func NewAPIErrorWithRetry(method string, statusCode int, code string, retryAfter time.Duration) *APIError {
	e := NewAPIError(method, statusCode, code)
	e.RetryAfter = retryAfter
	return e
}

// DetectSentinel maps Slack error strings and HTTP statuses to sentinel errors.
// The Slack error string wins over the HTTP status.
func DetectSentinel(statusCode int, code string) error {
	switch code {
	case "users_not_found", "user_not_found":
		return ErrUserNotFound
	case "invalid_auth", "not_authed":
		return ErrInvalidAuth
	case "account_inactive", "token_revoked", "token_expired":
		return ErrAccountInactive
	case "missing_scope":
		return ErrMissingScope
	case "not_allowed_token_type":
		return ErrNotAllowed
	case "ratelimited":
		return ErrRateLimited
	case "channel_not_found":
		return ErrChannelNotFound
	case "not_in_channel":
		return ErrNotInChannel
	case "msg_too_long":
		return ErrMessageTooLong
	case "no_text":
		return ErrNoText
	case "internal_error", "fatal_error", "service_unavailable":
		return ErrServerError
	}

	switch {
	case statusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case statusCode == http.StatusUnauthorized:
		return ErrInvalidAuth
	case statusCode >= 500:
		return ErrServerError
	}

	return nil
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("slackcast: validation: %s - %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
