package backoff

import (
	"strings"
)

// Class represents whether an error should be retried or not.
type Class int

const (
	// Retryable indicates the operation should be retried (transient errors).
	Retryable Class = iota
	// Fatal indicates the operation should not be retried (permanent errors).
	Fatal
	// Unknown indicates the error type cannot be determined.
	Unknown
)

// String returns a human-readable name for the error class.
func (c Class) String() string {
	switch c {
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	case Unknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// Classify sorts connection and API errors into retryable vs fatal categories.
//
// Fatal errors (non-retryable):
// - Authentication/authorization errors (bad token, 403/401)
// - Target not found errors (404, unknown user, suspended channel)
// - Invalid input errors (malformed channel name, bad client id)
//
// Retryable errors (transient):
// - Network errors (connection reset, timeout, DNS failures)
// - Server errors (500, 502, 503, 504)
// - Rate limiting (429, too many requests)
// - Server-initiated reconnects
//
// Errors that match no known pattern are treated as retryable so a flaky
// connection never permanently kills the session.
func Classify(err error) Class {
	if err == nil {
		return Unknown
	}

	lower := strings.ToLower(err.Error())

	// Check retryable server errors first (before more generic patterns)
	if strings.Contains(lower, "500") ||
		strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout") {
		return Retryable
	}

	// Fatal errors: authentication and authorization
	if strings.Contains(lower, "login authentication failed") ||
		strings.Contains(lower, "improperly formatted auth") ||
		strings.Contains(lower, "invalid oauth token") ||
		strings.Contains(lower, "invalid access token") ||
		strings.Contains(lower, "invalid client") ||
		strings.Contains(lower, "authentication required") ||
		strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "access denied") ||
		strings.Contains(lower, "unauthorized") {
		return Fatal
	}

	// Fatal errors: target not found or unavailable
	if strings.Contains(lower, "404") ||
		strings.Contains(lower, "not found") ||
		strings.Contains(lower, "channel suspended") ||
		strings.Contains(lower, "does not exist") ||
		strings.Contains(lower, "banned from") {
		return Fatal
	}

	// Fatal errors: invalid input
	invalidInputPatterns := []string{
		"invalid channel",
		"malformed",
		"invalid login",
	}
	for _, pattern := range invalidInputPatterns {
		if strings.Contains(lower, pattern) {
			return Fatal
		}
	}

	// Retryable errors: network issues
	networkPatterns := []string{
		"connection reset",
		"connection refused",
		"connection timed out",
		"timeout",
		"temporary failure in name resolution",
		"no route to host",
		"network unreachable",
		"dns",
		"eof",
		"broken pipe",
		"tls handshake",
	}
	for _, pattern := range networkPatterns {
		if strings.Contains(lower, pattern) {
			return Retryable
		}
	}

	// Retryable errors: rate limiting
	rateLimitPatterns := []string{
		"429",
		"too many requests",
		"rate limit",
		"throttled",
	}
	for _, pattern := range rateLimitPatterns {
		if strings.Contains(lower, pattern) {
			return Retryable
		}
	}

	// Retryable errors: server asked us to reconnect
	if strings.Contains(lower, "reconnect") {
		return Retryable
	}

	// Default: unknown errors are treated as retryable to avoid giving up too early
	return Retryable
}

// IsRetryable checks if an error should trigger retry logic.
func IsRetryable(err error) bool {
	return Classify(err) == Retryable
}

// IsFatal checks if an error should not be retried.
func IsFatal(err error) bool {
	return Classify(err) == Fatal
}
