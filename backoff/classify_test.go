package backoff

import (
	"errors"
	"testing"
)

func TestClassString(t *testing.T) {
	tests := []struct {
		class Class
		want  string
	}{
		{Retryable, "retryable"},
		{Fatal, "fatal"},
		{Unknown, "unknown"},
		{Class(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := tt.class.String()
			if got != tt.want {
				t.Errorf("Class.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClassify_Fatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		// Authentication/Authorization errors
		{"irc login failed", errors.New("Login authentication failed")},
		{"improper auth", errors.New("Improperly formatted auth")},
		{"invalid oauth token", errors.New("invalid oauth token")},
		{"invalid access token", errors.New("helix request: invalid access token")},
		{"401 unauthorized", errors.New("helix status 401: Unauthorized")},
		{"403 forbidden", errors.New("helix status 403: Forbidden")},
		{"access denied", errors.New("Access denied")},

		// Target not found errors
		{"404 not found", errors.New("helix status 404: Not Found")},
		{"user not found", errors.New("user not found")},
		{"channel suspended", errors.New("channel suspended")},
		{"does not exist", errors.New("that channel does not exist")},
		{"banned", errors.New("you are banned from this channel")},

		// Invalid input errors
		{"invalid channel", errors.New("invalid channel name")},
		{"invalid login", errors.New("invalid login provided")},

		// Case insensitive matching
		{"uppercase UNAUTHORIZED", errors.New("UNAUTHORIZED")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != Fatal {
				t.Errorf("Classify(%q) = %v, want %v", tt.err, got, Fatal)
			}
		})
	}
}

func TestClassify_Retryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		// Network errors
		{"connection reset", errors.New("read tcp: connection reset by peer")},
		{"connection refused", errors.New("dial tcp: connection refused")},
		{"generic timeout", errors.New("operation timed out after 30s")},
		{"dns failure", errors.New("temporary failure in name resolution")},
		{"eof", errors.New("unexpected EOF while reading")},
		{"broken pipe", errors.New("write: broken pipe")},
		{"tls", errors.New("tls handshake failure")},

		// Server errors
		{"500 internal error", errors.New("helix status 500: Internal Server Error")},
		{"502 bad gateway", errors.New("helix status 502: Bad Gateway")},
		{"503 unavailable", errors.New("helix status 503: Service Unavailable")},
		{"504 timeout", errors.New("helix status 504: Gateway Timeout")},

		// Rate limiting
		{"429 rate limit", errors.New("helix status 429: Too Many Requests")},
		{"too many requests", errors.New("Too many requests, try again later")},
		{"throttled", errors.New("request throttled")},

		// Server-initiated reconnect
		{"reconnect", errors.New("received RECONNECT, dropping connection")},

		// Case insensitive matching
		{"uppercase TIMEOUT", errors.New("CONNECTION TIMED OUT")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != Retryable {
				t.Errorf("Classify(%q) = %v, want %v", tt.err, got, Retryable)
			}
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Class
	}{
		{"nil error", nil, Unknown},
		{"empty error", errors.New(""), Retryable}, // Empty defaults to retryable
		{"unknown error", errors.New("something completely unexpected happened"), Retryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"retryable network error", errors.New("connection timeout"), true},
		{"fatal auth error", errors.New("login authentication failed"), false},
		{"nil error", nil, false},
		{"unknown error defaults to retryable", errors.New("weird error"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsRetryable(tt.err)
			if got != tt.want {
				t.Errorf("IsRetryable(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"fatal auth error", errors.New("login authentication failed"), true},
		{"fatal not found", errors.New("404 not found"), true},
		{"retryable network error", errors.New("connection timeout"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsFatal(tt.err)
			if got != tt.want {
				t.Errorf("IsFatal(%q) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
