// Package errors defines the error taxonomy shared across pagewarden
// packages. Sentinels cover terminal conditions; typed errors carry the
// payload operators need for diagnosis.
package errors

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Credential errors.
var (
	// ErrNoCredentials means no credential chain has been stored yet.
	// Run `pagewarden setup` first.
	ErrNoCredentials = errors.New("no stored credentials")

	// ErrNoManagedPages means the user token administers zero pages.
	// This is a configuration problem for the operator, not a transient
	// fault: retrying will not help.
	ErrNoManagedPages = errors.New("token manages no pages")

	// ErrCredentialRefresh means an upstream call failed with a session
	// expiry and the refresh that followed could not produce a working
	// token.
	ErrCredentialRefresh = errors.New("credential refresh failed")
)

// IntrospectionReason classifies why a token introspection call failed.
type IntrospectionReason string

const (
	ReasonInvalidToken  IntrospectionReason = "invalid_token"
	ReasonUnauthorized  IntrospectionReason = "unauthorized"
	ReasonUpstreamError IntrospectionReason = "upstream_error"
)

// IntrospectionError is returned when the introspection endpoint rejects
// the request or fails outright.
type IntrospectionError struct {
	Reason IntrospectionReason
	Status int
}

func (e *IntrospectionError) Error() string {
	return fmt.Sprintf("token introspection failed (%s, status %d)", e.Reason, e.Status)
}

// PageLookupError wraps a failure to list the pages a user token manages.
// Unlike ErrNoManagedPages this is retryable: the guardian's next refresh
// attempt may succeed.
type PageLookupError struct {
	Err error
}

func (e *PageLookupError) Error() string { return "page lookup failed: " + e.Err.Error() }
func (e *PageLookupError) Unwrap() error { return e.Err }

// UpstreamError is a non-2xx Graph API response surfaced verbatim so
// operators can diagnose upstream-side issues. Body is sanitized before
// inclusion in the message.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream call failed (status %d): %s", e.Status, SanitizeBody([]byte(e.Body)))
}

// IsRetryable reports whether err (or any error in its chain) is a
// PageLookupError, meaning the guardian's refresh loop may retry it.
func IsRetryable(err error) bool {
	var pe *PageLookupError
	return errors.As(err, &pe)
}

// SanitizeBody truncates and sanitizes an upstream response body for
// inclusion in error messages and logs. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func SanitizeBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}
