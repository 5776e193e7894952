// Package graph talks to the Facebook Graph API: raw transport,
// token introspection, token exchange, and the page operations the
// sweeps consume.
package graph

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// TransientError wraps an error that is likely temporary and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError, meaning the caller should retry after a backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

const (
	baseURL = "https://graph.facebook.com/v19.0"

	// legacyBaseURL hosts the unversioned legacy endpoints, notably the
	// old token-info introspection fallback.
	legacyBaseURL = "https://graph.facebook.com"

	// sessionExpiredSignature is the message substring the Graph API
	// uses to signal that an access token's session has lapsed. Matched
	// verbatim; the numeric error code alone is ambiguous.
	sessionExpiredSignature = "Session has expired"
)

const (
	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxAPIResponseBytes = 1024 * 1024
)

// Client talks to the Graph API. All credential material travels as the
// access_token query parameter, which is the Graph convention.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	legacyBaseURL string
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents access tokens in
// query strings from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates a Graph API client with the given http.Client.
// If httpClient is nil, a client with a 30-second timeout and
// same-host redirect policy is created.
func NewClient(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	return &Client{
		httpClient:    httpClient,
		baseURL:       baseURL,
		legacyBaseURL: legacyBaseURL,
	}
}

// NewClientWithBase creates a client whose versioned and legacy
// endpoints both live under base. Lets tests stand up a fake Graph
// server; production code uses NewClient.
func NewClientWithBase(httpClient *http.Client, base string) *Client {
	c := NewClient(httpClient)
	c.baseURL = base
	c.legacyBaseURL = base

	return c
}

// Get performs a GET against a versioned Graph path and returns the raw
// status and body. A non-nil error means the request never completed
// (transport failure); HTTP-level failures are reported through the
// status code so callers can apply their own error semantics.
func (c *Client) Get(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+path, params)
}

// Post performs a POST against a versioned Graph path with form-encoded
// parameters. Same return contract as Get.
func (c *Client) Post(ctx context.Context, path string, params url.Values) (int, []byte, error) {
	return c.do(ctx, http.MethodPost, c.baseURL+path, params)
}

func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values) (int, []byte, error) {
	var (
		req *http.Request
		err error
	)

	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, rawURL+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}

	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("sending request to %s: %w", req.URL.Path, err)
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		return 0, nil, &TransientError{Err: wrapped}
	}
	defer resp.Body.Close()

	// Cap response reads at 1MB. Graph responses are small JSON payloads.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("reading response from %s: %w", req.URL.Path, err)
	}

	return resp.StatusCode, body, nil
}

// IsSessionExpired reports whether a Graph response signals that the
// access token's session has lapsed: status 400 with the documented
// message substring in the error envelope. Only this exact combination
// triggers a credential refresh; everything else surfaces as-is.
func IsSessionExpired(status int, body []byte) bool {
	if status != http.StatusBadRequest {
		return false
	}

	msg := gjson.GetBytes(body, "error.message").String()

	return strings.Contains(msg, sessionExpiredSignature)
}

// ErrorMessage extracts the human-readable message from a Graph error
// envelope, or empty string when the body carries none.
func ErrorMessage(body []byte) string {
	return gjson.GetBytes(body, "error.message").String()
}
