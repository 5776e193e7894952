package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	pwerrors "github.com/alexjbarnes/pagewarden/internal/errors"
)

// ExchangeToLongLived trades a short-lived user token for a long-lived
// one using the app credentials. It never fails: when the exchange
// cannot be performed (no secret, network fault, upstream rejection)
// the result carries the original token with Degraded set and Cause
// explaining why, so onboarding can proceed with reduced runway instead
// of stopping dead.
func (c *Client) ExchangeToLongLived(ctx context.Context, shortToken, appID, appSecret string) ExchangeResult {
	degraded := ExchangeResult{
		AccessToken: shortToken,
		TokenType:   "bearer",
		Degraded:    true,
	}

	if appID == "" || appSecret == "" {
		degraded.Cause = fmt.Errorf("app credentials unavailable")
		return degraded
	}

	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {appID},
		"client_secret":     {appSecret},
		"fb_exchange_token": {shortToken},
	}

	status, body, err := c.do(ctx, http.MethodGet, c.baseURL+"/oauth/access_token", params)
	if err != nil {
		degraded.Cause = err
		return degraded
	}

	if status < 200 || status > 299 {
		degraded.Cause = &pwerrors.UpstreamError{Status: status, Body: string(body)}
		return degraded
	}

	var envelope exchangeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		degraded.Cause = fmt.Errorf("decoding exchange response: %w", err)
		return degraded
	}

	if envelope.AccessToken == "" {
		degraded.Cause = fmt.Errorf("exchange response missing access_token")
		return degraded
	}

	result := ExchangeResult{
		AccessToken: envelope.AccessToken,
		TokenType:   envelope.TokenType,
		ExpiresIn:   time.Duration(envelope.ExpiresIn) * time.Second,
	}

	if result.TokenType == "" {
		result.TokenType = "bearer"
	}

	return result
}

// ResolvePageTokens lists the pages the user token administers, each
// with its page-scoped access token. An empty list is
// ErrNoManagedPages, a terminal configuration problem; any transport or
// upstream failure is a PageLookupError, which the guardian's refresh
// loop may retry.
func (c *Client) ResolvePageTokens(ctx context.Context, userToken string) ([]PageCandidate, error) {
	params := url.Values{
		"access_token": {userToken},
		"fields":       {"id,name,access_token"},
	}

	status, body, err := c.do(ctx, http.MethodGet, c.baseURL+"/me/accounts", params)
	if err != nil {
		return nil, &pwerrors.PageLookupError{Err: err}
	}

	if status < 200 || status > 299 {
		return nil, &pwerrors.PageLookupError{
			Err: &pwerrors.UpstreamError{Status: status, Body: string(body)},
		}
	}

	var envelope accountsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &pwerrors.PageLookupError{Err: fmt.Errorf("decoding accounts response: %w", err)}
	}

	if len(envelope.Data) == 0 {
		return nil, pwerrors.ErrNoManagedPages
	}

	return envelope.Data, nil
}

// AppToken formats app credentials as the composite token the
// introspection endpoint accepts in place of a user token. Empty when
// either half is missing.
func AppToken(appID, appSecret string) string {
	if appID == "" || appSecret == "" {
		return ""
	}

	return appID + "|" + appSecret
}
