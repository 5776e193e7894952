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

// Introspect asks the upstream identity service about targetToken.
// authorizingToken is the credential presented for the lookup itself —
// an app token ("appID|appSecret") when app credentials exist. When
// empty, the target token vouches for itself, which the Graph API
// permits for a token's own debug info.
func (c *Client) Introspect(ctx context.Context, targetToken, authorizingToken string) (Introspection, error) {
	if authorizingToken == "" {
		authorizingToken = targetToken
	}

	params := url.Values{
		"input_token":  {targetToken},
		"access_token": {authorizingToken},
	}

	status, body, err := c.do(ctx, http.MethodGet, c.baseURL+"/debug_token", params)
	if err != nil {
		return Introspection{}, fmt.Errorf("introspecting token: %w", err)
	}

	if status < 200 || status > 299 {
		return Introspection{}, &pwerrors.IntrospectionError{
			Reason: introspectionReason(status),
			Status: status,
		}
	}

	var envelope introspectEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Introspection{}, fmt.Errorf("decoding introspection response: %w", err)
	}

	validity := ValidityInvalid
	if envelope.Data.IsValid {
		validity = ValidityValid
	}

	return Introspection{
		AppID:               envelope.Data.AppID,
		UserID:              envelope.Data.UserID,
		Validity:            validity,
		ExpiresAt:           envelope.Data.ExpiresAt,
		DataAccessExpiresAt: envelope.Data.DataAccessExpiresAt,
		Scopes:              envelope.Data.Scopes,
	}, nil
}

// IntrospectLegacy hits the old unversioned token-info endpoint, which
// only reports a relative expiry. The result is degraded: no scopes, no
// data-access window, validity assumed from the call succeeding. Meant
// as a fallback when Introspect fails.
func (c *Client) IntrospectLegacy(ctx context.Context, token string) (Introspection, error) {
	params := url.Values{
		"access_token": {token},
	}

	status, body, err := c.do(ctx, http.MethodGet, c.legacyBaseURL+"/oauth/access_token_info", params)
	if err != nil {
		return Introspection{}, fmt.Errorf("legacy token info: %w", err)
	}

	if status < 200 || status > 299 {
		return Introspection{}, &pwerrors.IntrospectionError{
			Reason: introspectionReason(status),
			Status: status,
		}
	}

	var info legacyTokenInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return Introspection{}, fmt.Errorf("decoding legacy token info: %w", err)
	}

	intro := Introspection{
		Validity: ValidityValid,
		Degraded: true,
	}

	if info.ExpiresIn > 0 {
		intro.ExpiresAt = time.Now().Add(time.Duration(info.ExpiresIn) * time.Second).Unix()
	}

	return intro, nil
}

// introspectionReason maps an HTTP status to the failure taxonomy:
// 400 means the token itself is malformed or revoked, 401 means the
// authorizing credential was rejected, anything else is on the upstream.
func introspectionReason(status int) pwerrors.IntrospectionReason {
	switch status {
	case http.StatusBadRequest:
		return pwerrors.ReasonInvalidToken
	case http.StatusUnauthorized:
		return pwerrors.ReasonUnauthorized
	default:
		return pwerrors.ReasonUpstreamError
	}
}
