package graph

import "time"

// Validity is the tri-state result of asking the upstream whether a
// token is good. Unknown means introspection could not answer, which is
// distinct from a definitive "no".
type Validity int

const (
	ValidityUnknown Validity = iota
	ValidityValid
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// longLivedThreshold is the remaining lifetime above which a token
// counts as long-lived. Short-lived Graph tokens last one to two hours;
// anything over a day was issued by the long-lived exchange.
const longLivedThreshold = 24 * time.Hour

// Introspection is the decoded result of a token introspection call.
// ExpiresAt and DataAccessExpiresAt are unix seconds as the upstream
// reports them; 0 means no expiry / not reported. Produced fresh per
// call, never mutated.
type Introspection struct {
	AppID               string
	UserID              string
	Validity            Validity
	ExpiresAt           int64
	DataAccessExpiresAt int64
	Scopes              []string

	// Degraded marks a result produced by the legacy fallback endpoint:
	// no scopes, no data-access expiry, validity assumed from the call
	// succeeding.
	Degraded bool
}

// ExpiresIn returns the remaining lifetime at the given instant,
// floored at zero. A token with no reported expiry has zero remaining
// lifetime by this measure; use IsLongLived to distinguish it.
func (i Introspection) ExpiresIn(now time.Time) time.Duration {
	if i.ExpiresAt <= 0 {
		return 0
	}

	remaining := time.Unix(i.ExpiresAt, 0).Sub(now)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// IsLongLived reports whether the token either never expires or has
// more than a day of lifetime left.
func (i Introspection) IsLongLived(now time.Time) bool {
	return i.ExpiresAt == 0 || i.ExpiresIn(now) > longLivedThreshold
}

// introspectEnvelope is the wire shape of GET /debug_token.
type introspectEnvelope struct {
	Data struct {
		AppID               string   `json:"app_id"`
		Type                string   `json:"type"`
		UserID              string   `json:"user_id"`
		IsValid             bool     `json:"is_valid"`
		ExpiresAt           int64    `json:"expires_at"`
		DataAccessExpiresAt int64    `json:"data_access_expires_at"`
		Scopes              []string `json:"scopes"`
	} `json:"data"`
}

// legacyTokenInfo is the wire shape of the legacy token-info endpoint,
// which only reports a relative expiry.
type legacyTokenInfo struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeResult is the outcome of a long-lived token exchange.
// Degraded means the exchange itself failed and AccessToken is the
// original short-lived token passed in; the caller can proceed, just
// with a shorter runway.
type ExchangeResult struct {
	AccessToken string
	TokenType   string
	ExpiresIn   time.Duration
	Degraded    bool

	// Cause records why the exchange degraded. For logging only; a
	// degraded result is not an error.
	Cause error
}

// exchangeEnvelope is the wire shape of GET /oauth/access_token.
type exchangeEnvelope struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// PageCandidate is one page the user token administers, with the
// page-scoped access token the Graph API mints for it.
type PageCandidate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	AccessToken string `json:"access_token"`
}

// accountsEnvelope is the wire shape of GET /me/accounts.
type accountsEnvelope struct {
	Data []PageCandidate `json:"data"`
}

// Post is one entry from a page's post listing.
type Post struct {
	ID      string `json:"id"`
	Message string `json:"message"`

	// CreatedTime is kept as the upstream string ("+0000" zone format,
	// not RFC 3339); nothing here computes with it.
	CreatedTime string `json:"created_time"`
}

// postsEnvelope is the wire shape of GET /{page}/posts.
type postsEnvelope struct {
	Data []Post `json:"data"`
}

// Comment is one entry from a post's comment listing.
type Comment struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

// commentsEnvelope is the wire shape of GET /{post}/comments.
type commentsEnvelope struct {
	Data []Comment `json:"data"`
}

// PublishResponse is returned when a post or reply is created.
type PublishResponse struct {
	ID string `json:"id"`
}

// PageInfo is the subset of page metadata pagewarden reads.
type PageInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
