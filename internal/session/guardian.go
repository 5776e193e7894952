package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	pwerrors "github.com/alexjbarnes/pagewarden/internal/errors"
	"github.com/alexjbarnes/pagewarden/internal/graph"
	"github.com/alexjbarnes/pagewarden/internal/logging"
	"github.com/alexjbarnes/pagewarden/internal/state"
)

//go:generate mockgen -source=guardian.go -destination=mock_guardian_test.go -package=session

// State classifies how much trust the current session deserves.
type State int

const (
	StateUnknown State = iota
	StateValid
	StateExpiringSoon
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpiringSoon:
		return "expiring_soon"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// CredentialStore is the persistence surface the guardian mutates. The
// chain is always written whole; the guardian never does partial
// updates.
type CredentialStore interface {
	Credentials() (state.Chain, bool, error)
	SetCredentials(state.Chain) error
}

// Introspector queries the upstream identity service about a token.
type Introspector interface {
	Introspect(ctx context.Context, targetToken, authorizingToken string) (graph.Introspection, error)
	IntrospectLegacy(ctx context.Context, token string) (graph.Introspection, error)
}

// Exchanger converts credentials: short-lived to long-lived, and user
// token to page-scoped tokens.
type Exchanger interface {
	ExchangeToLongLived(ctx context.Context, shortToken, appID, appSecret string) graph.ExchangeResult
	ResolvePageTokens(ctx context.Context, userToken string) ([]graph.PageCandidate, error)
}

// DefaultValidityBuffer is how long before expiry a session counts as
// expiring. A day of slack means a refresh failure leaves a full day of
// retries before calls actually start bouncing.
const DefaultValidityBuffer = 24 * time.Hour

// Options tune the guardian. Zero values select the defaults.
type Options struct {
	// Buffer below which remaining lifetime classifies as ExpiringSoon.
	Buffer time.Duration

	// DefaultTTL for tokens with no determinable expiry.
	DefaultTTL time.Duration

	// PageName picks which managed page to adopt during refresh. Empty
	// selects the first candidate the upstream returns, which is only
	// deterministic for single-page accounts.
	PageName string

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Guardian keeps the persisted credential chain usable: it classifies
// session validity and runs the refresh protocol when validity lapses.
// EnsureValid is serialized by a mutex so the comment and post sweeps
// cannot interleave refreshes.
type Guardian struct {
	store      CredentialStore
	intro      Introspector
	exch       Exchanger
	buffer     time.Duration
	defaultTTL time.Duration
	pageName   string
	now        func() time.Time
	logger     *slog.Logger

	mu    sync.Mutex
	stale bool
}

// NewGuardian creates a guardian over the given store and API surfaces.
func NewGuardian(store CredentialStore, intro Introspector, exch Exchanger, opts Options, logger *slog.Logger) *Guardian {
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultValidityBuffer
	}

	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTokenTTL
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Guardian{
		store:      store,
		intro:      intro,
		exch:       exch,
		buffer:     opts.Buffer,
		defaultTTL: opts.DefaultTTL,
		pageName:   opts.PageName,
		now:        opts.Now,
		logger:     logger,
	}
}

// classify maps an absolute expiry to a session state. Remaining
// lifetime of exactly the buffer is ExpiringSoon, not Valid: the buffer
// is the floor below which a refresh is already due.
func (g *Guardian) classify(expiresAt time.Time) State {
	remaining := expiresAt.Sub(g.now())

	switch {
	case remaining > g.buffer:
		return StateValid
	case remaining > 0:
		return StateExpiringSoon
	default:
		return StateExpired
	}
}

// CheckValidity classifies the session. With a token it asks the
// upstream via introspection; with an empty token it classifies the
// persisted chain's expiry without any network call.
func (g *Guardian) CheckValidity(ctx context.Context, token string) State {
	if token == "" {
		chain, found, err := g.store.Credentials()
		if err != nil || !found || chain.ExpiresAt == 0 {
			return StateUnknown
		}

		return g.classify(time.UnixMilli(chain.ExpiresAt))
	}

	authorizing := ""
	if chain, found, _ := g.store.Credentials(); found {
		authorizing = graph.AppToken(chain.AppID, chain.AppSecret)
	}

	intro, err := g.introspect(ctx, token, authorizing)
	if err != nil {
		g.logger.Warn("introspection failed", slog.String("error", err.Error()))
		return StateUnknown
	}

	if intro.Validity == graph.ValidityInvalid {
		return StateExpired
	}

	if intro.ExpiresAt == 0 {
		// No expiry reported. The token is valid and not going anywhere.
		return StateValid
	}

	return g.classify(time.Unix(intro.ExpiresAt, 0))
}

// introspect runs the detailed introspection and falls back to the
// legacy endpoint when it fails. The legacy result is degraded but
// still carries a usable relative expiry.
func (g *Guardian) introspect(ctx context.Context, token, authorizing string) (graph.Introspection, error) {
	intro, err := g.intro.Introspect(ctx, token, authorizing)
	if err == nil {
		return intro, nil
	}

	var ie *pwerrors.IntrospectionError
	if !errors.As(err, &ie) {
		return graph.Introspection{}, err
	}

	g.logger.Debug("introspection failed, trying legacy endpoint",
		slog.String("reason", string(ie.Reason)),
	)

	return g.intro.IntrospectLegacy(ctx, token)
}

// Invalidate marks the current session as untrustworthy regardless of
// its persisted expiry. Called when an upstream operation bounces with
// a session-expired error, which outranks whatever the store says.
func (g *Guardian) Invalidate() {
	g.mu.Lock()
	g.stale = true
	g.mu.Unlock()
}

// EnsureValid makes sure the persisted chain is usable, refreshing it
// if needed. It reports success as a boolean and never returns an
// error: refresh failure is not fatal to the caller, who decides what
// to do with a false. When the chain is already Valid and not marked
// stale it performs zero upstream calls.
func (g *Guardian) EnsureValid(ctx context.Context) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.stale && g.CheckValidity(ctx, "") == StateValid {
		return true
	}

	chain, found, err := g.store.Credentials()
	if err != nil {
		g.logger.Error("reading credential chain", slog.String("error", err.Error()))
		return false
	}

	if !found || chain.UserToken == "" {
		g.logger.Error("refresh impossible: no stored user token")
		return false
	}

	userToken := chain.UserToken

	var fallbackExpiresIn time.Duration

	if chain.AppID != "" && chain.AppSecret != "" {
		result := g.exch.ExchangeToLongLived(ctx, chain.UserToken, chain.AppID, chain.AppSecret)
		if result.Degraded {
			g.logger.Warn("token exchange degraded, keeping current token",
				slog.String("cause", result.Cause.Error()),
			)
		}

		userToken = result.AccessToken
		fallbackExpiresIn = result.ExpiresIn
	} else {
		g.logger.Info("no app credentials, degraded refresh reuses current user token")
	}

	pages, err := g.exch.ResolvePageTokens(ctx, userToken)
	if err != nil {
		if errors.Is(err, pwerrors.ErrNoManagedPages) {
			g.logger.Error("refresh failed: token manages no pages")
		} else {
			g.logger.Warn("page lookup failed, will retry on next refresh",
				slog.String("error", err.Error()),
			)
		}

		return false
	}

	page := g.selectPage(pages)

	intro, err := g.introspect(ctx, userToken, graph.AppToken(chain.AppID, chain.AppSecret))
	if err != nil {
		// Expiry will come from the exchange fallback or the default
		// TTL; refresh still proceeds.
		g.logger.Warn("introspection unavailable during refresh",
			slog.String("error", err.Error()),
		)

		intro = graph.Introspection{}
	}

	now := g.now()
	expiresAt := Reconcile(intro, fallbackExpiresIn, now, g.defaultTTL)

	updated := state.Chain{
		UserToken:       userToken,
		PageToken:       page.AccessToken,
		PageID:          page.ID,
		PageName:        page.Name,
		AppID:           chain.AppID,
		AppSecret:       chain.AppSecret,
		ExpiresAt:       expiresAt.UnixMilli(),
		LastRefreshedAt: now.UnixMilli(),
	}

	if err := g.store.SetCredentials(updated); err != nil {
		g.logger.Error("persisting refreshed chain", slog.String("error", err.Error()))
		return false
	}

	g.stale = false

	g.logger.Info("credential chain refreshed",
		slog.String("page", page.Name),
		logging.TokenAttr("page_token", page.AccessToken),
		slog.Time("expires_at", expiresAt),
	)

	return true
}

// selectPage picks the configured page by name, or the first candidate
// when no name is configured. Candidate order is whatever the upstream
// returned; with multiple pages and no configured name the choice is
// arbitrary, so it is logged.
func (g *Guardian) selectPage(pages []graph.PageCandidate) graph.PageCandidate {
	if g.pageName != "" {
		for _, p := range pages {
			if p.Name == g.pageName {
				return p
			}
		}

		g.logger.Warn("configured page not found, falling back to first candidate",
			slog.String("configured", g.pageName),
			slog.String("first", pages[0].Name),
		)
	} else if len(pages) > 1 {
		g.logger.Warn("multiple managed pages and no PW_PAGE_NAME set, using first",
			slog.String("first", pages[0].Name),
		)
	}

	return pages[0]
}
