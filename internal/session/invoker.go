package session

import (
	"context"
	"fmt"
	"log/slog"

	pwerrors "github.com/alexjbarnes/pagewarden/internal/errors"
	"github.com/alexjbarnes/pagewarden/internal/graph"
)

// Call is one outbound upstream operation, parameterized by the access
// token so a retry can run with a fresh one. It returns the raw HTTP
// status and body; a non-nil error means the call never completed.
type Call func(ctx context.Context, token string) (status int, body []byte, err error)

// TokenSource yields the current page token. Re-read before the retry
// so a refresh performed in between is picked up.
type TokenSource interface {
	PageToken() (string, error)
}

// Refresher repairs an expired session. Boolean result, never an error,
// which keeps the retry protocol a simple two-way branch. Invalidate
// records that the upstream rejected the current session, so the next
// EnsureValid refreshes even when the persisted expiry still looks
// fine.
type Refresher interface {
	Invalidate()
	EnsureValid(ctx context.Context) bool
}

// Invoker wraps every outbound Graph call with the session-expiry
// retry protocol: detect the upstream's expiry signature, refresh the
// chain, retry the original call exactly once. Callers never see a raw
// expiry error.
type Invoker struct {
	tokens    TokenSource
	refresher Refresher
	logger    *slog.Logger
}

// NewInvoker creates an invoker over the given token source and
// refresher.
func NewInvoker(tokens TokenSource, refresher Refresher, logger *slog.Logger) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Invoker{
		tokens:    tokens,
		refresher: refresher,
		logger:    logger,
	}
}

// Do executes the call with the current page token. On a 2xx it returns
// the body. On the session-expired signature (and only then) it runs
// one refresh and one retry; the retry's result is final either way, so
// a refresh that silently mints another bad token cannot recurse. Any
// other non-2xx surfaces as UpstreamError with status and body intact.
func (i *Invoker) Do(ctx context.Context, op string, call Call) ([]byte, error) {
	token, err := i.tokens.PageToken()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	status, body, err := call(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if status >= 200 && status <= 299 {
		return body, nil
	}

	if !graph.IsSessionExpired(status, body) {
		return nil, fmt.Errorf("%s: %w", op, &pwerrors.UpstreamError{Status: status, Body: string(body)})
	}

	i.logger.Info("session expired mid-operation, refreshing credentials",
		slog.String("op", op),
	)

	// The upstream just contradicted whatever expiry is persisted.
	i.refresher.Invalidate()

	if !i.refresher.EnsureValid(ctx) {
		return nil, fmt.Errorf("%s: %w", op, pwerrors.ErrCredentialRefresh)
	}

	token, err = i.tokens.PageToken()
	if err != nil {
		return nil, fmt.Errorf("%s: re-reading refreshed token: %w", op, err)
	}

	status, body, err = call(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%s (retry): %w", op, err)
	}

	if status >= 200 && status <= 299 {
		i.logger.Debug("retry after refresh succeeded", slog.String("op", op))
		return body, nil
	}

	// A second expiry lands here too: surfaced, never retried again.
	return nil, fmt.Errorf("%s (retry): %w", op, &pwerrors.UpstreamError{Status: status, Body: string(body)})
}
