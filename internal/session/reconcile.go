// Package session owns the credential lifecycle: reconciling expiry
// signals, guarding session validity, and retrying upstream calls that
// fail with an expired session.
package session

import (
	"time"

	"github.com/alexjbarnes/pagewarden/internal/graph"
)

// DefaultTokenTTL is the assumed lifetime for tokens whose expiry no
// upstream signal can pin down. Long-lived Graph user tokens last about
// 60 days, so that is the default runway.
const DefaultTokenTTL = 60 * 24 * time.Hour

// Reconcile collapses the possibly-conflicting expiry signals of an
// introspection result into one authoritative timestamp. It never
// fails; the fallback chain always produces a value.
//
// Precedence, first match wins:
//  1. the data-access window — it gates access revocation and is
//     usually tighter than the token's own expiry, so trusting the
//     token expiry first would overstate the safe lifetime
//  2. the token's own expiry
//  3. a relative expires-in from an exchange response
//  4. now + defaultTTL
func Reconcile(intro graph.Introspection, fallbackExpiresIn time.Duration, now time.Time, defaultTTL time.Duration) time.Time {
	if defaultTTL <= 0 {
		defaultTTL = DefaultTokenTTL
	}

	switch {
	case intro.DataAccessExpiresAt > 0:
		return time.Unix(intro.DataAccessExpiresAt, 0)
	case intro.ExpiresAt > 0:
		return time.Unix(intro.ExpiresAt, 0)
	case fallbackExpiresIn > 0:
		return now.Add(fallbackExpiresIn)
	default:
		return now.Add(defaultTTL)
	}
}
