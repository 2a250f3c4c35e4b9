// Package oauth provides token refresh scheduling for providers whose
// tokens are persisted in the oauth_tokens table. It performs jittered
// checks and refreshes when expiry falls within a configured window.
package oauth

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/onnwee/twt/db"
)

// RefreshFunc performs provider-specific refresh and returns (access, refresh, expiry, scope)
type RefreshFunc func(ctx context.Context, refreshToken string) (string, string, time.Time, string, error)

// NotifyFunc is called after a successful refresh has been persisted so
// live consumers (the IRC bridge, the Helix token source) can pick up the
// rotated access token without restarting.
type NotifyFunc func(access string, expiry time.Time)

// StartRefresher launches a goroutine that periodically checks an oauth token row and refreshes it.
// provider: key in oauth_tokens table.
// interval: how often to wake up and check.
// window: refresh when remaining lifetime <= window.
// notify: optional; invoked with the rotated token after persistence.
func StartRefresher(ctx context.Context, store *db.TokenStore, provider string, interval, window time.Duration, fn RefreshFunc, notify NotifyFunc) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	// Randomize initial delay so restarts don't hammer the identity server.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(initialJitter):
		}
		for {
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(nextSleep):
			}
			tok, err := store.Get(ctx, provider)
			if err != nil {
				slog.Warn("token row read failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			if tok.RefreshToken == "" {
				continue
			}
			// Still outside the window: nothing to do yet.
			if time.Until(tok.Expiry) > window {
				continue
			}
			ctx2, cancel := context.WithTimeout(ctx, 15*time.Second)
			newAT, newRT, newExp, newScope, err := fn(ctx2, tok.RefreshToken)
			cancel()
			if err != nil {
				slog.Warn("token refresh failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			if newRT == "" {
				newRT = tok.RefreshToken
			}
			if newScope == "" {
				newScope = tok.Scope
			}
			err = store.Upsert(ctx, provider, db.Token{
				AccessToken:  newAT,
				RefreshToken: newRT,
				Expiry:       newExp,
				Scope:        strings.TrimSpace(newScope),
			})
			if err != nil {
				slog.Warn("token persist failed", slog.String("provider", provider), slog.Any("err", err))
				continue
			}
			slog.Info("token refreshed", slog.String("provider", provider))
			if notify != nil {
				notify(newAT, newExp)
			}
		}
	}()
}
