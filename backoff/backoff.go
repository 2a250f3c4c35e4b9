// Package backoff provides error classification and jittered exponential
// delays shared by the IRC connection loop and Helix API retries.
package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy computes exponential delays with jitter. The zero value is not
// usable; construct with NewPolicy.
type Policy struct {
	// Base is the delay before the first retry.
	Base time.Duration
	// Cap bounds the exponential growth.
	Cap time.Duration
}

// NewPolicy returns a policy with sane defaults for interactive use:
// 2s base doubling up to 1m.
func NewPolicy() Policy {
	return Policy{Base: 2 * time.Second, Cap: time.Minute}
}

// Delay returns the wait before retry number attempt (0-based), doubling
// from Base and adding up to Base of random jitter so simultaneous clients
// don't reconnect in lockstep.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	// Shift saturates well before overflow for any realistic attempt count.
	if attempt > 20 {
		attempt = 20
	}
	d := p.Base * time.Duration(1<<uint(attempt))
	if p.Cap > 0 && d > p.Cap {
		d = p.Cap
	}
	d += time.Duration(rand.Int63n(int64(p.Base)))
	return d
}

// Sleep waits for Delay(attempt) or until ctx is done, returning ctx.Err()
// in the latter case.
func (p Policy) Sleep(ctx context.Context, attempt int) error {
	t := time.NewTimer(p.Delay(attempt))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
