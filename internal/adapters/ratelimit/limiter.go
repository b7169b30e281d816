package ratelimit

import (
	"context"

	"golang.org/x/time/rate"

	"sentinel/internal/domain/profile"
	"sentinel/pkg/errors"
)

// Waiter blocks until the caller may issue one more request
type Waiter interface {
	Wait(ctx context.Context) error
}

// Limiter provides in-process rate limiting for profile fetches
type Limiter struct {
	limiter *rate.Limiter
	name    string
}

// NewLimiter creates a new rate limiter
// requestsPerMinute: maximum number of requests allowed per minute
// burst: tokens available at once, 10% of the per-minute limit when <= 0
func NewLimiter(name string, requestsPerMinute, burst int) *Limiter {
	rps := float64(requestsPerMinute) / 60.0

	if burst <= 0 {
		burst = requestsPerMinute / 10
	}
	if burst < 1 {
		burst = 1
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		name:    name,
	}
}

// Wait blocks until the rate limiter allows the request
func (l *Limiter) Wait(ctx context.Context) error {
	if err := l.limiter.Wait(ctx); err != nil {
		return errors.Wrapf(err, "rate limiter %s", l.name)
	}
	return nil
}

// Fetcher wraps next so every fetch first waits for the limiter.
// Limiter failures surface as transient fetch errors.
func Fetcher(next profile.Fetcher, w Waiter) profile.Fetcher {
	return profile.FetcherFunc(func(ctx context.Context, identifier string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		if err := w.Wait(ctx); err != nil {
			return nil, errors.Wrapf(errors.ErrTransient, "wait for fetch slot: %v", err)
		}
		return next.Fetch(ctx, identifier, platform)
	})
}
