package retry

import (
	"context"
	"math"
	"strings"
	"time"

	"sentinel/internal/domain/profile"
	"sentinel/internal/metrics"
	"sentinel/pkg/errors"
)

// Strategy selects how the delay grows between attempts
type Strategy string

const (
	StrategyExponential Strategy = "exponential"
	StrategyLinear      Strategy = "linear"
	StrategyFixed       Strategy = "fixed"
)

// ParseStrategy maps a configured name to a Strategy. Empty means exponential.
func ParseStrategy(name string) (Strategy, error) {
	switch s := Strategy(strings.ToLower(strings.TrimSpace(name))); s {
	case "":
		return StrategyExponential, nil
	case StrategyExponential, StrategyLinear, StrategyFixed:
		return s, nil
	default:
		return "", errors.Wrapf(errors.ErrInvalidInput, "unknown retry strategy %q", name)
	}
}

// Config contains retry configuration
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Strategy     Strategy
	Multiplier   float64 // exponential growth factor
}

// Middleware retries transient failures with backoff
type Middleware struct {
	config Config
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a new retry middleware. MaxRetries of zero disables retries.
func New(config Config) *Middleware {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = 200 * time.Millisecond
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = 5 * time.Second
	}
	if config.Multiplier <= 0 {
		config.Multiplier = 2.0
	}
	if config.Strategy == "" {
		config.Strategy = StrategyExponential
	}

	return &Middleware{config: config, sleep: sleepCtx}
}

// Do executes fn until it succeeds, fails permanently or retries run out.
// onRetry, when set, is called before every retry.
func (m *Middleware) Do(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	var lastErr error

	for attempt := 0; attempt <= m.config.MaxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return err
		}

		// Don't sleep after last attempt
		if attempt == m.config.MaxRetries {
			break
		}

		if onRetry != nil {
			onRetry(attempt+1, err)
		}

		if err := m.sleep(ctx, m.calculateDelay(attempt)); err != nil {
			return errors.Wrapf(lastErr, "retry cancelled (%v)", err)
		}
	}

	if m.config.MaxRetries == 0 {
		return lastErr
	}
	return errors.Wrapf(lastErr, "max retries (%d) exceeded", m.config.MaxRetries)
}

// calculateDelay calculates the backoff delay based on the strategy
func (m *Middleware) calculateDelay(attempt int) time.Duration {
	var delay time.Duration

	switch m.config.Strategy {
	case StrategyExponential:
		delay = time.Duration(float64(m.config.InitialDelay) * math.Pow(m.config.Multiplier, float64(attempt)))
	case StrategyLinear:
		delay = m.config.InitialDelay * time.Duration(1+attempt)
	default:
		delay = m.config.InitialDelay
	}

	if delay > m.config.MaxDelay {
		delay = m.config.MaxDelay
	}
	return delay
}

// IsRetryable reports whether a fetch failure may succeed on another attempt.
// Only transient upstream failures qualify; not found, auth and rate limit
// errors are returned to the caller unchanged.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, errors.ErrTransient)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Fetcher wraps next so transient fetch failures are retried
func Fetcher(next profile.Fetcher, m *Middleware) profile.Fetcher {
	return profile.FetcherFunc(func(ctx context.Context, identifier string, platform profile.Platform) (*profile.RawProfileRecord, error) {
		var rec *profile.RawProfileRecord
		err := m.Do(ctx, func() error {
			var err error
			rec, err = next.Fetch(ctx, identifier, platform)
			return err
		}, func(int, error) {
			metrics.RecordFetchRetry(platform.String())
		})
		if err != nil {
			return nil, err
		}
		return rec, nil
	})
}
