package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sentinel/pkg/errors"
)

// RedisLimiter implements distributed token bucket rate limiting via Redis.
// Every engine process sharing the key shares the budget.
type RedisLimiter struct {
	client      *redis.Client
	rate        float64 // Requests per second
	burst       int     // Maximum burst size
	key         string
	tokenScript *redis.Script
	now         func() time.Time
}

// Lua script for token bucket algorithm (atomic operation)
// KEYS[1] = token bucket key
// ARGV[1] = rate (tokens per second)
// ARGV[2] = burst (max tokens)
// ARGV[3] = current timestamp
// Returns: 1 if allowed, 0 if denied
const luaTokenBucketScript = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call('HMGET', key, 'tokens', 'last_update')
local tokens = tonumber(data[1])
local last_update = tonumber(data[2])

if not tokens then
    tokens = burst
    last_update = now
end

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1.0 then
    tokens = tokens - 1.0
    allowed = 1
end

redis.call('HMSET', key, 'tokens', tokens, 'last_update', now)
redis.call('EXPIRE', key, 3600)

return allowed
`

// NewRedisLimiter creates a Redis-backed limiter for one platform
func NewRedisLimiter(client *redis.Client, platform string, requestsPerMinute, burst int) *RedisLimiter {
	if burst <= 0 {
		burst = requestsPerMinute / 10
	}
	if burst < 1 {
		burst = 1
	}

	return &RedisLimiter{
		client:      client,
		rate:        float64(requestsPerMinute) / 60.0,
		burst:       burst,
		key:         fmt.Sprintf("rate_limit:fetch:%s", platform),
		tokenScript: redis.NewScript(luaTokenBucketScript),
		now:         time.Now,
	}
}

// Wait blocks until a token is available or context is cancelled
func (l *RedisLimiter) Wait(ctx context.Context) error {
	for {
		allowed, err := l.tryAcquire(ctx)
		if err != nil {
			return errors.Wrapf(err, "redis rate limiter %s", l.key)
		}
		if allowed {
			return nil
		}

		waitTime := time.Duration(float64(time.Second) / l.rate)

		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "rate limiter wait cancelled")
		case <-time.After(waitTime):
		}
	}
}

func (l *RedisLimiter) tryAcquire(ctx context.Context) (bool, error) {
	now := float64(l.now().UnixNano()) / float64(time.Second)

	result, err := l.tokenScript.Run(ctx, l.client, []string{l.key}, l.rate, l.burst, now).Int()
	if err != nil {
		return false, errors.Wrap(err, "failed to execute token bucket script")
	}
	return result == 1, nil
}
