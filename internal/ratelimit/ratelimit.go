// Package ratelimit implements a Redis token bucket keyed by an arbitrary subject.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenBucketLua = `
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
  tokens = burst
end
if ts == nil then
  ts = now
end

local delta = math.max(0, now - ts)
tokens = math.min(burst, tokens + delta * rate)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("HSET", key, "tokens", tostring(tokens), "ts", tostring(now))
redis.call("PEXPIRE", key, math.ceil(burst / rate))

return allowed
`

// Limiter allows `limit` events per `window` per subject, refilling continuously.
// A nil Limiter allows everything.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	window time.Duration
	script *redis.Script
}

// New returns a limiter, or nil when rdb is nil or limit is not positive
func New(rdb *redis.Client, prefix string, limit int, window time.Duration) *Limiter {
	if rdb == nil || limit <= 0 || window <= 0 {
		return nil
	}
	return &Limiter{
		rdb:    rdb,
		prefix: prefix,
		limit:  limit,
		window: window,
		script: redis.NewScript(tokenBucketLua),
	}
}

// Allow consumes one token for subject and reports whether it was available
func (l *Limiter) Allow(ctx context.Context, subject string) (bool, error) {
	if l == nil {
		return true, nil
	}
	ratePerMs := float64(l.limit) / float64(l.window.Milliseconds())
	now := time.Now().UnixMilli()
	res, err := l.script.Run(ctx, l.rdb, []string{l.prefix + subject},
		strconv.FormatFloat(ratePerMs, 'f', -1, 64), l.limit, now).Int64()
	if err != nil {
		return false, fmt.Errorf("ratelimit eval: %w", err)
	}
	return res == 1, nil
}
