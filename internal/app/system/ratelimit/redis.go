// internal/app/system/ratelimit/redis.go
package ratelimit

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrWithExpiry increments the window counter and sets its TTL on the first
// hit, atomically.
var incrWithExpiry = redis.NewScript(`
local current = redis.call("incr", KEYS[1])
if current == 1 then
  redis.call("pexpire", KEYS[1], ARGV[1])
end
return current
`)

// RedisLimiter is a fixed-window limiter whose counts live in Redis, so
// every instance of the app shares them.
type RedisLimiter struct {
	rdb    redis.Cmdable
	prefix string
	limit  int
	window time.Duration
}

var _ Backend = (*RedisLimiter)(nil)

// NewRedis creates a Redis-backed limiter. Keys are stored as "<prefix>:<key>";
// a trailing colon on prefix is dropped.
func NewRedis(rdb redis.Cmdable, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: strings.TrimRight(prefix, ":"), limit: limit, window: window}
}

func (l *RedisLimiter) key(k string) string {
	return l.prefix + ":" + k
}

// Allow increments the key's counter and reports whether it is within the limit.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	count, err := incrWithExpiry.Run(ctx, l.rdb, []string{l.key(key)}, l.window.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= int64(l.limit), nil
}

// Reset deletes the key's counter.
func (l *RedisLimiter) Reset(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.key(key)).Err()
}
