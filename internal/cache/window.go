package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WindowCounter counts hits on a key within a fixed window that starts at
// the first hit.
type WindowCounter interface {
	// Hit records one hit and returns the hits so far in the current window
	// and the time until the window resets.
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// The expiry is only set by the hit that creates the key, so the window does
// not slide.
var hitScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return {n, redis.call('PTTL', KEYS[1])}
`)

// RedisWindow is a WindowCounter shared by every API process.
type RedisWindow struct {
	rdb    redis.Scripter
	prefix string
}

func NewRedisWindow(rdb redis.Scripter, prefix string) *RedisWindow {
	return &RedisWindow{rdb: rdb, prefix: prefix}
}

func (w *RedisWindow) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	res, err := hitScript.Run(ctx, w.rdb, []string{w.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to record hit for %s: %w", key, err)
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected window reply for %s: %v", key, res)
	}
	ttl := time.Duration(res[1]) * time.Millisecond
	if ttl < 0 {
		ttl = window
	}
	return res[0], ttl, nil
}
