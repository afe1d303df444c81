package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// фиксированное окно: INCR и EXPIRE атомарно
var fixedWindowScript = goredis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
	return 0
end
return 1
`)

const rateLimitTimeout = time.Second

// RateLimiter реализует echo middleware.RateLimiterStore поверх Redis
type RateLimiter struct {
	client *goredis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRateLimiter(client *goredis.Client, action string, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		client: client,
		prefix: "ratelimit:" + action + ":",
		limit:  limit,
		window: window,
	}
}

func (l *RateLimiter) Allow(identifier string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), rateLimitTimeout)
	defer cancel()

	allowed, err := fixedWindowScript.Run(
		ctx,
		l.client,
		[]string{l.prefix + identifier},
		l.limit,
		l.window.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("run rate limit script: %w", err)
	}

	return allowed == 1, nil
}
