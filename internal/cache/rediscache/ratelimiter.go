package rediscache

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

type RateLimiter struct {
	c   *redis.Client
	now func() time.Time
}

func NewRateLimiter(c *redis.Client) *RateLimiter {
	return &RateLimiter{c: c, now: time.Now}
}

// Allow делает INCR по ключу и ставит TTL, если ключ создаётся впервые.
// Возвращает (allowed, currentCount).
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error) {
	pipe := rl.c.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return false, 0, errors.Wrap(err, "redis ratelimit")
	}
	n := incr.Val()
	return n <= limit, n, nil
}

// AllowPerMinute считает вызовы в текущей минуте по ключу
// "rl:{name}:{unix minute}". limit <= 0 отключает проверку.
func (rl *RateLimiter) AllowPerMinute(ctx context.Context, name string, limit int64) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	minute := rl.now().Unix() / 60
	ok, _, err := rl.Allow(ctx, "rl:"+name+":"+strconv.FormatInt(minute, 10), limit, 2*time.Minute)
	return ok, err
}
