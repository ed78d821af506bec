package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// RedisLimiter: fixed window sencillo (INCR + EXPIRE), con bloqueo opcional
// al exceder el máximo.
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Cfg    Config
}

func NewRedisLimiter(client *rdb.Client, prefix string, cfg Config) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{Client: client, Prefix: prefix, Cfg: cfg}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	key = strings.ReplaceAll(key, " ", "_")

	if l.Cfg.BlockDuration > 0 {
		blockKey := l.Prefix + "block:" + key
		ttl, err := l.Client.TTL(ctx, blockKey).Result()
		if err != nil {
			return Result{}, err
		}
		if ttl > 0 {
			return Result{Allowed: false, RetryAfter: ttl}, nil
		}
	}

	now := time.Now().UTC()
	winStart := now.Truncate(l.Cfg.Window)
	redisKey := fmt.Sprintf("%s%s:%d", l.Prefix, key, winStart.Unix())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttl := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return Result{}, err
	}

	// expiry en el primer hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Cfg.Window).Err()
		ttl = l.Client.TTL(ctx, redisKey)
	}

	hits := incr.Val()
	max := int64(l.Cfg.Max)
	allowed := hits <= max
	remaining := max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: hits}
	if !allowed {
		res.RetryAfter = ttl.Val()
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.Cfg.Window.Seconds())) * time.Second
		}
		if l.Cfg.BlockDuration > 0 {
			_ = l.Client.Set(ctx, l.Prefix+"block:"+key, "1", l.Cfg.BlockDuration).Err()
			if l.Cfg.BlockDuration > res.RetryAfter {
				res.RetryAfter = l.Cfg.BlockDuration
			}
		}
	}
	return res, nil
}
