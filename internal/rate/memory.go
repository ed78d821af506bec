package rate

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dropDatabas3/authkit/internal/cache"
)

// MemoryLimiter: mismo fixed-window que RedisLimiter pero sobre un
// cache.Client in-process. Los contadores viven en el cache con el TTL de
// su ventana, así la expiración limpia sola; el mutex aporta la atomicidad
// read-modify-write que en redis resuelve el pipeline INCR.
type MemoryLimiter struct {
	Cfg Config

	mu sync.Mutex
	kv cache.Client
}

func NewMemoryLimiter(cfg Config) *MemoryLimiter {
	return NewKVLimiter(cache.NewMemory("ratelimit"), cfg)
}

// NewKVLimiter arma el limiter sobre un cache.Client ya construido, por
// ejemplo el compartido del proceso.
func NewKVLimiter(kv cache.Client, cfg Config) *MemoryLimiter {
	return &MemoryLimiter{Cfg: cfg, kv: kv}
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	key = strings.ReplaceAll(key, " ", "_")
	now := time.Now().UTC()
	winStart := now.Truncate(l.Cfg.Window)
	winEnd := winStart.Add(l.Cfg.Window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// El bloqueo guarda su propio vencimiento como valor; el TTL de la
	// entrada es solo el garbage collector.
	blockKey := "block:" + key
	if raw, err := l.kv.Get(ctx, blockKey); err == nil {
		if nanos, perr := strconv.ParseInt(raw, 10, 64); perr == nil {
			until := time.Unix(0, nanos)
			if now.Before(until) {
				return Result{Allowed: false, RetryAfter: until.Sub(now)}, nil
			}
		}
		if err := l.kv.Delete(ctx, blockKey); err != nil {
			return Result{}, err
		}
	} else if !cache.IsNotFound(err) {
		return Result{}, err
	}

	hitsKey := "hits:" + key + ":" + strconv.FormatInt(winStart.Unix(), 10)
	var count int64
	if raw, err := l.kv.Get(ctx, hitsKey); err == nil {
		count, _ = strconv.ParseInt(raw, 10, 64)
	} else if !cache.IsNotFound(err) {
		return Result{}, err
	}
	count++
	if err := l.kv.Set(ctx, hitsKey, strconv.FormatInt(count, 10), winEnd.Sub(now)); err != nil {
		return Result{}, err
	}

	max := int64(l.Cfg.Max)
	allowed := count <= max
	remaining := max - count
	if remaining < 0 {
		remaining = 0
	}

	res := Result{Allowed: allowed, Remaining: remaining, CurrentHits: count}
	if !allowed {
		res.RetryAfter = winEnd.Sub(now)
		if l.Cfg.BlockDuration > 0 {
			until := now.Add(l.Cfg.BlockDuration)
			if err := l.kv.Set(ctx, blockKey, strconv.FormatInt(until.UnixNano(), 10), l.Cfg.BlockDuration); err != nil {
				return Result{}, err
			}
			if l.Cfg.BlockDuration > res.RetryAfter {
				res.RetryAfter = l.Cfg.BlockDuration
			}
		}
	}
	return res, nil
}
