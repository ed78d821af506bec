package rate

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/authkit/internal/cache"
)

func TestMemoryLimiter_AllowsUpToMax(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLimiter(Config{Max: 3, Window: time.Hour})

	for i := 1; i <= 3; i++ {
		res, err := l.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatalf("Allow err: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("hit %d should be allowed", i)
		}
		if res.CurrentHits != int64(i) {
			t.Fatalf("hit %d: CurrentHits=%d", i, res.CurrentHits)
		}
	}

	res, err := l.Allow(ctx, "ip:1.2.3.4")
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Fatalf("hit 4 should be denied")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("denied result should carry RetryAfter, got %v", res.RetryAfter)
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLimiter(Config{Max: 1, Window: time.Hour})

	if res, _ := l.Allow(ctx, "a"); !res.Allowed {
		t.Fatalf("first hit on a denied")
	}
	if res, _ := l.Allow(ctx, "a"); res.Allowed {
		t.Fatalf("second hit on a should be denied")
	}
	if res, _ := l.Allow(ctx, "b"); !res.Allowed {
		t.Fatalf("b should not share a's window")
	}
}

func TestMemoryLimiter_BlockDurationOutlivesWindow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l := NewMemoryLimiter(Config{Max: 1, Window: 20 * time.Millisecond, BlockDuration: time.Hour})

	l.Allow(ctx, "k")
	if res, _ := l.Allow(ctx, "k"); res.Allowed {
		t.Fatalf("should be denied and blocked")
	}
	// La ventana rota pero el bloqueo persiste.
	time.Sleep(40 * time.Millisecond)
	res, _ := l.Allow(ctx, "k")
	if res.Allowed {
		t.Fatalf("block duration should outlive the window")
	}
	if res.RetryAfter <= 0 {
		t.Fatalf("blocked result should carry RetryAfter")
	}
}

func TestKVLimiter_StateLivesInTheClient(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := cache.NewMemory("rl-test")

	a := NewKVLimiter(kv, Config{Max: 1, Window: time.Hour, BlockDuration: time.Hour})
	a.Allow(ctx, "k")
	if res, _ := a.Allow(ctx, "k"); res.Allowed {
		t.Fatalf("second hit should be denied")
	}

	// Otro limiter sobre el MISMO client ve el contador y el bloqueo: el
	// estado está en el cache, no en el struct.
	b := NewKVLimiter(kv, Config{Max: 1, Window: time.Hour, BlockDuration: time.Hour})
	if res, _ := b.Allow(ctx, "k"); res.Allowed {
		t.Fatalf("block should be visible through the shared client")
	}

	if ok, _ := kv.Exists(ctx, "block:k"); !ok {
		t.Fatalf("block key should live in the cache client")
	}
}
