// Package rate implementa rate limiting fixed-window para los endpoints
// sensibles (login, forgot-password, resend de códigos).
package rate

import (
	"context"
	"time"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Config de una ventana de limiting. BlockDuration opcional: al exceder Max,
// la key queda bloqueada ese tiempo extra aunque la ventana ya haya rotado.
type Config struct {
	Max           int
	Window        time.Duration
	BlockDuration time.Duration
}
