package sources

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle serializes calls to one source and spaces them by a fixed interval.
type Throttle struct {
	mu      sync.Mutex
	limiter *rate.Limiter
}

func NewThrottle(interval time.Duration) *Throttle {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Throttle{limiter: rate.NewLimiter(limit, 1)}
}

// Do waits for the next slot and runs fn while holding the source.
func (t *Throttle) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	return fn(ctx)
}
