package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DomainLimiter spaces successive requests to the same domain by its
// crawl-delay. Unlike a per-call sleep, the underlying token bucket tracks
// the last grant per domain, so concurrent tasks targeting one domain are
// truly serialized at the configured interval.
type DomainLimiter struct {
	mu       sync.Mutex
	limiters map[Domain]*rate.Limiter
}

// NewDomainLimiter builds an empty limiter; domains are registered lazily
// on first wait.
func NewDomainLimiter() *DomainLimiter {
	return &DomainLimiter{
		limiters: make(map[Domain]*rate.Limiter),
	}
}

// Wait blocks until the domain's crawl-delay has elapsed since the previous
// grant for that domain, or until ctx is done. The delay is fixed on the
// domain's first wait; robots policies are immutable within a run, so the
// value never changes afterwards.
func (l *DomainLimiter) Wait(ctx context.Context, domain Domain, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	l.mu.Lock()
	limiter, ok := l.limiters[domain]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
		l.limiters[domain] = limiter
	}
	l.mu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("crawl delay wait for %s: %w", domain, err)
	}
	return nil
}
