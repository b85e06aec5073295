package crawler

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// FetchExecutor runs one fetch task to a terminal outcome: it picks the
// fetcher for the task's strategy and retries retryable failures with
// exponential backoff until the attempt budget is spent.
type FetchExecutor struct {
	static            Fetcher
	rendered          Fetcher
	policy            *BackoffPolicy
	identity          Identity
	retryAfterDefault time.Duration
	metrics           *Metrics
	logger            *zap.Logger
}

// NewFetchExecutor wires an executor. rendered may be nil, in which case
// rendered tasks fall back to the static path.
func NewFetchExecutor(
	static Fetcher,
	rendered Fetcher,
	policy *BackoffPolicy,
	identity Identity,
	retryAfterDefault time.Duration,
	metrics *Metrics,
	logger *zap.Logger,
) *FetchExecutor {
	if retryAfterDefault <= 0 {
		retryAfterDefault = 60 * time.Second
	}
	return &FetchExecutor{
		static:            static,
		rendered:          rendered,
		policy:            policy,
		identity:          identity,
		retryAfterDefault: retryAfterDefault,
		metrics:           metrics,
		logger:            logger,
	}
}

// Fetch executes task until success or a terminal failure. The returned
// error, if any, is always a classified FetchError or a context error.
func (e *FetchExecutor) Fetch(ctx context.Context, task FetchTask) (Page, error) {
	fetcher := e.fetcherFor(task.Strategy)

	var lastErr error
	for attempt := 0; attempt < e.policy.MaxAttempts(); attempt++ {
		if err := ctx.Err(); err != nil {
			return Page{}, err
		}
		task.Attempt = attempt
		if attempt > 0 {
			e.metrics.IncRetries()
		}
		e.metrics.IncRequests()

		page, err := fetcher.Fetch(ctx, task.URL, e.identity.UserAgent(), e.identity.Proxy())
		if err == nil {
			return page, nil
		}
		e.metrics.IncRequestErrors()
		lastErr = err

		if !e.policy.ShouldRetry(err, attempt+1) {
			break
		}
		wait := e.policy.Delay(attempt)
		if ra, limited := e.retryAfter(err); limited {
			e.metrics.IncRateLimitHits()
			wait = ra
		}
		e.logger.Debug("Fetch attempt failed; backing off",
			zap.String("url", task.URL),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
		if err := sleepCtx(ctx, wait); err != nil {
			return Page{}, err
		}
	}
	return Page{}, lastErr
}

func (e *FetchExecutor) fetcherFor(strategy Strategy) Fetcher {
	if strategy == StrategyRendered && e.rendered != nil {
		return e.rendered
	}
	return e.static
}

// retryAfter returns the wait the server demanded for a 429, substituting
// the configured default when the header was missing.
func (e *FetchExecutor) retryAfter(err error) (time.Duration, bool) {
	var fe *FetchError
	if !errors.As(err, &fe) || fe.Kind != KindRateLimited {
		return 0, false
	}
	if fe.RetryAfter > 0 {
		return fe.RetryAfter, true
	}
	return e.retryAfterDefault, true
}

// sleepCtx waits for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
