package crawler

import (
	"crypto/rand"
	"math"
	"math/big"
	"time"
)

// BackoffPolicy decides whether a failed attempt is retried and how long to
// wait before the next one. Delays grow as base × 2^attempt up to the cap,
// with jitter inside each step so consecutive attempts still wait strictly
// longer than the previous ones.
type BackoffPolicy struct {
	maxAttempts int
	base        time.Duration
	cap         time.Duration
}

// NewBackoffPolicy builds a policy; zero values fall back to 3 attempts,
// 500ms base, 60s cap.
func NewBackoffPolicy(maxAttempts int, base, cap time.Duration) *BackoffPolicy {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	if cap < base {
		cap = 60 * time.Second
	}
	return &BackoffPolicy{
		maxAttempts: maxAttempts,
		base:        base,
		cap:         cap,
	}
}

// MaxAttempts returns the attempt budget per task.
func (p *BackoffPolicy) MaxAttempts() int { return p.maxAttempts }

// ShouldRetry reports whether the error classification permits another
// attempt and the budget allows it. attempt is the number of attempts
// already made.
func (p *BackoffPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	if attempt >= p.maxAttempts {
		return false
	}
	return KindOf(err).Retryable()
}

// Delay returns the wait before attempt n+1, given n attempts so far.
func (p *BackoffPolicy) Delay(attempt int) time.Duration {
	delay := float64(p.base) * math.Pow(2, float64(attempt))
	if delay > float64(p.cap) {
		delay = float64(p.cap)
	}
	half := time.Duration(delay / 2)
	return half + randomJitter(half)
}

func randomJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return limit / 2
	}
	return time.Duration(n.Int64())
}
