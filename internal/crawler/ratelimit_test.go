package crawler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDomainLimiterSpacesRequests(t *testing.T) {
	limiter := NewDomainLimiter()
	ctx := context.Background()
	const delay = 50 * time.Millisecond

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://example.org", delay))
	require.NoError(t, limiter.Wait(ctx, "https://example.org", delay))
	require.NoError(t, limiter.Wait(ctx, "https://example.org", delay))
	require.GreaterOrEqual(t, time.Since(start), 2*delay,
		"successive waits for one domain must be spaced by the crawl delay")
}

func TestDomainLimiterIndependentDomains(t *testing.T) {
	limiter := NewDomainLimiter()
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, limiter.Wait(ctx, "https://a.example", 200*time.Millisecond))
	require.NoError(t, limiter.Wait(ctx, "https://b.example", 200*time.Millisecond))
	require.Less(t, time.Since(start), 150*time.Millisecond,
		"different domains must not delay each other")
}

func TestDomainLimiterZeroDelay(t *testing.T) {
	limiter := NewDomainLimiter()
	start := time.Now()
	for i := 0; i < 100; i++ {
		require.NoError(t, limiter.Wait(context.Background(), "https://fast.example", 0))
	}
	require.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDomainLimiterHonorsContext(t *testing.T) {
	limiter := NewDomainLimiter()
	ctx, cancel := context.WithCancel(context.Background())

	// Consume the initial token, then cancel while the next wait is pending.
	require.NoError(t, limiter.Wait(ctx, "https://slow.example", 10*time.Second))
	cancel()
	start := time.Now()
	err := limiter.Wait(ctx, "https://slow.example", 10*time.Second)
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}
